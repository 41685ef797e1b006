// Package reconciliation compares stored baselines and limits against
// freshly computed values and reports (or repairs) the differences.  It is
// the safety net run after reference-data changes: formula or control
// measure edits leave stale rows behind, and this is how they surface.
package reconciliation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	appbaseline "github.com/mutisyag/ozone-sub000/internal/application/baseline"
	applimits "github.com/mutisyag/ozone-sub000/internal/application/limits"
	"github.com/mutisyag/ozone-sub000/internal/domain/compliance"
	"github.com/mutisyag/ozone-sub000/internal/domain/period"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Category classifies one reported difference.
type Category string

const (
	// CategoryMissing marks a computed value with no stored counterpart.
	CategoryMissing Category = "missing"
	// CategoryDifferent marks a stored value that disagrees with the
	// computed one.
	CategoryDifferent Category = "different"
	// CategoryObsolete marks a stored value the formulas no longer produce.
	CategoryObsolete Category = "obsolete"
)

// Diff is one line of the reconciliation report.
type Diff struct {
	Kind     string // "baseline" or "limit"
	Category Category
	PartyID  int64
	GroupID  treaty.GroupID

	// Baseline diffs carry the type; limit diffs carry period and limit type.
	BaselineType treaty.BaselineTypeName
	PeriodID     int64
	LimitType    treaty.LimitType

	Stored   *decimal.Decimal
	Computed *decimal.Decimal
}

// Report is the outcome of one reconciliation run.
type Report struct {
	Baselines []Diff
	Limits    []Diff
	Applied   bool
}

// Empty reports whether stored and computed values fully agree.
func (r *Report) Empty() bool {
	return len(r.Baselines) == 0 && len(r.Limits) == 0
}

// Service runs reconciliations.
type Service struct {
	periods   period.Repository
	baselines *appbaseline.Calculator
	limits    *applimits.Calculator
	blRepo    compliance.BaselineRepository
	limRepo   compliance.LimitRepository
	log       logging.Logger
	metrics   *prometheus.Metrics
}

// NewService constructs a reconciliation service.
func NewService(periods period.Repository, baselines *appbaseline.Calculator,
	limits *applimits.Calculator, blRepo compliance.BaselineRepository,
	limRepo compliance.LimitRepository, log logging.Logger,
	metrics *prometheus.Metrics) *Service {
	return &Service{
		periods:   periods,
		baselines: baselines,
		limits:    limits,
		blRepo:    blRepo,
		limRepo:   limRepo,
		log:       log.Named("reconciliation"),
		metrics:   metrics,
	}
}

// Run reconciles baselines and limits.  With apply set, missing and
// different rows are upserted and obsolete rows deleted; otherwise the
// report is returned without touching storage.
func (s *Service) Run(ctx context.Context, apply bool) (*Report, error) {
	started := time.Now()

	report := &Report{Applied: apply}
	if err := s.reconcileBaselines(ctx, report, apply); err != nil {
		return nil, err
	}
	if err := s.reconcileLimits(ctx, report, apply); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BatchRunDuration.WithLabelValues("reconcile").
			Observe(time.Since(started).Seconds())
	}
	s.log.Info("reconciliation finished",
		logging.Bool("applied", apply),
		logging.Int("baseline_diffs", len(report.Baselines)),
		logging.Int("limit_diffs", len(report.Limits)),
		logging.Duration("elapsed", time.Since(started)))
	return report, nil
}

func (s *Service) reconcileBaselines(ctx context.Context, report *Report, apply bool) error {
	computed, err := s.baselines.ComputeAll(ctx)
	if err != nil {
		return err
	}
	stored, err := s.blRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	type key struct {
		partyID int64
		group   treaty.GroupID
		bt      treaty.BaselineTypeName
	}
	storedByKey := make(map[key]*compliance.Baseline, len(stored))
	for _, b := range stored {
		storedByKey[key{b.PartyID, b.GroupID, b.BaselineType}] = b
	}

	for _, b := range computed {
		k := key{b.PartyID, b.GroupID, b.BaselineType}
		old, ok := storedByKey[k]
		delete(storedByKey, k)

		var cat Category
		d := Diff{Kind: "baseline", PartyID: b.PartyID, GroupID: b.GroupID,
			BaselineType: b.BaselineType}
		switch {
		case !ok:
			cat = CategoryMissing
			v := b.Value
			d.Computed = &v
		case !old.Value.Equal(b.Value):
			cat = CategoryDifferent
			sv, cv := old.Value, b.Value
			d.Stored, d.Computed = &sv, &cv
		default:
			continue
		}
		d.Category = cat
		report.Baselines = append(report.Baselines, d)
		s.count("baseline", cat)
		if apply {
			if err := s.blRepo.Upsert(ctx, b); err != nil {
				return err
			}
			s.applied("baseline", cat)
		}
	}

	for _, old := range storedByKey {
		v := old.Value
		report.Baselines = append(report.Baselines, Diff{
			Kind: "baseline", Category: CategoryObsolete,
			PartyID: old.PartyID, GroupID: old.GroupID,
			BaselineType: old.BaselineType, Stored: &v,
		})
		s.count("baseline", CategoryObsolete)
		if apply {
			if err := s.blRepo.Delete(ctx, old.PartyID, old.GroupID, old.BaselineType); err != nil {
				return err
			}
			s.applied("baseline", CategoryObsolete)
		}
	}
	return nil
}

func (s *Service) reconcileLimits(ctx context.Context, report *Report, apply bool) error {
	periods, err := s.periods.ListAll(ctx)
	if err != nil {
		return err
	}
	stored, err := s.limRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	type key struct {
		partyID  int64
		periodID int64
		group    treaty.GroupID
		lt       treaty.LimitType
	}
	storedByKey := make(map[key]*compliance.Limit, len(stored))
	for _, l := range stored {
		storedByKey[key{l.PartyID, l.PeriodID, l.GroupID, l.LimitType}] = l
	}

	for _, per := range periods {
		// Limits exist for calendar-year reporting periods only; baseline
		// windows and other synthetic periods carry none.
		if !per.IsYear() {
			continue
		}
		computed, err := s.limits.ComputeForPeriod(ctx, per)
		if err != nil {
			return err
		}
		for _, l := range computed {
			k := key{l.PartyID, l.PeriodID, l.GroupID, l.LimitType}
			old, ok := storedByKey[k]
			delete(storedByKey, k)

			var cat Category
			d := Diff{Kind: "limit", PartyID: l.PartyID, GroupID: l.GroupID,
				PeriodID: l.PeriodID, LimitType: l.LimitType}
			switch {
			case !ok:
				cat = CategoryMissing
				v := l.Value
				d.Computed = &v
			case !old.Value.Equal(l.Value):
				cat = CategoryDifferent
				sv, cv := old.Value, l.Value
				d.Stored, d.Computed = &sv, &cv
			default:
				continue
			}
			d.Category = cat
			report.Limits = append(report.Limits, d)
			s.count("limit", cat)
			if apply {
				if err := s.limRepo.Upsert(ctx, l); err != nil {
					return err
				}
				s.applied("limit", cat)
			}
		}
	}

	for _, old := range storedByKey {
		v := old.Value
		report.Limits = append(report.Limits, Diff{
			Kind: "limit", Category: CategoryObsolete,
			PartyID: old.PartyID, GroupID: old.GroupID,
			PeriodID: old.PeriodID, LimitType: old.LimitType, Stored: &v,
		})
		s.count("limit", CategoryObsolete)
		if apply {
			if err := s.limRepo.Delete(ctx, old.PartyID, old.PeriodID, old.GroupID, old.LimitType); err != nil {
				return err
			}
			s.applied("limit", CategoryObsolete)
		}
	}
	return nil
}

func (s *Service) count(kind string, cat Category) {
	if s.metrics != nil {
		s.metrics.ReconciliationDiffs.WithLabelValues(kind, string(cat)).Inc()
	}
}

func (s *Service) applied(kind string, cat Category) {
	if s.metrics != nil {
		s.metrics.ReconciliationApplied.WithLabelValues(kind, string(cat)).Inc()
	}
}
