// Package aggregation implements the engine that maintains one ProdCons row
// per (party, period, group): it sums the raw data-report quantities of the
// current submissions into weighted component totals and derives calculated
// production and calculated consumption.
package aggregation

import (
	"context"
	"time"

	domagg "github.com/mutisyag/ozone-sub000/internal/domain/aggregation"
	"github.com/mutisyag/ozone-sub000/internal/domain/party"
	"github.com/mutisyag/ozone-sub000/internal/domain/period"
	"github.com/mutisyag/ozone-sub000/internal/domain/submission"
	"github.com/mutisyag/ozone-sub000/internal/domain/substance"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// DataAccess bundles the mutable repositories a recompute writes through.
// The lifecycle service passes transaction-bound instances so that the
// recompute is atomic with the state change that triggered it; batch callers
// pass pool-bound instances.
type DataAccess struct {
	ProdCons    domagg.Repository
	RawData     domagg.RawDataRepository
	Submissions submission.Repository
}

// Engine derives ProdCons rows.  Reference-data repositories are read-only
// and injected once; ProdCons rows are mutated only through Recompute.
type Engine struct {
	parties    party.Repository
	periods    period.Repository
	substances substance.Repository
	log        logging.Logger
	metrics    *prometheus.Metrics
}

// NewEngine constructs an aggregation engine.
func NewEngine(parties party.Repository, periods period.Repository,
	substances substance.Repository, log logging.Logger, metrics *prometheus.Metrics) *Engine {
	return &Engine{
		parties:    parties,
		periods:    periods,
		substances: substances,
		log:        log.Named("aggregation"),
		metrics:    metrics,
	}
}

// Recompute rebuilds the ProdCons row for (party, period, group) from
// scratch: it sums the raw rows of every aggregatable obligation's current
// submission plus any transfers touching the party/period, then derives the
// calculated fields.  Recomputation is idempotent — unchanged inputs yield
// bit-identical results — and a row whose inputs vanish entirely is deleted
// rather than left as an all-zero husk.
//
// The returned row is nil when no data contributes.
func (e *Engine) Recompute(ctx context.Context, da DataAccess, partyID, periodID int64, groupID treaty.GroupID) (*domagg.ProdCons, error) {
	start := time.Now()
	row, err := e.recompute(ctx, da, partyID, periodID, groupID)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if e.metrics != nil {
		e.metrics.RecomputesTotal.WithLabelValues(string(groupID), outcome).Inc()
		e.metrics.RecomputeDuration.WithLabelValues(string(groupID)).Observe(time.Since(start).Seconds())
	}
	return row, err
}

func (e *Engine) recompute(ctx context.Context, da DataAccess, partyID, periodID int64, groupID treaty.GroupID) (*domagg.ProdCons, error) {
	p, err := e.parties.FindByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	per, err := e.periods.FindByID(ctx, periodID)
	if err != nil {
		return nil, err
	}
	group, err := e.substances.FindGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	substances, err := e.substances.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*substance.Substance, len(substances))
	for _, s := range substances {
		byID[s.ID] = s
	}

	// Party history may legitimately be absent for a period (a party that
	// did not exist yet); the formulas then fall back to non-member,
	// non-Article-5 semantics.
	hist, err := e.parties.HistoryFor(ctx, partyID, periodID)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	// Whether a stored row pre-exists decides the row-count gauge movement.
	existing, err := da.ProdCons.Find(ctx, partyID, periodID, groupID)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	var comps, compsGWP domagg.Components
	contributing := map[treaty.ObligationType][]string{}

	for _, obl := range treaty.AggregatableObligations {
		cur, err := da.Submissions.GetCurrent(ctx, partyID, obl, periodID)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			continue
		}
		rows, err := da.RawData.ListForSubmission(ctx, cur.ID, group.ID)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		contributing[obl] = append(contributing[obl], cur.ID)
		for _, r := range rows {
			s, ok := byID[r.SubstanceID]
			if !ok {
				// Row belongs to another group's substance; the repository
				// filter should have excluded it.
				return nil, errors.New(errors.ErrCodeProdConsCorrupt,
					"raw record references substance outside requested group")
			}
			comps.Accumulate(r.Kind, s.Weight(r.Quantity, false))
			compsGWP.Accumulate(r.Kind, s.Weight(r.Quantity, true))
		}
	}

	transfers, err := da.RawData.TransfersFor(ctx, partyID, periodID, group.ID)
	if err != nil {
		return nil, err
	}
	for _, tr := range transfers {
		s, ok := byID[tr.SubstanceID]
		if !ok {
			continue
		}
		qty := tr.Quantity
		if tr.SourcePartyID == partyID {
			qty = qty.Neg()
		}
		comps.ProdTransfer = comps.ProdTransfer.Add(s.Weight(qty, false))
		compsGWP.ProdTransfer = compsGWP.ProdTransfer.Add(s.Weight(qty, true))
	}

	if len(contributing) == 0 && comps.IsZero() && compsGWP.IsZero() {
		if err := da.ProdCons.Delete(ctx, partyID, periodID, groupID); err != nil {
			return nil, err
		}
		if existing != nil && e.metrics != nil {
			e.metrics.ProdConsRows.Dec()
		}
		e.log.Debug("prodcons row purged",
			logging.Int64("party", partyID),
			logging.Int64("period", periodID),
			logging.String("group", string(groupID)))
		return nil, nil
	}

	year := per.StartDate.Year()
	row := &domagg.ProdCons{
		PartyID:                 partyID,
		PeriodID:                periodID,
		GroupID:                 groupID,
		Components:              comps,
		ComponentsGWP:           compsGWP,
		CalcProduction:          domagg.CalcProduction(p, hist, year, &comps),
		CalcConsumption:         domagg.CalcConsumption(p, hist, year, &comps),
		CalcProductionGWP:       domagg.CalcProduction(p, hist, year, &compsGWP),
		CalcConsumptionGWP:      domagg.CalcConsumption(p, hist, year, &compsGWP),
		ContributingSubmissions: contributing,
	}
	if err := da.ProdCons.Upsert(ctx, row); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecomputeFailed, "failed to persist prodcons row")
	}
	if existing == nil && e.metrics != nil {
		e.metrics.ProdConsRows.Inc()
	}
	e.log.Info("prodcons recomputed",
		logging.String("party", p.Abbr),
		logging.String("period", per.Name),
		logging.String("group", string(groupID)))
	return row, nil
}

// RecomputeForSubmission recomputes every group the submission reports.
// Called by the lifecycle service inside the transaction of a
// becomes-current or recall transition.
func (e *Engine) RecomputeForSubmission(ctx context.Context, da DataAccess, sub *submission.Submission) error {
	groups, err := da.RawData.GroupsReported(ctx, sub.ID)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if _, err := e.Recompute(ctx, da, sub.PartyID, sub.PeriodID, g); err != nil {
			return err
		}
	}
	return nil
}
