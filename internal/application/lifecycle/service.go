// Package lifecycle implements the submission state machine service:
// transition execution, version assignment, current/superseded bookkeeping,
// and the aggregation recomputes those changes trigger.  Everything that
// touches sibling versions runs inside one database transaction holding row
// locks on the whole (party, obligation, period) version group, so
// concurrent requests cannot race version numbers or current status.
package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"time"

	appagg "github.com/mutisyag/ozone-sub000/internal/application/aggregation"
	domagg "github.com/mutisyag/ozone-sub000/internal/domain/aggregation"
	"github.com/mutisyag/ozone-sub000/internal/domain/submission"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Repos bundles the repositories the lifecycle service writes through.
type Repos struct {
	Submissions submission.Repository
	ProdCons    domagg.Repository
	RawData     domagg.RawDataRepository
}

// Store provides repository access, either pool-bound (Repos) or bound to a
// single transaction (WithinTx).  A WithinTx callback returning an error
// rolls back every write made through its Repos; row locks acquired inside
// are held until commit or rollback.
type Store interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// Service is the submission lifecycle engine.
type Service struct {
	store   Store
	engine  *appagg.Engine
	log     logging.Logger
	metrics *prometheus.Metrics
}

// NewService constructs a lifecycle service.
func NewService(store Store, engine *appagg.Engine, log logging.Logger, metrics *prometheus.Metrics) *Service {
	return &Service{
		store:   store,
		engine:  engine,
		log:     log.Named("lifecycle"),
		metrics: metrics,
	}
}

// CreateSubmission creates a brand-new version for (party, obligation,
// period).  The version number is max(existing)+1, computed while holding
// row locks on every sibling so two concurrent creations cannot race to the
// same number.  A second editable data-entry version for the same actor
// type is rejected with SUB_006.
func (s *Service) CreateSubmission(ctx context.Context, partyID int64, obligation treaty.ObligationType,
	periodID int64, filledBy treaty.ActorType) (*submission.Submission, error) {

	wf, err := submission.WorkflowFor(obligation)
	if err != nil {
		return nil, err
	}

	var created *submission.Submission
	err = s.store.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		siblings, err := r.Submissions.ListSiblingsForUpdate(ctx, partyID, obligation, periodID)
		if err != nil {
			return err
		}
		maxVersion := 0
		for _, sib := range siblings {
			if wf.Editable[sib.State] && sib.FilledBy == filledBy {
				return errors.New(errors.ErrCodeDuplicateDataEntry,
					fmt.Sprintf("a %s-filled submission in data entry already exists (version %d)",
						filledBy, sib.Version))
			}
			if sib.Version > maxVersion {
				maxVersion = sib.Version
			}
		}

		sub, err := submission.New(partyID, periodID, obligation, filledBy)
		if err != nil {
			return err
		}
		sub.Version = maxVersion + 1
		if err := r.Submissions.Create(ctx, sub); err != nil {
			return err
		}
		created = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.VersionsCreated.WithLabelValues(string(obligation)).Inc()
	}
	s.log.Info("submission created",
		logging.String("submission", created.ID),
		logging.Int64("party", partyID),
		logging.Int("version", created.Version))
	return created, nil
}

// ExecuteTransition runs the named transition on a submission.  Validation
// (unknown transition, unreachable, guard failure) happens against the
// row-locked state, and the state change, supersession bookkeeping, and any
// aggregation recompute commit or roll back as one unit: a failure during
// the cascading recompute reverts the state change.
func (s *Service) ExecuteTransition(ctx context.Context, submissionID, transitionName, actor string) error {
	// Resolve the key outside the transaction; all state decisions happen
	// again on the locked rows inside.
	sub, err := s.store.Repos().Submissions.FindByID(ctx, submissionID)
	if err != nil {
		return err
	}
	wf, err := submission.WorkflowFor(sub.Obligation)
	if err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		siblings, err := r.Submissions.ListSiblingsForUpdate(ctx, sub.PartyID, sub.Obligation, sub.PeriodID)
		if err != nil {
			return err
		}
		var fresh *submission.Submission
		for _, sib := range siblings {
			if sib.ID == submissionID {
				fresh = sib
				break
			}
		}
		if fresh == nil {
			return errors.New(errors.ErrCodeSubmissionNotFound,
				"submission vanished while locking version group").WithDetail(submissionID)
		}

		t, err := wf.Resolve(fresh, transitionName)
		if err != nil {
			return err
		}

		from := fresh.State
		fresh.State = t.To

		switch {
		case t.BecomesCurrent:
			if err := s.becomeCurrent(ctx, r, wf, fresh, siblings); err != nil {
				return err
			}
		case t.LeavesCurrent:
			if err := s.leaveCurrent(ctx, r, wf, fresh, siblings); err != nil {
				return err
			}
		default:
			if err := r.Submissions.Update(ctx, fresh); err != nil {
				return err
			}
		}

		return r.Submissions.SaveEvent(ctx, submission.NewTransitionEvent(fresh, transitionName, from, t.To, actor))
	})

	outcome := "ok"
	if err != nil {
		if errors.IsValidation(err) {
			outcome = "rejected"
		} else {
			outcome = "error"
		}
	}
	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(string(sub.Obligation), transitionName, outcome).Inc()
	}
	return err
}

// becomeCurrent makes sub the authoritative version: every other
// non-editable sibling is superseded first, then sub's own flag is cleared,
// then aggregation is recomputed so it observes the fully-updated set of
// contributing submissions.
func (s *Service) becomeCurrent(ctx context.Context, r Repos, wf *submission.Workflow,
	sub *submission.Submission, siblings []*submission.Submission) error {

	for _, sib := range siblings {
		if sib.ID == sub.ID || wf.Editable[sib.State] || sib.FlagSuperseded {
			continue
		}
		sib.FlagSuperseded = true
		if err := r.Submissions.Update(ctx, sib); err != nil {
			return err
		}
	}

	sub.FlagSuperseded = false
	if sub.SubmittedAt == nil {
		now := time.Now().UTC()
		sub.SubmittedAt = &now
	}
	if err := r.Submissions.Update(ctx, sub); err != nil {
		return err
	}

	return s.engine.RecomputeForSubmission(ctx, dataAccess(r), sub)
}

// leaveCurrent handles recall: sub loses current status, and the most
// recent eligible prior version is promoted in its place.  If no eligible
// version exists, sub's aggregation contribution is purged rather than left
// stale.
func (s *Service) leaveCurrent(ctx context.Context, r Repos, wf *submission.Workflow,
	sub *submission.Submission, siblings []*submission.Submission) error {

	sub.FlagSuperseded = true
	if err := r.Submissions.Update(ctx, sub); err != nil {
		return err
	}

	candidates := make([]*submission.Submission, 0, len(siblings))
	for _, sib := range siblings {
		if sib.ID == sub.ID {
			continue
		}
		if sib.EligibleForPromotion(wf) {
			candidates = append(candidates, sib)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Version > candidates[j].Version
	})

	outcome := "purged"
	if len(candidates) > 0 {
		promoted := candidates[0]
		promoted.FlagSuperseded = false
		if err := r.Submissions.Update(ctx, promoted); err != nil {
			return err
		}
		outcome = "promoted"
		s.log.Info("prior version promoted to current",
			logging.String("submission", promoted.ID),
			logging.Int("version", promoted.Version))
		if err := s.engine.RecomputeForSubmission(ctx, dataAccess(r), promoted); err != nil {
			return err
		}
	}
	// Recompute the recalled submission's groups as well: with no promoted
	// successor this purges its contribution entirely; with one, any group
	// the successor does not report is rebuilt or deleted.
	if err := s.engine.RecomputeForSubmission(ctx, dataAccess(r), sub); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.PromotionsTotal.WithLabelValues(string(sub.Obligation), outcome).Inc()
	}
	return nil
}

// AssessValidity sets the tri-state flag_valid on a submission.  Assessment
// is a secretariat act on a non-editable version; the finalize guards of
// the Article-7 workflows read this flag.
func (s *Service) AssessValidity(ctx context.Context, submissionID string, valid bool) error {
	repos := s.store.Repos()
	sub, err := repos.Submissions.FindByID(ctx, submissionID)
	if err != nil {
		return err
	}
	wf, err := submission.WorkflowFor(sub.Obligation)
	if err != nil {
		return err
	}
	if wf.Editable[sub.State] {
		return errors.New(errors.ErrCodeNotEditable,
			"validity cannot be assessed while the submission is in data entry")
	}
	sub.FlagValid = &valid
	return repos.Submissions.Update(ctx, sub)
}

// AvailableTransitions lists the transitions currently executable on a
// submission, for the excluded admin layer.
func (s *Service) AvailableTransitions(ctx context.Context, submissionID string) ([]string, error) {
	sub, err := s.store.Repos().Submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	wf, err := submission.WorkflowFor(sub.Obligation)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, t := range wf.AvailableTransitions(sub) {
		names = append(names, t.Name)
	}
	return names, nil
}

// DataAccess exposes the pool-bound repositories as an aggregation-engine
// bundle, for callers driving recomputes outside a lifecycle transition.
func (s *Service) DataAccess() appagg.DataAccess {
	return dataAccess(s.store.Repos())
}

func dataAccess(r Repos) appagg.DataAccess {
	return appagg.DataAccess{
		ProdCons:    r.ProdCons,
		RawData:     r.RawData,
		Submissions: r.Submissions,
	}
}
