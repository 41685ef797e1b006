// Package baseline implements the baseline calculator: for each
// (party, group, baseline type) it derives the historical reference quantity
// the party's calculated totals are compared against.
//
// Baseline types map to a list of source reporting periods and a source
// function.  Most are plain lookups or averages of historical ProdCons
// values; the BDN types average production over the basic-domestic-needs
// allowance windows, the Annex C/I types are the 1989 CFC/HCFC composite,
// and the Annex F types depend on the already-computed C/I baseline for the
// same basis, so C/I is always resolved before F within a run.
package baseline

import (
	"context"

	"github.com/shopspring/decimal"

	domagg "github.com/mutisyag/ozone-sub000/internal/domain/aggregation"
	"github.com/mutisyag/ozone-sub000/internal/domain/compliance"
	"github.com/mutisyag/ozone-sub000/internal/domain/party"
	"github.com/mutisyag/ozone-sub000/internal/domain/period"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Calculator derives baselines.  It is stateless; every computation happens
// through a Run, whose memo maps are scoped to one batch and discarded with
// it — they are never a durable source of truth across runs.
type Calculator struct {
	parties  party.Repository
	periods  period.Repository
	prodcons domagg.Repository
	log      logging.Logger
	metrics  *prometheus.Metrics
}

// NewCalculator constructs a baseline calculator.
func NewCalculator(parties party.Repository, periods period.Repository,
	prodcons domagg.Repository, log logging.Logger, metrics *prometheus.Metrics) *Calculator {
	return &Calculator{
		parties:  parties,
		periods:  periods,
		prodcons: prodcons,
		log:      log.Named("baseline"),
		metrics:  metrics,
	}
}

// GetBaseline computes a single baseline with a fresh, throwaway run.
// Returns nil (no baseline) when required historical data is missing or the
// type is structurally inapplicable to the group/party combination.
func (c *Calculator) GetBaseline(ctx context.Context, bt treaty.BaselineTypeName,
	group treaty.GroupID, p *party.Party) (*decimal.Decimal, error) {
	return c.NewRun().GetBaseline(ctx, bt, group, p)
}

// Run carries the per-batch memoization state.  Construct one per batch or
// reconciliation run and discard it afterwards.
type Run struct {
	c *Calculator

	prodcons  map[pcKey]*domagg.ProdCons
	baselines map[bKey]*decimal.Decimal
	periods   map[string]*period.ReportingPeriod
	euMembers []*party.Party
	histories map[histKey]*party.History
}

type pcKey struct {
	partyID int64
	period  string
	group   treaty.GroupID
}

type bKey struct {
	partyID int64
	group   treaty.GroupID
	bt      treaty.BaselineTypeName
}

type histKey struct {
	partyID  int64
	periodID int64
}

// NewRun constructs a run with empty memo maps.
func (c *Calculator) NewRun() *Run {
	return &Run{
		c:         c,
		prodcons:  map[pcKey]*domagg.ProdCons{},
		baselines: map[bKey]*decimal.Decimal{},
		periods:   map[string]*period.ReportingPeriod{},
		histories: map[histKey]*party.History{},
	}
}

// GetBaseline resolves one baseline within the run.  Results (including nil
// "no baseline" results) are memoized, which also serves the F→C/I
// dependency: whichever of the two is requested first forces the C/I value
// to be computed and reused.
func (r *Run) GetBaseline(ctx context.Context, bt treaty.BaselineTypeName,
	group treaty.GroupID, p *party.Party) (*decimal.Decimal, error) {

	key := bKey{p.ID, group, bt}
	if v, ok := r.baselines[key]; ok {
		return v, nil
	}

	v, err := r.compute(ctx, bt, group, p)
	if err != nil {
		if r.c.metrics != nil {
			r.c.metrics.BaselineRunsTotal.WithLabelValues(string(bt), "error").Inc()
		}
		return nil, err
	}
	if v != nil {
		floored := treaty.FloorZero(*v)
		v = &floored
	}
	r.baselines[key] = v
	if r.c.metrics != nil {
		r.c.metrics.BaselineRunsTotal.WithLabelValues(string(bt), "ok").Inc()
	}
	return v, nil
}

// compute dispatches to the formula for (bt, group).  Structural
// inapplicability returns (nil, nil); misconfiguration fails loudly.
func (r *Run) compute(ctx context.Context, bt treaty.BaselineTypeName,
	group treaty.GroupID, p *party.Party) (*decimal.Decimal, error) {

	// Annex C groups II and III have no baselines: their control measures
	// begin at full phase-out, so the baseline concept is definitionally
	// zero and handled by the limit calculator.
	if group == treaty.GroupCII || group == treaty.GroupCIII {
		return nil, nil
	}

	// The regional-bloc aggregate has no production figures of its own,
	// hence no production or BDN baseline of any type.
	if p.IsEU() && bt.IsProduction() {
		return nil, nil
	}

	switch {
	case bt == treaty.BaselineBDNNA5 || bt == treaty.BaselineBDNA5:
		return r.bdn(ctx, group, p)
	case group == treaty.GroupF:
		return r.annexF(ctx, bt, p)
	case group == treaty.GroupCI && isNA5Type(bt):
		return r.c1Composite(ctx, bt, p)
	default:
		return r.windowed(ctx, bt, group, p)
	}
}

// ComputeAll derives every applicable baseline for every party, C/I classes
// before Annex F.  The result contains only concrete values; absent
// baselines are simply not present.
func (c *Calculator) ComputeAll(ctx context.Context) ([]*compliance.Baseline, error) {
	parties, err := c.parties.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	run := c.NewRun()
	var out []*compliance.Baseline
	for _, p := range parties {
		isA5, err := run.isArticle5(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, bt := range applicableTypes(isA5) {
			for _, group := range treaty.AllGroups {
				v, err := run.GetBaseline(ctx, bt, group, p)
				if err != nil {
					return nil, err
				}
				if v == nil {
					continue
				}
				out = append(out, &compliance.Baseline{
					PartyID:      p.ID,
					GroupID:      group,
					BaselineType: bt,
					Value:        *v,
				})
			}
		}
	}
	c.log.Info("baseline batch computed",
		logging.Int("parties", len(parties)),
		logging.Int("baselines", len(out)))
	return out, nil
}

// applicableTypes lists the baseline types computed for a party of the
// given classification.
func applicableTypes(isA5 bool) []treaty.BaselineTypeName {
	if isA5 {
		return []treaty.BaselineTypeName{
			treaty.BaselineA5Prod, treaty.BaselineA5Cons,
			treaty.BaselineA5ProdGWP, treaty.BaselineA5ConsGWP,
			treaty.BaselineBDNA5,
		}
	}
	return []treaty.BaselineTypeName{
		treaty.BaselineNA5Prod, treaty.BaselineNA5Cons,
		treaty.BaselineNA5ProdGWP, treaty.BaselineNA5ConsGWP,
		treaty.BaselineBDNNA5,
	}
}

// isArticle5 resolves the party's classification from its most recent
// history entry.  Parties with no history default to non-Article-5.
func (r *Run) isArticle5(ctx context.Context, p *party.Party) (bool, error) {
	periods, err := r.c.periods.ListAll(ctx)
	if err != nil {
		return false, err
	}
	for i := len(periods) - 1; i >= 0; i-- {
		h, err := r.history(ctx, p.ID, periods[i].ID)
		if err != nil {
			return false, err
		}
		if h != nil {
			return h.IsArticle5, nil
		}
	}
	return false, nil
}

func isNA5Type(bt treaty.BaselineTypeName) bool {
	switch bt {
	case treaty.BaselineNA5Prod, treaty.BaselineNA5Cons,
		treaty.BaselineNA5ProdGWP, treaty.BaselineNA5ConsGWP, treaty.BaselineBDNNA5:
		return true
	}
	return false
}

func (r *Run) history(ctx context.Context, partyID, periodID int64) (*party.History, error) {
	key := histKey{partyID, periodID}
	if h, ok := r.histories[key]; ok {
		return h, nil
	}
	h, err := r.c.parties.HistoryFor(ctx, partyID, periodID)
	if err != nil {
		if errors.IsNotFound(err) {
			r.histories[key] = nil
			return nil, nil
		}
		return nil, err
	}
	r.histories[key] = h
	return h, nil
}
