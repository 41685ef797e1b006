// Package limits implements the limit calculator: for a (party, period,
// group, limit type) it resolves the control measures in force, multiplies
// the referenced baseline by the allowed fraction, and blends day-weighted
// when the schedule changes inside the period.
package limits

import (
	"context"

	"github.com/shopspring/decimal"

	appbaseline "github.com/mutisyag/ozone-sub000/internal/application/baseline"
	"github.com/mutisyag/ozone-sub000/internal/domain/compliance"
	"github.com/mutisyag/ozone-sub000/internal/domain/party"
	"github.com/mutisyag/ozone-sub000/internal/domain/period"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Parties whose Annex C/I limits are expressed to two decimal places; all
// other parties get one (decision XXVIII/2 low-volume reporting precision).
var hcfcTwoDecimalParties = map[string]bool{
	"BA": true, "BN": true, "CV": true, "DM": true, "EC": true,
	"MH": true, "FM": true, "NR": true, "NU": true, "PW": true,
	"ST": true, "SC": true, "SB": true, "TL": true, "TO": true,
	"TV": true, "VU": true,
}

// Calculator derives production, consumption and BDN limits.
type Calculator struct {
	parties   party.Repository
	periods   period.Repository
	baselines *appbaseline.Calculator
	log       logging.Logger
	metrics   *prometheus.Metrics
}

// NewCalculator constructs a limit calculator on top of the baseline
// calculator.
func NewCalculator(parties party.Repository, periods period.Repository,
	baselines *appbaseline.Calculator, log logging.Logger,
	metrics *prometheus.Metrics) *Calculator {
	return &Calculator{
		parties:   parties,
		periods:   periods,
		baselines: baselines,
		log:       log.Named("limits"),
		metrics:   metrics,
	}
}

// GetLimit computes one limit with a fresh baseline run.  A nil result means
// no limit applies: no control measure is in force, or the party/limit-type
// combination is structurally exempt.  A party whose baseline is absent but
// whose control measure is in force gets a zero limit, not an absent one.
func (c *Calculator) GetLimit(ctx context.Context, lt treaty.LimitType,
	group treaty.GroupID, p *party.Party, per *period.ReportingPeriod) (*decimal.Decimal, error) {
	return c.getLimit(ctx, c.baselines.NewRun(), lt, group, p, per)
}

func (c *Calculator) getLimit(ctx context.Context, run *appbaseline.Run,
	lt treaty.LimitType, group treaty.GroupID, p *party.Party,
	per *period.ReportingPeriod) (*decimal.Decimal, error) {

	// The bloc aggregate produces nothing itself; its member states consume
	// through the bloc, not nationally.
	if p.IsEU() && lt != treaty.LimitConsumption {
		return nil, nil
	}
	if lt == treaty.LimitConsumption {
		h, err := c.historyFor(ctx, p, per)
		if err != nil {
			return nil, err
		}
		if h != nil && h.IsEUMember {
			return nil, nil
		}
	}

	partyType, err := c.classify(ctx, p, per)
	if err != nil {
		return nil, err
	}
	measures, err := c.periods.ControlMeasures(ctx, group, partyType, lt, per)
	if err != nil {
		return nil, err
	}
	switch len(measures) {
	case 0:
		return nil, nil
	case 1:
		b, err := c.baselineFor(ctx, run, measures[0].BaselineType, group, p)
		if err != nil {
			return nil, err
		}
		v := c.round(b.Mul(measures[0].AllowedFraction), group, p)
		return &v, nil
	case 2:
		v, err := c.blend(ctx, run, measures, group, p, per)
		if err != nil {
			return nil, err
		}
		rounded := c.round(v, group, p)
		return &rounded, nil
	default:
		return nil, errors.New(errors.ErrCodeControlMeasure,
			"more than two control measures in force within one period").
			WithDetail("group " + string(group) + ", period " + per.Name)
	}
}

// blend day-weights two consecutive control measures across the period:
// (days1*baseline1*fraction1 + days2*baseline2*fraction2) / totalDays.
// The denominator is the period's full inclusive day count, so days the
// schedule leaves uncovered contribute a zero allowance.
func (c *Calculator) blend(ctx context.Context, run *appbaseline.Run,
	measures []*period.ControlMeasure, group treaty.GroupID, p *party.Party,
	per *period.ReportingPeriod) (decimal.Decimal, error) {

	total := treaty.Zero
	for _, m := range measures {
		d := m.DaysWithin(per)
		if d == 0 {
			continue
		}
		b, err := c.baselineFor(ctx, run, m.BaselineType, group, p)
		if err != nil {
			return treaty.Zero, err
		}
		total = total.Add(decimal.NewFromInt(int64(d)).Mul(b).Mul(m.AllowedFraction))
	}
	return total.Div(decimal.NewFromInt(int64(per.Days()))), nil
}

// baselineFor resolves the measure's baseline through the run.  Annex C
// groups II and III carry a synthetic zero baseline (phase-out from the
// start), and any other absent baseline also yields zero here: the control
// measure is in force, so the limit exists and is zero.
func (c *Calculator) baselineFor(ctx context.Context, run *appbaseline.Run,
	bt treaty.BaselineTypeName, group treaty.GroupID, p *party.Party) (decimal.Decimal, error) {

	if group == treaty.GroupCII || group == treaty.GroupCIII {
		return treaty.Zero, nil
	}
	b, err := run.GetBaseline(ctx, bt, group, p)
	if err != nil {
		return treaty.Zero, err
	}
	if b == nil {
		return treaty.Zero, nil
	}
	return *b, nil
}

// round applies the per-group reporting precision.
func (c *Calculator) round(v decimal.Decimal, group treaty.GroupID, p *party.Party) decimal.Decimal {
	switch {
	case group == treaty.GroupF:
		return treaty.RoundHalfUp(v, 0)
	case group == treaty.GroupCI && hcfcTwoDecimalParties[p.Abbr]:
		return treaty.RoundHalfUp(v, 2)
	default:
		return treaty.RoundHalfUp(v, 1)
	}
}

// ComputeForPeriod derives every applicable limit for every party in one
// period, sharing a single baseline run across the batch.
func (c *Calculator) ComputeForPeriod(ctx context.Context,
	per *period.ReportingPeriod) ([]*compliance.Limit, error) {

	parties, err := c.parties.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	run := c.baselines.NewRun()
	var out []*compliance.Limit
	for _, p := range parties {
		for _, group := range treaty.AllGroups {
			for _, lt := range treaty.AllLimitTypes {
				v, err := c.getLimit(ctx, run, lt, group, p, per)
				if err != nil {
					if c.metrics != nil {
						c.metrics.LimitRunsTotal.WithLabelValues(string(lt), "error").Inc()
					}
					return nil, err
				}
				if v == nil {
					continue
				}
				if c.metrics != nil {
					c.metrics.LimitRunsTotal.WithLabelValues(string(lt), "ok").Inc()
				}
				out = append(out, &compliance.Limit{
					PartyID:   p.ID,
					PeriodID:  per.ID,
					GroupID:   group,
					LimitType: lt,
					Value:     *v,
				})
			}
		}
	}
	c.log.Info("limit batch computed",
		logging.String("period", per.Name),
		logging.Int("limits", len(out)))
	return out, nil
}

// classify resolves the party classification in force for the period.
func (c *Calculator) classify(ctx context.Context, p *party.Party,
	per *period.ReportingPeriod) (treaty.PartyType, error) {
	h, err := c.historyFor(ctx, p, per)
	if err != nil {
		return treaty.PartyTypeNA5, err
	}
	if h != nil && h.IsArticle5 {
		return treaty.PartyTypeA5, nil
	}
	return treaty.PartyTypeNA5, nil
}

func (c *Calculator) historyFor(ctx context.Context, p *party.Party,
	per *period.ReportingPeriod) (*party.History, error) {
	h, err := c.parties.HistoryFor(ctx, p.ID, per.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}
