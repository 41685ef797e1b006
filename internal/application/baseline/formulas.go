package baseline

import (
	"context"

	"github.com/shopspring/decimal"

	domagg "github.com/mutisyag/ozone-sub000/internal/domain/aggregation"
	"github.com/mutisyag/ozone-sub000/internal/domain/party"
	"github.com/mutisyag/ozone-sub000/internal/domain/period"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Source reporting periods per group.  Non-Article-5 baselines are single
// treaty base years; Article-5 baselines are multi-year averages.
var (
	na5SourcePeriods = map[treaty.GroupID][]string{
		treaty.GroupAI:   {"1986"},
		treaty.GroupAII:  {"1986"},
		treaty.GroupBI:   {"1989"},
		treaty.GroupBII:  {"1989"},
		treaty.GroupBIII: {"1989"},
		treaty.GroupEI:   {"1991"},
	}
	a5SourcePeriods = map[treaty.GroupID][]string{
		treaty.GroupAI:   {"1995", "1996", "1997"},
		treaty.GroupAII:  {"1995", "1996", "1997"},
		treaty.GroupBI:   {"1998", "1999", "2000"},
		treaty.GroupBII:  {"1998", "1999", "2000"},
		treaty.GroupBIII: {"1998", "1999", "2000"},
		treaty.GroupCI:   {"2009", "2010"},
		treaty.GroupEI:   {"1995", "1996", "1997", "1998"},
	}

	// bdnSourcePeriods are the basic-domestic-needs allowance windows: the
	// treaty expresses the allowance as the annual average of production over
	// these years, the same window for both party classifications.  Annex C
	// and F carry no BDN window; their allowances are fractions of the
	// production baseline and live entirely in the control-measure schedule.
	bdnSourcePeriods = map[treaty.GroupID][]string{
		treaty.GroupAI:   {"1995", "1996", "1997"},
		treaty.GroupAII:  {"1995", "1996", "1997"},
		treaty.GroupBI:   {"1998", "1999", "2000"},
		treaty.GroupBII:  {"1998", "1999", "2000"},
		treaty.GroupBIII: {"1998", "1999", "2000"},
		treaty.GroupEI:   {"1995", "1996", "1997", "1998"},
	}
)

// Annex F formula windows and HCFC percentage components.  The later-start
// country groups are fixed treaty lists.
var (
	hfcNA5Group2 = map[string]bool{
		"BY": true, "KZ": true, "RU": true, "TJ": true, "UZ": true,
	}
	hfcA5Group2 = map[string]bool{
		"BH": true, "IN": true, "IR": true, "IQ": true, "KW": true,
		"OM": true, "PK": true, "QA": true, "SA": true, "AE": true,
	}

	pctNA5Group1 = decimal.RequireFromString("0.15")
	pctNA5Group2 = decimal.RequireFromString("0.25")
	pctA5        = decimal.RequireFromString("0.65")

	cfcShare = decimal.RequireFromString("0.028")
)

// compositePrecision is the decimal precision each component of a composite
// formula is rounded to before summation.
const compositePrecision int32 = 5

// windowed computes the plain lookup / average baselines.  Non-Article-5
// types read a single treaty base year; Article-5 types average their window.
// A missing period value means no baseline.
func (r *Run) windowed(ctx context.Context, bt treaty.BaselineTypeName,
	group treaty.GroupID, p *party.Party) (*decimal.Decimal, error) {

	names, ok := sourcePeriodsFor(bt, group)
	if !ok {
		return nil, nil
	}
	if isNA5Type(bt) {
		return r.singleValue(ctx, p, names, group, bt.IsProduction(), bt.IsGWP())
	}
	return r.averagedValue(ctx, p, names, group, bt.IsProduction(), bt.IsGWP())
}

// bdn computes the basic-domestic-needs baselines: the averaged production
// over the group's allowance window, on the ODP basis.
func (r *Run) bdn(ctx context.Context, group treaty.GroupID, p *party.Party) (*decimal.Decimal, error) {
	names, ok := bdnSourcePeriods[group]
	if !ok {
		return nil, nil
	}
	return r.averagedValue(ctx, p, names, group, true, false)
}

func sourcePeriodsFor(bt treaty.BaselineTypeName, group treaty.GroupID) ([]string, bool) {
	table := a5SourcePeriods
	if isNA5Type(bt) {
		table = na5SourcePeriods
	}
	names, ok := table[group]
	return names, ok
}

// c1Composite computes the non-Article-5 Annex C/I baselines: the 1989 HCFC
// figure plus 2.8% of the 1989 CFC (Annex A/I) figure, each component
// rounded before summing.  The production baseline is the average of the
// production-basis and consumption-basis composites.
func (r *Run) c1Composite(ctx context.Context, bt treaty.BaselineTypeName,
	p *party.Party) (*decimal.Decimal, error) {

	gwp := bt.IsGWP()

	cons, err := r.c1Component(ctx, p, false, gwp)
	if err != nil {
		return nil, err
	}
	if !bt.IsProduction() {
		if cons == nil {
			return nil, nil
		}
		// GWP consumption baselines of the bloc aggregate also carry the
		// figures of member states that joined after the base year, which
		// the aggregate's own historical rows predate.
		if gwp && p.IsEU() {
			extra, err := r.lateMemberC1(ctx, p)
			if err != nil {
				return nil, err
			}
			v := cons.Add(extra)
			return &v, nil
		}
		return cons, nil
	}

	prod, err := r.c1Component(ctx, p, true, gwp)
	if err != nil {
		return nil, err
	}
	if prod == nil || cons == nil {
		return nil, nil
	}
	avg := treaty.RoundHalfUp(prod.Add(*cons).Div(decimal.NewFromInt(2)),
		treaty.MaxPrecision(*prod, *cons))
	return &avg, nil
}

// c1Component builds one basis of the 1989 composite:
// HCFC_1989 + 0.028 * CFC_1989, components rounded first.
func (r *Run) c1Component(ctx context.Context, p *party.Party,
	production, gwp bool) (*decimal.Decimal, error) {

	hcfc, err := r.sourceValue(ctx, p, "1989", treaty.GroupCI, production, gwp)
	if err != nil {
		return nil, err
	}
	cfc, err := r.sourceValue(ctx, p, "1989", treaty.GroupAI, production, gwp)
	if err != nil {
		return nil, err
	}
	if hcfc == nil {
		return nil, nil
	}
	total := treaty.RoundHalfUp(*hcfc, compositePrecision)
	if cfc != nil {
		total = total.Add(treaty.RoundHalfUp(cfc.Mul(cfcShare), compositePrecision))
	}
	return &total, nil
}

// lateMemberC1 sums the consumption-basis composites of current bloc
// members whose history at the base year shows them outside the bloc.
func (r *Run) lateMemberC1(ctx context.Context, eu *party.Party) (decimal.Decimal, error) {
	members, err := r.members(ctx, eu)
	if err != nil {
		return treaty.Zero, err
	}
	base, err := r.periodByName(ctx, "1989")
	if err != nil {
		return treaty.Zero, err
	}

	total := treaty.Zero
	for _, m := range members {
		h, err := r.history(ctx, m.ID, base.ID)
		if err != nil {
			return treaty.Zero, err
		}
		if h != nil && h.IsEUMember {
			continue
		}
		comp, err := r.c1Component(ctx, m, false, true)
		if err != nil {
			return treaty.Zero, err
		}
		if comp != nil {
			total = total.Add(*comp)
		}
	}
	return total, nil
}

// annexF computes the HFC baselines: the average of the formula window's
// CO2-equivalent values plus a percentage of the party's C/I baseline on
// the same basis.  The window and percentage depend on the party's
// classification and on the fixed later-start country lists.
func (r *Run) annexF(ctx context.Context, bt treaty.BaselineTypeName,
	p *party.Party) (*decimal.Decimal, error) {

	var (
		window []string
		pct    decimal.Decimal
		ciType treaty.BaselineTypeName
	)
	switch {
	case isNA5Type(bt):
		// Both non-Article-5 groups average 2011-2013; the later-start
		// countries differ only in the HCFC percentage (25% vs 15%).
		window, pct = []string{"2011", "2012", "2013"}, pctNA5Group1
		if hfcNA5Group2[p.Abbr] {
			pct = pctNA5Group2
		}
	case hfcA5Group2[p.Abbr]:
		window, pct = []string{"2024", "2025", "2026"}, pctA5
	default:
		window, pct = []string{"2020", "2021", "2022"}, pctA5
	}
	switch {
	case isNA5Type(bt) && bt.IsProduction():
		ciType = treaty.BaselineNA5ProdGWP
	case isNA5Type(bt):
		ciType = treaty.BaselineNA5ConsGWP
	case bt.IsProduction():
		ciType = treaty.BaselineA5ProdGWP
	default:
		ciType = treaty.BaselineA5ConsGWP
	}

	// Annex F quantities are CO2-equivalent regardless of which type name
	// the baseline is filed under.
	hfcAvg, err := r.averagedValue(ctx, p, window, treaty.GroupF, bt.IsProduction(), true)
	if err != nil {
		return nil, err
	}
	if hfcAvg == nil {
		return nil, nil
	}

	ci, err := r.GetBaseline(ctx, ciType, treaty.GroupCI, p)
	if err != nil {
		return nil, err
	}

	total := treaty.RoundHalfUp(*hfcAvg, compositePrecision)
	if ci != nil {
		total = total.Add(treaty.RoundHalfUp(ci.Mul(pct), compositePrecision))
	}
	return &total, nil
}

// singleValue is the single-base-year source function.  Receiving anything
// but exactly one source period is a formula-table defect and fails loudly
// rather than silently averaging.
func (r *Run) singleValue(ctx context.Context, p *party.Party, periodNames []string,
	group treaty.GroupID, production, gwp bool) (*decimal.Decimal, error) {

	if len(periodNames) != 1 {
		return nil, errors.New(errors.ErrCodeBadSourcePeriodCount,
			"single-period source function requires exactly one source period")
	}
	return r.sourceValue(ctx, p, periodNames[0], group, production, gwp)
}

// sourceValue fetches one historical calculated total.
func (r *Run) sourceValue(ctx context.Context, p *party.Party, periodName string,
	group treaty.GroupID, production, gwp bool) (*decimal.Decimal, error) {

	row, err := r.prodConsFor(ctx, p.ID, periodName, group)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	switch {
	case production && gwp:
		return row.CalcProductionGWP, nil
	case production:
		return row.CalcProduction, nil
	case gwp:
		return row.CalcConsumptionGWP, nil
	default:
		return row.CalcConsumption, nil
	}
}

// averagedValue averages the source values over several periods, rounding
// half-up at the maximum precision among them.  Any missing period means no
// baseline.
func (r *Run) averagedValue(ctx context.Context, p *party.Party, periodNames []string,
	group treaty.GroupID, production, gwp bool) (*decimal.Decimal, error) {

	if len(periodNames) < 2 {
		return nil, errors.New(errors.ErrCodeBadSourcePeriodCount,
			"average source function requires at least two source periods")
	}
	values := make([]decimal.Decimal, 0, len(periodNames))
	for _, name := range periodNames {
		v, err := r.sourceValue(ctx, p, name, group, production, gwp)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		values = append(values, *v)
	}

	sum := treaty.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	avg := treaty.RoundHalfUp(sum.Div(decimal.NewFromInt(int64(len(values)))),
		treaty.MaxPrecision(values...))
	return &avg, nil
}

func (r *Run) prodConsFor(ctx context.Context, partyID int64, periodName string,
	group treaty.GroupID) (*domagg.ProdCons, error) {

	key := pcKey{partyID, periodName, group}
	if row, ok := r.prodcons[key]; ok {
		return row, nil
	}
	per, err := r.periodByName(ctx, periodName)
	if err != nil {
		return nil, err
	}
	row, err := r.c.prodcons.Find(ctx, partyID, per.ID, group)
	if err != nil {
		if errors.IsNotFound(err) {
			r.prodcons[key] = nil
			return nil, nil
		}
		return nil, err
	}
	r.prodcons[key] = row
	return row, nil
}

func (r *Run) periodByName(ctx context.Context, name string) (*period.ReportingPeriod, error) {
	if per, ok := r.periods[name]; ok {
		return per, nil
	}
	per, err := r.c.periods.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	r.periods[name] = per
	return per, nil
}

func (r *Run) members(ctx context.Context, eu *party.Party) ([]*party.Party, error) {
	if r.euMembers != nil {
		return r.euMembers, nil
	}
	members, err := r.c.parties.ListMembers(ctx, eu.ID)
	if err != nil {
		return nil, err
	}
	r.euMembers = members
	return r.euMembers, nil
}
