package limits

import (
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbaseline "github.com/mutisyag/ozone-sub000/internal/application/baseline"
	domagg "github.com/mutisyag/ozone-sub000/internal/domain/aggregation"
	"github.com/mutisyag/ozone-sub000/internal/domain/party"
	"github.com/mutisyag/ozone-sub000/internal/domain/period"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func date(y, m, day int) time.Time {
	return time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)
}

type fakePartyRepo struct {
	parties   map[int64]*party.Party
	histories map[[2]int64]*party.History
}

func (f *fakePartyRepo) FindByAbbr(ctx context.Context, abbr string) (*party.Party, error) {
	for _, p := range f.parties {
		if p.Abbr == abbr {
			return p, nil
		}
	}
	return nil, errors.New(errors.ErrCodePartyNotFound, "party not found")
}

func (f *fakePartyRepo) FindByID(ctx context.Context, id int64) (*party.Party, error) {
	p, ok := f.parties[id]
	if !ok {
		return nil, errors.New(errors.ErrCodePartyNotFound, "party not found")
	}
	return p, nil
}

func (f *fakePartyRepo) ListAll(ctx context.Context) ([]*party.Party, error) {
	var out []*party.Party
	for _, p := range f.parties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePartyRepo) ListMembers(ctx context.Context, parentID int64) ([]*party.Party, error) {
	return nil, nil
}

func (f *fakePartyRepo) HistoryFor(ctx context.Context, partyID, periodID int64) (*party.History, error) {
	h, ok := f.histories[[2]int64{partyID, periodID}]
	if !ok {
		return nil, errors.New(errors.ErrCodeHistoryMissing, "no history")
	}
	return h, nil
}

type measKey struct {
	group     treaty.GroupID
	partyType treaty.PartyType
	limitType treaty.LimitType
}

type fakePeriodRepo struct {
	byName   map[string]*period.ReportingPeriod
	measures map[measKey][]*period.ControlMeasure
}

func newFakePeriodRepo(years ...int) *fakePeriodRepo {
	f := &fakePeriodRepo{
		byName:   map[string]*period.ReportingPeriod{},
		measures: map[measKey][]*period.ControlMeasure{},
	}
	for _, y := range years {
		f.byName[strconv.Itoa(y)] = &period.ReportingPeriod{
			ID:        int64(y),
			Name:      strconv.Itoa(y),
			StartDate: date(y, 1, 1),
			EndDate:   date(y, 12, 31),
		}
	}
	return f
}

func (f *fakePeriodRepo) FindByName(ctx context.Context, name string) (*period.ReportingPeriod, error) {
	p, ok := f.byName[name]
	if !ok {
		return nil, errors.New(errors.ErrCodePeriodNotFound, "period not found")
	}
	return p, nil
}

func (f *fakePeriodRepo) FindByID(ctx context.Context, id int64) (*period.ReportingPeriod, error) {
	for _, p := range f.byName {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errors.New(errors.ErrCodePeriodNotFound, "period not found")
}

func (f *fakePeriodRepo) ListAll(ctx context.Context) ([]*period.ReportingPeriod, error) {
	var out []*period.ReportingPeriod
	for _, p := range f.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (f *fakePeriodRepo) ControlMeasures(ctx context.Context, group treaty.GroupID,
	partyType treaty.PartyType, limitType treaty.LimitType,
	p *period.ReportingPeriod) ([]*period.ControlMeasure, error) {

	var out []*period.ControlMeasure
	for _, m := range f.measures[measKey{group, partyType, limitType}] {
		if m.StartDate.After(p.EndDate) {
			continue
		}
		if m.EndDate != nil && m.EndDate.Before(p.StartDate) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakePeriodRepo) BaselineTypes(ctx context.Context) ([]*period.BaselineType, error) {
	return nil, nil
}

type rowKey struct {
	partyID  int64
	periodID int64
	group    treaty.GroupID
}

type fakeProdConsRepo struct {
	rows map[rowKey]*domagg.ProdCons
}

func (f *fakeProdConsRepo) seed(partyID int64, year int, group treaty.GroupID,
	prod, cons, prodGWP, consGWP *decimal.Decimal) {
	f.rows[rowKey{partyID, int64(year), group}] = &domagg.ProdCons{
		PartyID:            partyID,
		PeriodID:           int64(year),
		GroupID:            group,
		CalcProduction:     prod,
		CalcConsumption:    cons,
		CalcProductionGWP:  prodGWP,
		CalcConsumptionGWP: consGWP,
	}
}

func (f *fakeProdConsRepo) Find(ctx context.Context, partyID, periodID int64, group treaty.GroupID) (*domagg.ProdCons, error) {
	row, ok := f.rows[rowKey{partyID, periodID, group}]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "row not found")
	}
	return row, nil
}

func (f *fakeProdConsRepo) ListByPeriod(ctx context.Context, periodID int64) ([]*domagg.ProdCons, error) {
	return nil, nil
}

func (f *fakeProdConsRepo) ListByParty(ctx context.Context, partyID int64) ([]*domagg.ProdCons, error) {
	return nil, nil
}

func (f *fakeProdConsRepo) Upsert(ctx context.Context, row *domagg.ProdCons) error { return nil }

func (f *fakeProdConsRepo) Delete(ctx context.Context, partyID, periodID int64, group treaty.GroupID) error {
	return nil
}

type fixture struct {
	calc     *Calculator
	parties  *fakePartyRepo
	periods  *fakePeriodRepo
	prodcons *fakeProdConsRepo
	us       *party.Party
	per2019  *period.ReportingPeriod
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	us := &party.Party{ID: 1, Abbr: "US", Name: "United States"}
	parties := &fakePartyRepo{
		parties:   map[int64]*party.Party{1: us},
		histories: map[[2]int64]*party.History{},
	}
	periods := newFakePeriodRepo(1986, 1989, 1991, 2009, 2010, 2011, 2012, 2013, 2019)
	prodcons := &fakeProdConsRepo{rows: map[rowKey]*domagg.ProdCons{}}

	parties.histories[[2]int64{1, 2019}] = &party.History{
		PartyType: treaty.PartyTypeNA5, IsArticle5: false,
	}

	baselines := appbaseline.NewCalculator(parties, periods, prodcons, logging.Nop(), nil)
	calc := NewCalculator(parties, periods, baselines, logging.Nop(), nil)
	return &fixture{
		calc:     calc,
		parties:  parties,
		periods:  periods,
		prodcons: prodcons,
		us:       us,
		per2019:  periods.byName["2019"],
	}
}

func (fx *fixture) addMeasure(group treaty.GroupID, pt treaty.PartyType, lt treaty.LimitType,
	bt treaty.BaselineTypeName, fraction string, start time.Time, end *time.Time) {
	key := measKey{group, pt, lt}
	fx.periods.measures[key] = append(fx.periods.measures[key], &period.ControlMeasure{
		GroupID:         group,
		PartyType:       pt,
		BaselineType:    bt,
		LimitType:       lt,
		StartDate:       start,
		EndDate:         end,
		AllowedFraction: d(fraction),
	})
}

func TestLimitSingleMeasure(t *testing.T) {
	fx := newFixture(t)
	fx.prodcons.seed(1, 1986, treaty.GroupAI, nil, dp("100"), nil, nil)
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "0.5", date(2010, 1, 1), nil)

	got, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupAI, fx.us, fx.per2019)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(d("50")), "got %s", got)
}

func TestLimitNoMeasureInForce(t *testing.T) {
	fx := newFixture(t)
	fx.prodcons.seed(1, 1986, treaty.GroupAI, nil, dp("100"), nil, nil)

	got, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupAI, fx.us, fx.per2019)
	require.NoError(t, err)
	assert.Nil(t, got, "no measure means no limit, not zero")
}

func TestLimitMissingBaselineUnderMeasureIsZero(t *testing.T) {
	fx := newFixture(t)
	// No 1986 data at all, but the measure is in force.
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "0.5", date(2010, 1, 1), nil)

	got, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupAI, fx.us, fx.per2019)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsZero())
}

func TestLimitScheduleChangeBlendsDayWeighted(t *testing.T) {
	fx := newFixture(t)
	fx.prodcons.seed(1, 1986, treaty.GroupAI, nil, dp("100"), nil, nil)
	endA := date(2019, 7, 19)
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "1.0", date(2010, 1, 1), &endA)
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "0.65", date(2019, 7, 20), nil)

	got, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupAI, fx.us, fx.per2019)
	require.NoError(t, err)
	require.NotNil(t, got)
	// (200 days * 100 * 1.0 + 165 days * 100 * 0.65) / 365 = 84.178…
	assert.True(t, got.Equal(d("84.2")), "got %s", got)
}

func TestLimitBlendDividesByFullPeriod(t *testing.T) {
	fx := newFixture(t)
	fx.prodcons.seed(1, 1986, treaty.GroupAI, nil, dp("100"), nil, nil)
	endA := date(2019, 3, 31)
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "1.0", date(2010, 1, 1), &endA)
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "0.5", date(2019, 7, 20), nil)

	got, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupAI, fx.us, fx.per2019)
	require.NoError(t, err)
	require.NotNil(t, got)
	// The schedule leaves Apr-Jul 19 uncovered; those days allow nothing:
	// (90 days * 100 * 1.0 + 165 days * 100 * 0.5) / 365 = 47.26…
	assert.True(t, got.Equal(d("47.3")), "got %s", got)
}

func TestLimitMoreThanTwoMeasuresFails(t *testing.T) {
	fx := newFixture(t)
	fx.prodcons.seed(1, 1986, treaty.GroupAI, nil, dp("100"), nil, nil)
	for _, fraction := range []string{"1.0", "0.65", "0.5"} {
		fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitConsumption,
			treaty.BaselineNA5Cons, fraction, date(2010, 1, 1), nil)
	}

	_, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupAI, fx.us, fx.per2019)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeControlMeasure, errors.GetCode(err))
}

func TestLimitAnnexFRoundsToWholeTonnes(t *testing.T) {
	fx := newFixture(t)
	fx.prodcons.seed(1, 2011, treaty.GroupF, nil, nil, nil, dp("1000"))
	fx.prodcons.seed(1, 2012, treaty.GroupF, nil, nil, nil, dp("1100"))
	fx.prodcons.seed(1, 2013, treaty.GroupF, nil, nil, nil, dp("1200"))
	fx.addMeasure(treaty.GroupF, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "0.855", date(2019, 1, 1), nil)

	got, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupF, fx.us, fx.per2019)
	require.NoError(t, err)
	require.NotNil(t, got)
	// 1100 * 0.855 = 940.5, ties round away from zero.
	assert.True(t, got.Equal(d("941")), "got %s", got)
}

func TestLimitHCFCPrecisionDependsOnParty(t *testing.T) {
	fx := newFixture(t)
	nr := &party.Party{ID: 2, Abbr: "NR", Name: "Nauru"}
	cn := &party.Party{ID: 3, Abbr: "CN", Name: "China"}
	fx.parties.parties[2] = nr
	fx.parties.parties[3] = cn
	for _, id := range []int64{2, 3} {
		fx.parties.histories[[2]int64{id, 2019}] = &party.History{
			PartyType: treaty.PartyTypeA5, IsArticle5: true,
		}
		fx.prodcons.seed(id, 2009, treaty.GroupCI, nil, dp("10.123"), nil, nil)
		fx.prodcons.seed(id, 2010, treaty.GroupCI, nil, dp("10.456"), nil, nil)
	}
	fx.addMeasure(treaty.GroupCI, treaty.PartyTypeA5, treaty.LimitConsumption,
		treaty.BaselineA5Cons, "0.9", date(2015, 1, 1), nil)

	// Baseline for both: avg(10.123, 10.456) = 10.2895 → 10.290 at source
	// precision; times 0.9 = 9.261.
	low, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupCI, nr, fx.per2019)
	require.NoError(t, err)
	require.NotNil(t, low)
	assert.True(t, low.Equal(d("9.26")), "two decimals for listed parties, got %s", low)

	std, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupCI, cn, fx.per2019)
	require.NoError(t, err)
	require.NotNil(t, std)
	assert.True(t, std.Equal(d("9.3")), "one decimal otherwise, got %s", std)
}

func TestLimitPhaseOutOnlyGroupsGetZero(t *testing.T) {
	fx := newFixture(t)
	fx.addMeasure(treaty.GroupCII, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "0.2", date(2010, 1, 1), nil)

	got, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupCII, fx.us, fx.per2019)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsZero())
}

func TestLimitEUExemptions(t *testing.T) {
	fx := newFixture(t)
	eu := &party.Party{ID: 9, Abbr: "EU", Name: "European Union"}
	fr := &party.Party{ID: 10, Abbr: "FR", Name: "France"}
	fx.parties.parties[9] = eu
	fx.parties.parties[10] = fr
	fx.parties.histories[[2]int64{10, 2019}] = &party.History{
		PartyType: treaty.PartyTypeNA5, IsEUMember: true,
	}
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitProduction,
		treaty.BaselineNA5Prod, "0.5", date(2010, 1, 1), nil)
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "0.5", date(2010, 1, 1), nil)

	prod, err := fx.calc.GetLimit(context.Background(), treaty.LimitProduction,
		treaty.GroupAI, eu, fx.per2019)
	require.NoError(t, err)
	assert.Nil(t, prod, "the bloc aggregate has no production limit")

	cons, err := fx.calc.GetLimit(context.Background(), treaty.LimitConsumption,
		treaty.GroupAI, fr, fx.per2019)
	require.NoError(t, err)
	assert.Nil(t, cons, "member states have no national consumption limit")
}

func TestComputeForPeriodSharesOneRun(t *testing.T) {
	fx := newFixture(t)
	fx.prodcons.seed(1, 1986, treaty.GroupAI, dp("120"), dp("100"), nil, nil)
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitConsumption,
		treaty.BaselineNA5Cons, "0.5", date(2010, 1, 1), nil)
	fx.addMeasure(treaty.GroupAI, treaty.PartyTypeNA5, treaty.LimitProduction,
		treaty.BaselineNA5Prod, "0.5", date(2010, 1, 1), nil)

	got, err := fx.calc.ComputeForPeriod(context.Background(), fx.per2019)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byType := map[treaty.LimitType]decimal.Decimal{}
	for _, l := range got {
		assert.Equal(t, fx.per2019.ID, l.PeriodID)
		byType[l.LimitType] = l.Value
	}
	assert.True(t, byType[treaty.LimitProduction].Equal(d("60")))
	assert.True(t, byType[treaty.LimitConsumption].Equal(d("50")))
}
