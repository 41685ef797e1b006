package reconciliation

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
	applimits "github.com/mutisyag/ozone-sub000/internal/application/limits"
	domagg "github.com/mutisyag/ozone-sub000/internal/domain/aggregation"
	"github.com/mutisyag/ozone-sub000/internal/domain/compliance"
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

type fakePeriodRepo struct {
	byName   map[string]*period.ReportingPeriod
	measures []*period.ControlMeasure
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
	for _, m := range f.measures {
		if m.GroupID != group || m.PartyType != partyType || m.LimitType != limitType {
			continue
		}
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

type blKey struct {
	partyID int64
	group   treaty.GroupID
	bt      treaty.BaselineTypeName
}

type fakeBaselineRepo struct {
	rows map[blKey]*compliance.Baseline
}

func (f *fakeBaselineRepo) Find(ctx context.Context, partyID int64, group treaty.GroupID, bt treaty.BaselineTypeName) (*compliance.Baseline, error) {
	b, ok := f.rows[blKey{partyID, group, bt}]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "baseline not found")
	}
	return b, nil
}

func (f *fakeBaselineRepo) ListByParty(ctx context.Context, partyID int64) ([]*compliance.Baseline, error) {
	return nil, nil
}

func (f *fakeBaselineRepo) ListAll(ctx context.Context) ([]*compliance.Baseline, error) {
	var out []*compliance.Baseline
	for _, b := range f.rows {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBaselineRepo) Upsert(ctx context.Context, b *compliance.Baseline) error {
	f.rows[blKey{b.PartyID, b.GroupID, b.BaselineType}] = b
	return nil
}

func (f *fakeBaselineRepo) Delete(ctx context.Context, partyID int64, group treaty.GroupID, bt treaty.BaselineTypeName) error {
	delete(f.rows, blKey{partyID, group, bt})
	return nil
}

type limKey struct {
	partyID  int64
	periodID int64
	group    treaty.GroupID
	lt       treaty.LimitType
}

type fakeLimitRepo struct {
	rows map[limKey]*compliance.Limit
}

func (f *fakeLimitRepo) Find(ctx context.Context, partyID, periodID int64, group treaty.GroupID, lt treaty.LimitType) (*compliance.Limit, error) {
	l, ok := f.rows[limKey{partyID, periodID, group, lt}]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "limit not found")
	}
	return l, nil
}

func (f *fakeLimitRepo) ListByPeriod(ctx context.Context, periodID int64) ([]*compliance.Limit, error) {
	return nil, nil
}

func (f *fakeLimitRepo) ListAll(ctx context.Context) ([]*compliance.Limit, error) {
	var out []*compliance.Limit
	for _, l := range f.rows {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLimitRepo) Upsert(ctx context.Context, l *compliance.Limit) error {
	f.rows[limKey{l.PartyID, l.PeriodID, l.GroupID, l.LimitType}] = l
	return nil
}

func (f *fakeLimitRepo) Delete(ctx context.Context, partyID, periodID int64, group treaty.GroupID, lt treaty.LimitType) error {
	delete(f.rows, limKey{partyID, periodID, group, lt})
	return nil
}

type fixture struct {
	svc     *Service
	blRepo  *fakeBaselineRepo
	limRepo *fakeLimitRepo
}

// newFixture wires one non-Article-5 party whose 1986 consumption of 100
// produces exactly one baseline (NA5Cons AI = 100) and, through a 50%
// control measure in force from 2019, exactly one limit (2019 consumption
// = 50).
func newFixture(t *testing.T) *fixture {
	t.Helper()

	us := &party.Party{ID: 1, Abbr: "US", Name: "United States"}
	parties := &fakePartyRepo{
		parties:   map[int64]*party.Party{1: us},
		histories: map[[2]int64]*party.History{},
	}

	periods := &fakePeriodRepo{byName: map[string]*period.ReportingPeriod{}}
	for _, y := range []int{1986, 1989, 1991, 1995, 1996, 1997, 1998, 1999, 2000, 2011, 2012, 2013, 2019} {
		periods.byName[strconv.Itoa(y)] = &period.ReportingPeriod{
			ID:        int64(y),
			Name:      strconv.Itoa(y),
			StartDate: time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(y, 12, 31, 0, 0, 0, 0, time.UTC),
		}
	}
	periods.measures = []*period.ControlMeasure{{
		GroupID:         treaty.GroupAI,
		PartyType:       treaty.PartyTypeNA5,
		BaselineType:    treaty.BaselineNA5Cons,
		LimitType:       treaty.LimitConsumption,
		StartDate:       time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		AllowedFraction: d("0.5"),
	}}

	parties.histories[[2]int64{1, 2019}] = &party.History{PartyType: treaty.PartyTypeNA5}

	prodcons := &fakeProdConsRepo{rows: map[rowKey]*domagg.ProdCons{}}
	prodcons.rows[rowKey{1, 1986, treaty.GroupAI}] = &domagg.ProdCons{
		PartyID: 1, PeriodID: 1986, GroupID: treaty.GroupAI,
		CalcConsumption: dp("100"),
	}

	baselines := appbaseline.NewCalculator(parties, periods, prodcons, logging.Nop(), nil)
	limits := applimits.NewCalculator(parties, periods, baselines, logging.Nop(), nil)
	blRepo := &fakeBaselineRepo{rows: map[blKey]*compliance.Baseline{}}
	limRepo := &fakeLimitRepo{rows: map[limKey]*compliance.Limit{}}

	svc := NewService(periods, baselines, limits, blRepo, limRepo, logging.Nop(), nil)
	return &fixture{svc: svc, blRepo: blRepo, limRepo: limRepo}
}

func storeExpected(fx *fixture) {
	fx.blRepo.rows[blKey{1, treaty.GroupAI, treaty.BaselineNA5Cons}] = &compliance.Baseline{
		PartyID: 1, GroupID: treaty.GroupAI,
		BaselineType: treaty.BaselineNA5Cons, Value: d("100"),
	}
	fx.limRepo.rows[limKey{1, 2019, treaty.GroupAI, treaty.LimitConsumption}] = &compliance.Limit{
		PartyID: 1, PeriodID: 2019, GroupID: treaty.GroupAI,
		LimitType: treaty.LimitConsumption, Value: d("50"),
	}
}

func TestReconcileReportsMissingRows(t *testing.T) {
	fx := newFixture(t)

	report, err := fx.svc.Run(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, report.Baselines, 1)
	require.Len(t, report.Limits, 1)

	b := report.Baselines[0]
	assert.Equal(t, CategoryMissing, b.Category)
	assert.Nil(t, b.Stored)
	require.NotNil(t, b.Computed)
	assert.True(t, b.Computed.Equal(d("100")))

	l := report.Limits[0]
	assert.Equal(t, CategoryMissing, l.Category)
	assert.Equal(t, int64(2019), l.PeriodID)
	require.NotNil(t, l.Computed)
	assert.True(t, l.Computed.Equal(d("50")))

	// Dry run: nothing persisted.
	assert.False(t, report.Applied)
	assert.Empty(t, fx.blRepo.rows)
	assert.Empty(t, fx.limRepo.rows)
}

func TestReconcileAgreementIsEmpty(t *testing.T) {
	fx := newFixture(t)
	storeExpected(fx)

	report, err := fx.svc.Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, report.Empty())
}

func TestReconcileReportsDifferentValues(t *testing.T) {
	fx := newFixture(t)
	storeExpected(fx)
	fx.blRepo.rows[blKey{1, treaty.GroupAI, treaty.BaselineNA5Cons}].Value = d("99")

	report, err := fx.svc.Run(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, report.Baselines, 1)
	b := report.Baselines[0]
	assert.Equal(t, CategoryDifferent, b.Category)
	require.NotNil(t, b.Stored)
	require.NotNil(t, b.Computed)
	assert.True(t, b.Stored.Equal(d("99")))
	assert.True(t, b.Computed.Equal(d("100")))
	assert.Empty(t, report.Limits)
}

func TestReconcileReportsObsoleteRows(t *testing.T) {
	fx := newFixture(t)
	storeExpected(fx)
	// A leftover from a formula the reference data no longer supports.
	fx.blRepo.rows[blKey{1, treaty.GroupEI, treaty.BaselineNA5Cons}] = &compliance.Baseline{
		PartyID: 1, GroupID: treaty.GroupEI,
		BaselineType: treaty.BaselineNA5Cons, Value: d("7"),
	}

	report, err := fx.svc.Run(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, report.Baselines, 1)
	b := report.Baselines[0]
	assert.Equal(t, CategoryObsolete, b.Category)
	assert.Equal(t, treaty.GroupEI, b.GroupID)
	assert.Nil(t, b.Computed)

	// Dry run keeps the obsolete row.
	_, still := fx.blRepo.rows[blKey{1, treaty.GroupEI, treaty.BaselineNA5Cons}]
	assert.True(t, still)
}

func TestReconcileApplyRepairsStorage(t *testing.T) {
	fx := newFixture(t)
	fx.blRepo.rows[blKey{1, treaty.GroupEI, treaty.BaselineNA5Cons}] = &compliance.Baseline{
		PartyID: 1, GroupID: treaty.GroupEI,
		BaselineType: treaty.BaselineNA5Cons, Value: d("7"),
	}
	fx.limRepo.rows[limKey{1, 2019, treaty.GroupAI, treaty.LimitConsumption}] = &compliance.Limit{
		PartyID: 1, PeriodID: 2019, GroupID: treaty.GroupAI,
		LimitType: treaty.LimitConsumption, Value: d("48"),
	}

	report, err := fx.svc.Run(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, report.Applied)
	assert.False(t, report.Empty())

	// Missing baseline inserted, obsolete one removed, stale limit repaired.
	b, ok := fx.blRepo.rows[blKey{1, treaty.GroupAI, treaty.BaselineNA5Cons}]
	require.True(t, ok)
	assert.True(t, b.Value.Equal(d("100")))
	_, gone := fx.blRepo.rows[blKey{1, treaty.GroupEI, treaty.BaselineNA5Cons}]
	assert.False(t, gone)
	l := fx.limRepo.rows[limKey{1, 2019, treaty.GroupAI, treaty.LimitConsumption}]
	require.NotNil(t, l)
	assert.True(t, l.Value.Equal(d("50")))

	// A second pass finds nothing left to fix.
	again, err := fx.svc.Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, again.Empty())
}
