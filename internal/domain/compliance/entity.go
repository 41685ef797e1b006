// Package compliance holds the Baseline and Limit rows the calculators
// produce.  Both are derived data: created, updated, and deleted only by
// their calculators' reconciliation runs, never by user input.
package compliance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Baseline is the historical reference quantity for (party, group, type).
// A nil value is never persisted: absence of a row means "no baseline".
type Baseline struct {
	ID           int64
	PartyID      int64
	GroupID      treaty.GroupID
	BaselineType treaty.BaselineTypeName
	Value        decimal.Decimal
}

// Limit is the legally allowed ceiling for (party, period, group, limitType).
// As with baselines, absence of a row means "no limit applies".
type Limit struct {
	ID        int64
	PartyID   int64
	PeriodID  int64
	GroupID   treaty.GroupID
	LimitType treaty.LimitType
	Value     decimal.Decimal
}

// BaselineRepository persists Baseline rows.
type BaselineRepository interface {
	Find(ctx context.Context, partyID int64, group treaty.GroupID, bt treaty.BaselineTypeName) (*Baseline, error)
	ListByParty(ctx context.Context, partyID int64) ([]*Baseline, error)
	ListAll(ctx context.Context) ([]*Baseline, error)
	Upsert(ctx context.Context, b *Baseline) error
	Delete(ctx context.Context, partyID int64, group treaty.GroupID, bt treaty.BaselineTypeName) error
}

// LimitRepository persists Limit rows.
type LimitRepository interface {
	Find(ctx context.Context, partyID, periodID int64, group treaty.GroupID, lt treaty.LimitType) (*Limit, error)
	ListByPeriod(ctx context.Context, periodID int64) ([]*Limit, error)
	ListAll(ctx context.Context) ([]*Limit, error)
	Upsert(ctx context.Context, l *Limit) error
	Delete(ctx context.Context, partyID, periodID int64, group treaty.GroupID, lt treaty.LimitType) error
}
