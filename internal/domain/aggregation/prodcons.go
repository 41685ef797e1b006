// Package aggregation holds the ProdCons aggregate row and the calculated
// production/consumption formulas, plus the raw data-report row shapes the
// engine consumes.  One ProdCons row exists per (party, period, group); its
// derived fields are always recomputed from component totals and the party's
// classification for the period, never hand-edited.
package aggregation

import (
	"github.com/shopspring/decimal"

	"github.com/mutisyag/ozone-sub000/internal/domain/party"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Components are the raw quantity totals summed from data reports.  Every
// field defaults to zero, never null, before formula evaluation.  All values
// are weighted (ODP tonnes or CO2-equivalent tonnes, depending on which
// accumulator they sit in).
type Components struct {
	ProductionAllNew       decimal.Decimal
	ProductionFeedstock    decimal.Decimal
	ProductionQuarantine   decimal.Decimal
	ProductionProcessAgent decimal.Decimal
	Destroyed              decimal.Decimal
	ImportNew              decimal.Decimal
	ImportFeedstock        decimal.Decimal
	ImportProcessAgent     decimal.Decimal
	ImportQuarantine       decimal.Decimal
	ImportRecovered        decimal.Decimal
	ExportNew              decimal.Decimal
	ExportFeedstock        decimal.Decimal
	ExportProcessAgent     decimal.Decimal
	ExportRecovered        decimal.Decimal
	NonPartyImport         decimal.Decimal
	NonPartyExport         decimal.Decimal
	ProdTransfer           decimal.Decimal // signed: transfers received minus transfers given
}

// IsZero reports whether every component is zero.
func (c *Components) IsZero() bool {
	for _, d := range []decimal.Decimal{
		c.ProductionAllNew, c.ProductionFeedstock, c.ProductionQuarantine,
		c.ProductionProcessAgent, c.Destroyed,
		c.ImportNew, c.ImportFeedstock, c.ImportProcessAgent,
		c.ImportQuarantine, c.ImportRecovered,
		c.ExportNew, c.ExportFeedstock, c.ExportProcessAgent, c.ExportRecovered,
		c.NonPartyImport, c.NonPartyExport, c.ProdTransfer,
	} {
		if !d.IsZero() {
			return false
		}
	}
	return true
}

// ProdCons is the persisted aggregate row for (party, period, group).
type ProdCons struct {
	ID       int64
	PartyID  int64
	PeriodID int64
	GroupID  treaty.GroupID

	// ODP-weighted component totals (metric tonnes for group F, which has no
	// ODP factors, are carried GWP-weighted in the GWP accumulators below).
	Components Components

	// GWP-weighted component totals, kept alongside so GWP-denominated
	// baselines can be derived from the same row.
	ComponentsGWP Components

	// CalcProduction is nil when the party is the regional-bloc aggregate.
	CalcProduction *decimal.Decimal

	// CalcConsumption is nil when the party was an EU member for the period.
	CalcConsumption *decimal.Decimal

	// GWP-weighted derived figures, same nullability rules.
	CalcProductionGWP  *decimal.Decimal
	CalcConsumptionGWP *decimal.Decimal

	// ContributingSubmissions tracks, per obligation, the submission IDs
	// whose raw rows were summed into this row, so a superseded submission's
	// contribution can be cleanly removed.
	ContributingSubmissions map[treaty.ObligationType][]string
}

// CalcProduction derives calculated production from the components.
// Returns nil for the regional-bloc aggregate entity: the bloc has no
// production figure of its own.  Results may be negative; downstream
// consumers decide whether negative is meaningful.
func CalcProduction(p *party.Party, h *party.History, periodStartYear int, c *Components) *decimal.Decimal {
	if p.IsEU() {
		return nil
	}
	out := c.ProductionAllNew.
		Sub(c.ProductionFeedstock).
		Sub(c.ProductionQuarantine).
		Sub(c.Destroyed).
		Add(c.ProdTransfer)
	if party.SubtractsProcessAgent(p.Abbr, h, periodStartYear) {
		out = out.
			Sub(c.ProductionProcessAgent).
			Sub(c.ExportFeedstock).
			Sub(c.ExportProcessAgent)
	}
	return &out
}

// CalcConsumption derives calculated consumption from the components.
// Returns nil when the party's history for the period marks it an EU member:
// member-state consumption is tracked at the bloc level.
func CalcConsumption(p *party.Party, h *party.History, periodStartYear int, c *Components) *decimal.Decimal {
	if h != nil && h.IsEUMember {
		return nil
	}
	out := c.ProductionAllNew.
		Sub(c.ProductionFeedstock).
		Sub(c.ProductionQuarantine).
		Sub(c.Destroyed).
		Add(c.ProdTransfer).
		Sub(c.ExportNew).
		Add(c.NonPartyExport).
		Add(c.ImportNew).
		Sub(c.ImportFeedstock).
		Sub(c.ImportQuarantine)
	if party.SubtractsProcessAgent(p.Abbr, h, periodStartYear) {
		out = out.
			Sub(c.ProductionProcessAgent).
			Sub(c.ImportProcessAgent)
	}
	return &out
}
