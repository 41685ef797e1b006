// Package substance holds the controlled-substance reference entities.
// A SubstanceGroup fixes which weighting (ODP or GWP) and which
// control-measure schedule apply to the substances it contains.
package substance

import (
	"github.com/shopspring/decimal"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Group is a treaty annex group.
type Group struct {
	ID          int64
	GroupID     treaty.GroupID
	Annex       string
	Name        string
	Description string
}

// Substance is a single controlled chemical with its weighting factors.
// Quantities are reported in metric tonnes and weighted into ODP tonnes or
// CO2-equivalent tonnes during aggregation.
type Substance struct {
	ID      int64
	GroupID int64
	Name    string
	Formula string
	ODP     decimal.Decimal
	GWP     decimal.Decimal
}

// Weight converts a raw metric-tonne quantity into the weighted amount.
func (s *Substance) Weight(qty decimal.Decimal, gwp bool) decimal.Decimal {
	if gwp {
		return qty.Mul(s.GWP)
	}
	return qty.Mul(s.ODP)
}
