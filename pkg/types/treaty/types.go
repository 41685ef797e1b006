// Package treaty defines the shared vocabulary of the ozone reporting core:
// annex group identifiers, obligation types, party classifications, limit and
// baseline type names, and the decimal rounding conventions the treaty
// formulas prescribe.
package treaty

import (
	"github.com/shopspring/decimal"
)

// GroupID identifies a treaty annex group.
type GroupID string

const (
	GroupAI   GroupID = "AI"   // Annex A group I — CFCs
	GroupAII  GroupID = "AII"  // Annex A group II — halons
	GroupBI   GroupID = "BI"   // Annex B group I — other CFCs
	GroupBII  GroupID = "BII"  // Annex B group II — carbon tetrachloride
	GroupBIII GroupID = "BIII" // Annex B group III — methyl chloroform
	GroupCI   GroupID = "CI"   // Annex C group I — HCFCs
	GroupCII  GroupID = "CII"  // Annex C group II — HBFCs
	GroupCIII GroupID = "CIII" // Annex C group III — bromochloromethane
	GroupEI   GroupID = "EI"   // Annex E group I — methyl bromide
	GroupF    GroupID = "F"    // Annex F — HFCs
)

// AllGroups lists every annex group in treaty order.
var AllGroups = []GroupID{
	GroupAI, GroupAII, GroupBI, GroupBII, GroupBIII,
	GroupCI, GroupCII, GroupCIII, GroupEI, GroupF,
}

// ObligationType identifies which reporting obligation a submission fulfils.
// Each obligation has its own workflow variant.
type ObligationType string

const (
	ObligationArticle7    ObligationType = "article7"
	ObligationArticle7Acc ObligationType = "article7_accelerated"
	ObligationExemption   ObligationType = "exemption"
	ObligationExemptionAcc ObligationType = "exemption_accelerated"
	ObligationTransfer    ObligationType = "transfer"
	ObligationProcAgent   ObligationType = "procagent"
)

// AggregatableObligations are the obligation types whose raw data rows feed
// the aggregation engine.
var AggregatableObligations = []ObligationType{
	ObligationArticle7,
	ObligationArticle7Acc,
}

// PartyType is the party classification used to match control measures.
type PartyType string

const (
	PartyTypeA5  PartyType = "A5"  // Article-5 (developing) party
	PartyTypeNA5 PartyType = "NA5" // non-Article-5 party
)

// ActorType distinguishes who fills a submission.  At most one editable
// data-entry submission may exist per (party, obligation, period) per actor
// type.
type ActorType string

const (
	ActorParty       ActorType = "party"
	ActorSecretariat ActorType = "secretariat"
)

// LimitType identifies the kind of legally allowed ceiling.
type LimitType string

const (
	LimitProduction  LimitType = "production"
	LimitConsumption LimitType = "consumption"
	LimitBDN         LimitType = "bdn" // basic domestic needs production allowance
)

// AllLimitTypes lists every limit type.
var AllLimitTypes = []LimitType{LimitProduction, LimitConsumption, LimitBDN}

// BaselineTypeName identifies a baseline formula.  The reference-data
// BaselineType rows carry these names; the baseline calculator maps each
// to its source periods and source function.
type BaselineTypeName string

const (
	BaselineNA5Prod    BaselineTypeName = "NA5Prod"
	BaselineNA5Cons    BaselineTypeName = "NA5Cons"
	BaselineA5Prod     BaselineTypeName = "A5Prod"
	BaselineA5Cons     BaselineTypeName = "A5Cons"
	BaselineNA5ProdGWP BaselineTypeName = "NA5ProdGWP"
	BaselineNA5ConsGWP BaselineTypeName = "NA5ConsGWP"
	BaselineA5ProdGWP  BaselineTypeName = "A5ProdGWP"
	BaselineA5ConsGWP  BaselineTypeName = "A5ConsGWP"
	BaselineBDNNA5     BaselineTypeName = "BDN_NA5"
	BaselineBDNA5      BaselineTypeName = "BDN_A5"
)

// AllBaselineTypes lists every baseline type name.
var AllBaselineTypes = []BaselineTypeName{
	BaselineNA5Prod, BaselineNA5Cons, BaselineA5Prod, BaselineA5Cons,
	BaselineNA5ProdGWP, BaselineNA5ConsGWP, BaselineA5ProdGWP, BaselineA5ConsGWP,
	BaselineBDNNA5, BaselineBDNA5,
}

// IsGWP reports whether the baseline type is denominated in CO2-equivalent
// (GWP-weighted) amounts rather than ODP tonnes.
func (b BaselineTypeName) IsGWP() bool {
	switch b {
	case BaselineNA5ProdGWP, BaselineNA5ConsGWP, BaselineA5ProdGWP, BaselineA5ConsGWP:
		return true
	}
	return false
}

// IsProduction reports whether the baseline type measures production
// (as opposed to consumption).  BDN types are production-basis.
func (b BaselineTypeName) IsProduction() bool {
	switch b {
	case BaselineNA5Prod, BaselineA5Prod, BaselineNA5ProdGWP, BaselineA5ProdGWP,
		BaselineBDNNA5, BaselineBDNA5:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Decimal conventions
// ─────────────────────────────────────────────────────────────────────────────

// Zero is the canonical zero quantity.
var Zero = decimal.Zero

// RoundHalfUp rounds d to the given number of decimal places with ties going
// away from zero.  This is the rounding the treaty formula text prescribes;
// shopspring's Round implements exactly that behaviour.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// MaxPrecision returns the largest number of decimal places observed among
// the given values.  Averaging formulas round their result to this precision
// so that the average never carries more precision than its inputs.
func MaxPrecision(values ...decimal.Decimal) int32 {
	var max int32
	for _, v := range values {
		if p := -v.Exponent(); p > max {
			max = p
		}
	}
	return max
}

// FloorZero clamps negative results to zero.  Baseline formulas never yield
// a negative reference quantity.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
