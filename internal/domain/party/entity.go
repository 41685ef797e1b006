// Package party holds the Party and PartyHistory reference entities.
// Parties and their per-period classification are immutable inputs to the
// core: they are maintained by the excluded CRUD layer and only read here.
package party

import (
	"github.com/shopspring/decimal"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// EUAbbr is the abbreviation of the regional-economic-bloc party whose
// aggregation is special-cased throughout the calculators: the bloc reports
// consumption on behalf of its member states and has no production figures
// of its own.
const EUAbbr = "EU"

// Party is the identity and classification anchor for a reporting party.
type Party struct {
	ID   int64
	Abbr string // natural key, e.g. "FR", "CN", "EU"
	Name string

	// ParentID links a member state to the regional bloc that aggregates it,
	// when one exists.
	ParentID *int64
}

// IsEU reports whether the party is the regional-bloc aggregate entity.
func (p *Party) IsEU() bool {
	return p.Abbr == EUAbbr
}

// History is the per-period classification of a party.  Every formula branch
// that depends on who the party "is" for a given period reads from here, not
// from the Party row.
type History struct {
	PartyID    int64
	PeriodID   int64
	PartyType  treaty.PartyType
	IsArticle5 bool
	IsEUMember bool
	IsCEIT     bool // country with economy in transition
	Population decimal.Decimal
}

// processAgentExceptions are the Article-5 parties whose process-agent
// quantities are still subtracted for periods starting in 2010 or later,
// by decision of the parties.
var processAgentExceptions = map[string]bool{
	"CN": true,
	"BR": true,
}

// SubtractsProcessAgent reports whether the process-agent component is
// subtracted in the calculated production/consumption formulas for this
// party and period-start year.  Non-Article-5 parties always subtract it;
// Article-5 parties do not, except the enumerated parties from 2010 onward.
func SubtractsProcessAgent(abbr string, h *History, periodStartYear int) bool {
	if h == nil || !h.IsArticle5 {
		return true
	}
	return processAgentExceptions[abbr] && periodStartYear >= 2010
}
