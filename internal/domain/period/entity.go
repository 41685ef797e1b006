// Package period holds the ReportingPeriod, ControlMeasure, and BaselineType
// reference entities, together with the date arithmetic used by the limit
// calculator when a control-measure schedule changes inside a period.
package period

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// ReportingPeriod is a named, dated interval.  Most periods are single
// calendar years ("1995", "2019"); baseline periods may span arbitrary dates.
type ReportingPeriod struct {
	ID        int64
	Name      string // natural key, e.g. "1989", "C1BaselinePeriod"
	StartDate time.Time
	EndDate   time.Time
}

// IsYear reports whether the period covers exactly one calendar year.
func (p *ReportingPeriod) IsYear() bool {
	return p.StartDate.Month() == time.January && p.StartDate.Day() == 1 &&
		p.EndDate.Month() == time.December && p.EndDate.Day() == 31 &&
		p.StartDate.Year() == p.EndDate.Year()
}

// Days returns the inclusive number of days in the period.
func (p *ReportingPeriod) Days() int {
	return inclusiveDays(p.StartDate, p.EndDate)
}

// ControlMeasure is one row of the treaty's phase-out schedule: for a group
// and party classification it allows a fraction of the named baseline during
// its validity window.  EndDate nil means open-ended.
type ControlMeasure struct {
	ID              int64
	GroupID         treaty.GroupID
	PartyType       treaty.PartyType
	BaselineType    treaty.BaselineTypeName
	LimitType       treaty.LimitType
	StartDate       time.Time
	EndDate         *time.Time
	AllowedFraction decimal.Decimal // in [0, 1]
}

// DaysWithin returns the inclusive number of days in the intersection of the
// measure's validity window with the given period, or 0 when they do not
// overlap.
func (cm *ControlMeasure) DaysWithin(p *ReportingPeriod) int {
	start := cm.StartDate
	if p.StartDate.After(start) {
		start = p.StartDate
	}
	end := p.EndDate
	if cm.EndDate != nil && cm.EndDate.Before(end) {
		end = *cm.EndDate
	}
	if end.Before(start) {
		return 0
	}
	return inclusiveDays(start, end)
}

// BaselineType is the reference-data row naming a baseline formula.  The
// formula itself (source periods, source function) lives in the baseline
// calculator; this row exists so persisted Baseline rows can reference it.
type BaselineType struct {
	ID   int64
	Name treaty.BaselineTypeName
}

func inclusiveDays(start, end time.Time) int {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours()/24) + 1
}
