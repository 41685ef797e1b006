package period

import (
	"context"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Repository provides read access to period and schedule reference data.
type Repository interface {
	// FindByName resolves a reporting period by its natural key.
	FindByName(ctx context.Context, name string) (*ReportingPeriod, error)

	// FindByID resolves a reporting period by its row ID.
	FindByID(ctx context.Context, id int64) (*ReportingPeriod, error)

	// ListAll returns every reporting period ordered by start date.
	ListAll(ctx context.Context) ([]*ReportingPeriod, error)

	// ControlMeasures returns the measures for (group, partyType, limitType)
	// whose validity window overlaps the given period, ordered by start date.
	ControlMeasures(ctx context.Context, group treaty.GroupID, partyType treaty.PartyType,
		limitType treaty.LimitType, p *ReportingPeriod) ([]*ControlMeasure, error)

	// BaselineTypes returns every registered baseline type.
	BaselineTypes(ctx context.Context) ([]*BaselineType, error)
}
