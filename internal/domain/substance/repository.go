package substance

import (
	"context"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Repository provides read access to substance reference data.
type Repository interface {
	// FindGroup resolves a group by its treaty identifier.
	FindGroup(ctx context.Context, id treaty.GroupID) (*Group, error)

	// ListGroups returns every annex group.
	ListGroups(ctx context.Context) ([]*Group, error)

	// ListByGroup returns the substances of a group.
	ListByGroup(ctx context.Context, groupID int64) ([]*Substance, error)

	// FindByID resolves a substance by its row ID.
	FindByID(ctx context.Context, id int64) (*Substance, error)
}
