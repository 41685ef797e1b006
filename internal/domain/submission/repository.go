package submission

import (
	"context"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Repository persists submissions and their transition audit events.
//
// The ForUpdate methods acquire row-level locks (SELECT … FOR UPDATE) and
// are only meaningful when the repository instance is bound to an open
// transaction; the lifecycle service obtains such instances through its
// transactional store.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Submission, error)

	// ListSiblings returns every submission version for the key, ordered by
	// version ascending.
	ListSiblings(ctx context.Context, partyID int64, obligation treaty.ObligationType, periodID int64) ([]*Submission, error)

	// ListSiblingsForUpdate is ListSiblings with the rows locked for the
	// remainder of the enclosing transaction.
	ListSiblingsForUpdate(ctx context.Context, partyID int64, obligation treaty.ObligationType, periodID int64) ([]*Submission, error)

	// GetCurrent returns the single non-superseded, current-capable version
	// for the key, or nil when none exists.
	GetCurrent(ctx context.Context, partyID int64, obligation treaty.ObligationType, periodID int64) (*Submission, error)

	Create(ctx context.Context, s *Submission) error
	Update(ctx context.Context, s *Submission) error

	// SaveEvent appends a transition audit event.
	SaveEvent(ctx context.Context, e *TransitionEvent) error
}
