package party

import "context"

// Repository provides read access to party reference data.  Implementations
// live in internal/infrastructure/database/postgres/repositories.
type Repository interface {
	// FindByAbbr resolves a party by its natural key.
	FindByAbbr(ctx context.Context, abbr string) (*Party, error)

	// FindByID resolves a party by its row ID.
	FindByID(ctx context.Context, id int64) (*Party, error)

	// ListAll returns every party.
	ListAll(ctx context.Context) ([]*Party, error)

	// ListMembers returns the parties whose ParentID is the given party.
	ListMembers(ctx context.Context, parentID int64) ([]*Party, error)

	// HistoryFor returns the party's classification for a period, or a
	// REF_005 error when no history row exists.
	HistoryFor(ctx context.Context, partyID, periodID int64) (*History, error)
}
