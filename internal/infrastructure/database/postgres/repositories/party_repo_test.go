package repositories

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func partyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "abbr", "name", "parent_id"})
}

func TestPartyRepo_FindByAbbr(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newPartyRepo(db, logging.Nop())

	mock.ExpectQuery(`FROM parties WHERE abbr = `).
		WithArgs("FR").
		WillReturnRows(partyRows().AddRow(int64(12), "FR", "France", int64(3)))

	p, err := repo.FindByAbbr(context.Background(), "FR")
	require.NoError(t, err)
	assert.Equal(t, int64(12), p.ID)
	assert.Equal(t, "France", p.Name)
	require.NotNil(t, p.ParentID)
	assert.Equal(t, int64(3), *p.ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_FindByAbbr_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newPartyRepo(db, logging.Nop())

	mock.ExpectQuery(`FROM parties WHERE abbr = `).
		WithArgs("XX").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByAbbr(context.Background(), "XX")
	assert.Equal(t, pkgerrors.ErrCodePartyNotFound, pkgerrors.GetCode(err))
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_FindByID_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newPartyRepo(db, logging.Nop())

	mock.ExpectQuery(`FROM parties WHERE id = `).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.FindByID(context.Background(), 7)
	assert.Equal(t, pkgerrors.ErrCodeDatabaseError, pkgerrors.GetCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_ListAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newPartyRepo(db, logging.Nop())

	mock.ExpectQuery(`FROM parties ORDER BY abbr`).
		WillReturnRows(partyRows().
			AddRow(int64(1), "CN", "China", nil).
			AddRow(int64(12), "FR", "France", int64(3)))

	parties, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, parties, 2)
	assert.Equal(t, "CN", parties[0].Abbr)
	assert.Nil(t, parties[0].ParentID)
	assert.Equal(t, "FR", parties[1].Abbr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_ListMembers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newPartyRepo(db, logging.Nop())

	mock.ExpectQuery(`FROM parties WHERE parent_id = `).
		WithArgs(int64(3)).
		WillReturnRows(partyRows().AddRow(int64(12), "FR", "France", int64(3)))

	members, err := repo.ListMembers(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "FR", members[0].Abbr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_HistoryFor(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newPartyRepo(db, logging.Nop())

	mock.ExpectQuery(`FROM party_histories`).
		WithArgs(int64(12), int64(40)).
		WillReturnRows(sqlmock.NewRows([]string{
			"party_id", "period_id", "party_type", "is_article5", "is_eu_member", "is_ceit", "population",
		}).AddRow(int64(12), int64(40), "NA5", false, true, false, "67500000"))

	h, err := repo.HistoryFor(context.Background(), 12, 40)
	require.NoError(t, err)
	assert.Equal(t, treaty.PartyTypeNA5, h.PartyType)
	assert.False(t, h.IsArticle5)
	assert.True(t, h.IsEUMember)
	assert.Equal(t, "67500000", h.Population.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartyRepo_HistoryFor_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newPartyRepo(db, logging.Nop())

	mock.ExpectQuery(`FROM party_histories`).
		WithArgs(int64(12), int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.HistoryFor(context.Background(), 12, 99)
	assert.Equal(t, pkgerrors.ErrCodeHistoryMissing, pkgerrors.GetCode(err))
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
