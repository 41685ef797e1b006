package repositories

import (
	"context"
	"database/sql"

	"github.com/mutisyag/ozone-sub000/internal/domain/party"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
)

type postgresPartyRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresPartyRepo builds a pool-bound party repository.
func NewPostgresPartyRepo(conn *postgres.Connection, log logging.Logger) party.Repository {
	return &postgresPartyRepo{log: log, executor: conn.DB()}
}

func newPartyRepo(executor queryExecutor, log logging.Logger) party.Repository {
	return &postgresPartyRepo{log: log, executor: executor}
}

const partyColumns = `id, abbr, name, parent_id`

func scanParty(s scanner) (*party.Party, error) {
	var (
		p        party.Party
		parentID sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Abbr, &p.Name, &parentID); err != nil {
		return nil, err
	}
	if parentID.Valid {
		p.ParentID = &parentID.Int64
	}
	return &p, nil
}

func (r *postgresPartyRepo) FindByAbbr(ctx context.Context, abbr string) (*party.Party, error) {
	row := r.executor.QueryRowContext(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE abbr = $1`, abbr)
	p, err := scanParty(row)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodePartyNotFound, "party not found").WithDetail(abbr),
			"failed to query party by abbr")
	}
	return p, nil
}

func (r *postgresPartyRepo) FindByID(ctx context.Context, id int64) (*party.Party, error) {
	row := r.executor.QueryRowContext(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE id = $1`, id)
	p, err := scanParty(row)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodePartyNotFound, "party not found"),
			"failed to query party by id")
	}
	return p, nil
}

func (r *postgresPartyRepo) ListAll(ctx context.Context) ([]*party.Party, error) {
	return r.list(ctx, `SELECT `+partyColumns+` FROM parties ORDER BY abbr`)
}

func (r *postgresPartyRepo) ListMembers(ctx context.Context, parentID int64) ([]*party.Party, error) {
	return r.list(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE parent_id = $1 ORDER BY abbr`, parentID)
}

func (r *postgresPartyRepo) list(ctx context.Context, query string, args ...interface{}) ([]*party.Party, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list parties")
	}
	defer rows.Close()

	var out []*party.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan party row")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate party rows")
	}
	return out, nil
}

func (r *postgresPartyRepo) HistoryFor(ctx context.Context, partyID, periodID int64) (*party.History, error) {
	row := r.executor.QueryRowContext(ctx, `
		SELECT party_id, period_id, party_type, is_article5, is_eu_member, is_ceit, population
		FROM party_histories
		WHERE party_id = $1 AND period_id = $2`, partyID, periodID)

	var h party.History
	err := row.Scan(&h.PartyID, &h.PeriodID, &h.PartyType,
		&h.IsArticle5, &h.IsEUMember, &h.IsCEIT, &h.Population)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodeHistoryMissing, "party history not found for period"),
			"failed to query party history")
	}
	return &h, nil
}
