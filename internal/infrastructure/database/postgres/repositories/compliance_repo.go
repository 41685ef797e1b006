package repositories

import (
	"context"

	"github.com/mutisyag/ozone-sub000/internal/domain/compliance"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

type postgresBaselineRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresBaselineRepo builds a pool-bound baseline repository.
func NewPostgresBaselineRepo(conn *postgres.Connection, log logging.Logger) compliance.BaselineRepository {
	return &postgresBaselineRepo{log: log, executor: conn.DB()}
}

func (r *postgresBaselineRepo) Find(ctx context.Context, partyID int64,
	group treaty.GroupID, bt treaty.BaselineTypeName) (*compliance.Baseline, error) {

	row := r.executor.QueryRowContext(ctx, `
		SELECT id, party_id, group_id, baseline_type, value
		FROM baselines
		WHERE party_id = $1 AND group_id = $2 AND baseline_type = $3`,
		partyID, string(group), string(bt))

	var b compliance.Baseline
	err := row.Scan(&b.ID, &b.PartyID, &b.GroupID, &b.BaselineType, &b.Value)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodeNotFound, "baseline not found"),
			"failed to query baseline")
	}
	return &b, nil
}

func (r *postgresBaselineRepo) ListByParty(ctx context.Context, partyID int64) ([]*compliance.Baseline, error) {
	return r.list(ctx, `
		SELECT id, party_id, group_id, baseline_type, value
		FROM baselines WHERE party_id = $1
		ORDER BY group_id, baseline_type`, partyID)
}

func (r *postgresBaselineRepo) ListAll(ctx context.Context) ([]*compliance.Baseline, error) {
	return r.list(ctx, `
		SELECT id, party_id, group_id, baseline_type, value
		FROM baselines ORDER BY party_id, group_id, baseline_type`)
}

func (r *postgresBaselineRepo) list(ctx context.Context, query string, args ...interface{}) ([]*compliance.Baseline, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list baselines")
	}
	defer rows.Close()

	var out []*compliance.Baseline
	for rows.Next() {
		var b compliance.Baseline
		if err := rows.Scan(&b.ID, &b.PartyID, &b.GroupID, &b.BaselineType, &b.Value); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan baseline row")
		}
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate baseline rows")
	}
	return out, nil
}

func (r *postgresBaselineRepo) Upsert(ctx context.Context, b *compliance.Baseline) error {
	err := r.executor.QueryRowContext(ctx, `
		INSERT INTO baselines (party_id, group_id, baseline_type, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (party_id, group_id, baseline_type)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		RETURNING id`,
		b.PartyID, string(b.GroupID), string(b.BaselineType), b.Value).Scan(&b.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert baseline")
	}
	return nil
}

func (r *postgresBaselineRepo) Delete(ctx context.Context, partyID int64,
	group treaty.GroupID, bt treaty.BaselineTypeName) error {

	_, err := r.executor.ExecContext(ctx, `
		DELETE FROM baselines
		WHERE party_id = $1 AND group_id = $2 AND baseline_type = $3`,
		partyID, string(group), string(bt))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete baseline")
	}
	return nil
}

type postgresLimitRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresLimitRepo builds a pool-bound limit repository.
func NewPostgresLimitRepo(conn *postgres.Connection, log logging.Logger) compliance.LimitRepository {
	return &postgresLimitRepo{log: log, executor: conn.DB()}
}

func (r *postgresLimitRepo) Find(ctx context.Context, partyID, periodID int64,
	group treaty.GroupID, lt treaty.LimitType) (*compliance.Limit, error) {

	row := r.executor.QueryRowContext(ctx, `
		SELECT id, party_id, period_id, group_id, limit_type, value
		FROM limits
		WHERE party_id = $1 AND period_id = $2 AND group_id = $3 AND limit_type = $4`,
		partyID, periodID, string(group), string(lt))

	var l compliance.Limit
	err := row.Scan(&l.ID, &l.PartyID, &l.PeriodID, &l.GroupID, &l.LimitType, &l.Value)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodeNotFound, "limit not found"),
			"failed to query limit")
	}
	return &l, nil
}

func (r *postgresLimitRepo) ListByPeriod(ctx context.Context, periodID int64) ([]*compliance.Limit, error) {
	return r.list(ctx, `
		SELECT id, party_id, period_id, group_id, limit_type, value
		FROM limits WHERE period_id = $1
		ORDER BY party_id, group_id, limit_type`, periodID)
}

func (r *postgresLimitRepo) ListAll(ctx context.Context) ([]*compliance.Limit, error) {
	return r.list(ctx, `
		SELECT id, party_id, period_id, group_id, limit_type, value
		FROM limits ORDER BY party_id, period_id, group_id, limit_type`)
}

func (r *postgresLimitRepo) list(ctx context.Context, query string, args ...interface{}) ([]*compliance.Limit, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list limits")
	}
	defer rows.Close()

	var out []*compliance.Limit
	for rows.Next() {
		var l compliance.Limit
		if err := rows.Scan(&l.ID, &l.PartyID, &l.PeriodID, &l.GroupID, &l.LimitType, &l.Value); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan limit row")
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate limit rows")
	}
	return out, nil
}

func (r *postgresLimitRepo) Upsert(ctx context.Context, l *compliance.Limit) error {
	err := r.executor.QueryRowContext(ctx, `
		INSERT INTO limits (party_id, period_id, group_id, limit_type, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (party_id, period_id, group_id, limit_type)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		RETURNING id`,
		l.PartyID, l.PeriodID, string(l.GroupID), string(l.LimitType), l.Value).Scan(&l.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert limit")
	}
	return nil
}

func (r *postgresLimitRepo) Delete(ctx context.Context, partyID, periodID int64,
	group treaty.GroupID, lt treaty.LimitType) error {

	_, err := r.executor.ExecContext(ctx, `
		DELETE FROM limits
		WHERE party_id = $1 AND period_id = $2 AND group_id = $3 AND limit_type = $4`,
		partyID, periodID, string(group), string(lt))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete limit")
	}
	return nil
}
