package repositories

import (
	"context"

	"github.com/mutisyag/ozone-sub000/internal/domain/substance"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

type postgresSubstanceRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresSubstanceRepo builds a pool-bound substance repository.
func NewPostgresSubstanceRepo(conn *postgres.Connection, log logging.Logger) substance.Repository {
	return &postgresSubstanceRepo{log: log, executor: conn.DB()}
}

func newSubstanceRepo(executor queryExecutor, log logging.Logger) substance.Repository {
	return &postgresSubstanceRepo{log: log, executor: executor}
}

func (r *postgresSubstanceRepo) FindGroup(ctx context.Context, id treaty.GroupID) (*substance.Group, error) {
	row := r.executor.QueryRowContext(ctx, `
		SELECT id, group_id, annex, name, description
		FROM substance_groups WHERE group_id = $1`, string(id))

	var g substance.Group
	err := row.Scan(&g.ID, &g.GroupID, &g.Annex, &g.Name, &g.Description)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodeGroupNotFound, "annex group not found").WithDetail(string(id)),
			"failed to query annex group")
	}
	return &g, nil
}

func (r *postgresSubstanceRepo) ListGroups(ctx context.Context) ([]*substance.Group, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT id, group_id, annex, name, description
		FROM substance_groups ORDER BY group_id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list annex groups")
	}
	defer rows.Close()

	var out []*substance.Group
	for rows.Next() {
		var g substance.Group
		if err := rows.Scan(&g.ID, &g.GroupID, &g.Annex, &g.Name, &g.Description); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan annex group row")
		}
		out = append(out, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate annex group rows")
	}
	return out, nil
}

func (r *postgresSubstanceRepo) ListByGroup(ctx context.Context, groupID int64) ([]*substance.Substance, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT id, group_id, name, formula, odp, gwp
		FROM substances WHERE group_id = $1 ORDER BY sort_order, id`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list substances")
	}
	defer rows.Close()

	var out []*substance.Substance
	for rows.Next() {
		var s substance.Substance
		if err := rows.Scan(&s.ID, &s.GroupID, &s.Name, &s.Formula, &s.ODP, &s.GWP); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan substance row")
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate substance rows")
	}
	return out, nil
}

func (r *postgresSubstanceRepo) FindByID(ctx context.Context, id int64) (*substance.Substance, error) {
	row := r.executor.QueryRowContext(ctx, `
		SELECT id, group_id, name, formula, odp, gwp
		FROM substances WHERE id = $1`, id)

	var s substance.Substance
	err := row.Scan(&s.ID, &s.GroupID, &s.Name, &s.Formula, &s.ODP, &s.GWP)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodeSubstanceNotFound, "substance not found"),
			"failed to query substance")
	}
	return &s, nil
}
