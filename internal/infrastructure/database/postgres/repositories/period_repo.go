package repositories

import (
	"context"
	"database/sql"

	"github.com/mutisyag/ozone-sub000/internal/domain/period"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

type postgresPeriodRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresPeriodRepo builds a pool-bound period repository.
func NewPostgresPeriodRepo(conn *postgres.Connection, log logging.Logger) period.Repository {
	return &postgresPeriodRepo{log: log, executor: conn.DB()}
}

func newPeriodRepo(executor queryExecutor, log logging.Logger) period.Repository {
	return &postgresPeriodRepo{log: log, executor: executor}
}

func (r *postgresPeriodRepo) FindByName(ctx context.Context, name string) (*period.ReportingPeriod, error) {
	row := r.executor.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date
		FROM reporting_periods WHERE name = $1`, name)

	var p period.ReportingPeriod
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodePeriodNotFound, "reporting period not found").WithDetail(name),
			"failed to query reporting period by name")
	}
	return &p, nil
}

func (r *postgresPeriodRepo) FindByID(ctx context.Context, id int64) (*period.ReportingPeriod, error) {
	row := r.executor.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date
		FROM reporting_periods WHERE id = $1`, id)

	var p period.ReportingPeriod
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodePeriodNotFound, "reporting period not found"),
			"failed to query reporting period by id")
	}
	return &p, nil
}

func (r *postgresPeriodRepo) ListAll(ctx context.Context) ([]*period.ReportingPeriod, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT id, name, start_date, end_date
		FROM reporting_periods ORDER BY start_date`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list reporting periods")
	}
	defer rows.Close()

	var out []*period.ReportingPeriod
	for rows.Next() {
		var p period.ReportingPeriod
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan reporting period row")
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate reporting period rows")
	}
	return out, nil
}

func (r *postgresPeriodRepo) ControlMeasures(ctx context.Context, group treaty.GroupID,
	partyType treaty.PartyType, limitType treaty.LimitType,
	p *period.ReportingPeriod) ([]*period.ControlMeasure, error) {

	rows, err := r.executor.QueryContext(ctx, `
		SELECT cm.id, sg.group_id, cm.party_type, bt.name, cm.limit_type,
		       cm.start_date, cm.end_date, cm.allowed_fraction
		FROM control_measures cm
		JOIN substance_groups sg ON sg.id = cm.group_id
		JOIN baseline_types bt ON bt.id = cm.baseline_type_id
		WHERE sg.group_id = $1
		  AND cm.party_type = $2
		  AND cm.limit_type = $3
		  AND cm.start_date <= $4
		  AND (cm.end_date IS NULL OR cm.end_date >= $5)
		ORDER BY cm.start_date`,
		string(group), string(partyType), string(limitType), p.EndDate, p.StartDate)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list control measures")
	}
	defer rows.Close()

	var out []*period.ControlMeasure
	for rows.Next() {
		var (
			cm  period.ControlMeasure
			end sql.NullTime
		)
		err := rows.Scan(&cm.ID, &cm.GroupID, &cm.PartyType, &cm.BaselineType,
			&cm.LimitType, &cm.StartDate, &end, &cm.AllowedFraction)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan control measure row")
		}
		if end.Valid {
			t := end.Time
			cm.EndDate = &t
		}
		out = append(out, &cm)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate control measure rows")
	}
	return out, nil
}

func (r *postgresPeriodRepo) BaselineTypes(ctx context.Context) ([]*period.BaselineType, error) {
	rows, err := r.executor.QueryContext(ctx,
		`SELECT id, name FROM baseline_types ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list baseline types")
	}
	defer rows.Close()

	var out []*period.BaselineType
	for rows.Next() {
		var bt period.BaselineType
		if err := rows.Scan(&bt.ID, &bt.Name); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan baseline type row")
		}
		out = append(out, &bt)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate baseline type rows")
	}
	return out, nil
}
