package repositories

import (
	"context"

	"github.com/mutisyag/ozone-sub000/internal/domain/aggregation"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

type postgresRawDataRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresRawDataRepo builds a pool-bound raw-data repository.
func NewPostgresRawDataRepo(conn *postgres.Connection, log logging.Logger) aggregation.RawDataRepository {
	return &postgresRawDataRepo{log: log, executor: conn.DB()}
}

func newRawDataRepo(executor queryExecutor, log logging.Logger) aggregation.RawDataRepository {
	return &postgresRawDataRepo{log: log, executor: executor}
}

func (r *postgresRawDataRepo) ListForSubmission(ctx context.Context, submissionID string,
	groupID int64) ([]*aggregation.RawRecord, error) {

	rows, err := r.executor.QueryContext(ctx, `
		SELECT rr.id, rr.submission_id, rr.substance_id, rr.kind, rr.quantity
		FROM raw_records rr
		JOIN substances s ON s.id = rr.substance_id
		WHERE rr.submission_id = $1 AND s.group_id = $2
		ORDER BY rr.id`, submissionID, groupID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list raw records")
	}
	defer rows.Close()

	var out []*aggregation.RawRecord
	for rows.Next() {
		var rec aggregation.RawRecord
		if err := rows.Scan(&rec.ID, &rec.SubmissionID, &rec.SubstanceID, &rec.Kind, &rec.Quantity); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan raw record row")
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate raw record rows")
	}
	return out, nil
}

func (r *postgresRawDataRepo) GroupsReported(ctx context.Context, submissionID string) ([]treaty.GroupID, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT DISTINCT sg.group_id
		FROM raw_records rr
		JOIN substances s ON s.id = rr.substance_id
		JOIN substance_groups sg ON sg.id = s.group_id
		WHERE rr.submission_id = $1
		ORDER BY sg.group_id`, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list reported groups")
	}
	defer rows.Close()

	var out []treaty.GroupID
	for rows.Next() {
		var g treaty.GroupID
		if err := rows.Scan(&g); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan reported group row")
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate reported group rows")
	}
	return out, nil
}

func (r *postgresRawDataRepo) TransfersFor(ctx context.Context, partyID, periodID,
	groupID int64) ([]*aggregation.Transfer, error) {

	rows, err := r.executor.QueryContext(ctx, `
		SELECT t.id, t.submission_id, t.source_party_id, t.dest_party_id,
		       t.period_id, t.substance_id, t.quantity
		FROM transfers t
		JOIN substances s ON s.id = t.substance_id
		WHERE (t.source_party_id = $1 OR t.dest_party_id = $1)
		  AND t.period_id = $2 AND s.group_id = $3
		ORDER BY t.id`, partyID, periodID, groupID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list transfers")
	}
	defer rows.Close()

	var out []*aggregation.Transfer
	for rows.Next() {
		var t aggregation.Transfer
		err := rows.Scan(&t.ID, &t.SubmissionID, &t.SourcePartyID, &t.DestPartyID,
			&t.PeriodID, &t.SubstanceID, &t.Quantity)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan transfer row")
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate transfer rows")
	}
	return out, nil
}
