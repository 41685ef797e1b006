package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/mutisyag/ozone-sub000/internal/domain/submission"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

type postgresSubmissionRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresSubmissionRepo builds a pool-bound submission repository.
// ListSiblingsForUpdate on a pool-bound instance locks nothing useful; the
// lifecycle service always reaches it through the transactional store.
func NewPostgresSubmissionRepo(conn *postgres.Connection, log logging.Logger) submission.Repository {
	return &postgresSubmissionRepo{log: log, executor: conn.DB()}
}

func newSubmissionRepo(executor queryExecutor, log logging.Logger) submission.Repository {
	return &postgresSubmissionRepo{log: log, executor: executor}
}

const submissionColumns = `id, party_id, period_id, obligation, version, state,
	flag_superseded, flag_valid, filled_by, created_at, updated_at, submitted_at`

func scanSubmission(s scanner) (*submission.Submission, error) {
	var (
		sub       submission.Submission
		valid     sql.NullBool
		submitted sql.NullTime
	)
	err := s.Scan(&sub.ID, &sub.PartyID, &sub.PeriodID, &sub.Obligation,
		&sub.Version, &sub.State, &sub.FlagSuperseded, &valid, &sub.FilledBy,
		&sub.CreatedAt, &sub.UpdatedAt, &submitted)
	if err != nil {
		return nil, err
	}
	if valid.Valid {
		v := valid.Bool
		sub.FlagValid = &v
	}
	if submitted.Valid {
		t := submitted.Time
		sub.SubmittedAt = &t
	}
	return &sub, nil
}

func (r *postgresSubmissionRepo) FindByID(ctx context.Context, id string) (*submission.Submission, error) {
	row := r.executor.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		return nil, notFoundOr(err,
			errors.New(errors.ErrCodeSubmissionNotFound, "submission not found").WithDetail(id),
			"failed to query submission")
	}
	return sub, nil
}

func (r *postgresSubmissionRepo) ListSiblings(ctx context.Context, partyID int64,
	obligation treaty.ObligationType, periodID int64) ([]*submission.Submission, error) {
	return r.listSiblings(ctx, partyID, obligation, periodID, false)
}

func (r *postgresSubmissionRepo) ListSiblingsForUpdate(ctx context.Context, partyID int64,
	obligation treaty.ObligationType, periodID int64) ([]*submission.Submission, error) {
	return r.listSiblings(ctx, partyID, obligation, periodID, true)
}

func (r *postgresSubmissionRepo) listSiblings(ctx context.Context, partyID int64,
	obligation treaty.ObligationType, periodID int64, forUpdate bool) ([]*submission.Submission, error) {

	query := `SELECT ` + submissionColumns + ` FROM submissions
		WHERE party_id = $1 AND obligation = $2 AND period_id = $3
		ORDER BY version`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := r.executor.QueryContext(ctx, query, partyID, string(obligation), periodID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list sibling submissions")
	}
	defer rows.Close()

	var out []*submission.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan submission row")
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate submission rows")
	}
	return out, nil
}

func (r *postgresSubmissionRepo) GetCurrent(ctx context.Context, partyID int64,
	obligation treaty.ObligationType, periodID int64) (*submission.Submission, error) {

	row := r.executor.QueryRowContext(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE party_id = $1 AND obligation = $2 AND period_id = $3
		  AND flag_superseded = false
		ORDER BY version DESC
		LIMIT 1`, partyID, string(obligation), periodID)

	sub, err := scanSubmission(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query current submission")
	}
	return sub, nil
}

func (r *postgresSubmissionRepo) Create(ctx context.Context, s *submission.Submission) error {
	_, err := r.executor.ExecContext(ctx, `
		INSERT INTO submissions (
			id, party_id, period_id, obligation, version, state,
			flag_superseded, flag_valid, filled_by, created_at, updated_at, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.PartyID, s.PeriodID, string(s.Obligation), s.Version, string(s.State),
		s.FlagSuperseded, s.FlagValid, string(s.FilledBy), s.CreatedAt, s.UpdatedAt, s.SubmittedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.Wrap(err, errors.ErrCodeVersionConflict,
				"submission version already exists")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert submission")
	}
	return nil
}

func (r *postgresSubmissionRepo) Update(ctx context.Context, s *submission.Submission) error {
	res, err := r.executor.ExecContext(ctx, `
		UPDATE submissions SET
			state = $2, flag_superseded = $3, flag_valid = $4,
			updated_at = now(), submitted_at = $5
		WHERE id = $1`,
		s.ID, string(s.State), s.FlagSuperseded, s.FlagValid, s.SubmittedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update submission")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read update result")
	}
	if affected == 0 {
		return errors.New(errors.ErrCodeSubmissionNotFound, "submission not found").WithDetail(s.ID)
	}
	return nil
}

func (r *postgresSubmissionRepo) SaveEvent(ctx context.Context, e *submission.TransitionEvent) error {
	_, err := r.executor.ExecContext(ctx, `
		INSERT INTO submission_events (
			id, submission_id, transition, from_state, to_state, actor, at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.SubmissionID, e.Transition, string(e.FromState), string(e.ToState), e.Actor, e.At)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert transition event")
	}
	return nil
}
