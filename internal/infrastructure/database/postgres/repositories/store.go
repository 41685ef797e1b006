package repositories

import (
	"context"
	"database/sql"

	"github.com/mutisyag/ozone-sub000/internal/application/lifecycle"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/pkg/errors"
)

// store implements lifecycle.Store: pool-bound repositories by default, and
// a fresh set of tx-bound repositories inside WithinTx.  Row locks taken
// through the tx-bound submission repository are held until commit or
// rollback.
type store struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewStore builds the transactional store over a connection pool.
func NewStore(conn *postgres.Connection, log logging.Logger) lifecycle.Store {
	return &store{conn: conn, log: log}
}

func (s *store) repos(executor queryExecutor) lifecycle.Repos {
	return lifecycle.Repos{
		Submissions: newSubmissionRepo(executor, s.log),
		ProdCons:    newProdConsRepo(executor, s.log),
		RawData:     newRawDataRepo(executor, s.log),
	}
}

func (s *store) Repos() lifecycle.Repos {
	return s.repos(s.conn.DB())
}

func (s *store) WithinTx(ctx context.Context, fn func(ctx context.Context, r lifecycle.Repos) error) error {
	tx, err := s.conn.DB().BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}

	if err := fn(ctx, s.repos(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("transaction rollback failed", logging.Err(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}
