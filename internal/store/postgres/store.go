// Package postgres implements store.Store and store.Tx against a
// jackc/pgx/v5 connection pool, following the teacher's
// internal/infrastructure/postgres package: one struct wrapping the pool,
// one pgx.Tx wrapper per unit of work, and every conditional update done
// as a single UPDATE ... WHERE <predicate> statement inside that
// transaction (no separate SELECT ... FOR UPDATE).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/coursehub/enrollment-service/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes wrapDBErr treats as transient lock contention:
// 57014 is query_canceled (our own SET LOCAL statement_timeout firing),
// 40P01 is deadlock_detected.
const (
	pgErrQueryCanceled  = "57014"
	pgErrDeadlockDetect = "40P01"
)

// statementTimeout bounds how long a single statement may wait on a
// backend row lock before the driver reports a timeout. spec.md §5
// recommends 5 seconds; beyond that the statement fails and wrapDBErr
// reports it as domain.ErrDeadlock, which the HTTP adapter surfaces as 503.
// The engine does not retry it.
const statementTimeout = 5 * time.Second

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", statementTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, stmt); err != nil {
		_ = tx.Rollback(ctx)
		return nil, wrapDBErr(err)
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) FindStudent(ctx context.Context, id int64) (domain.Student, error) {
	return findStudent(ctx, s.pool, id)
}

func (s *Store) FindCourse(ctx context.Context, id int64) (domain.Course, error) {
	return findCourse(ctx, s.pool, id)
}

func (s *Store) FindSchedule(ctx context.Context, courseID int64) (domain.Schedule, bool, error) {
	return findSchedule(ctx, s.pool, courseID)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so read helpers
// work identically inside and outside a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

func wrapDBErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrDeadlock
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrQueryCanceled, pgErrDeadlockDetect:
			return domain.ErrDeadlock
		}
	}
	return errors.Join(domain.ErrDatabase, err)
}
