// Package repository implements the PostgreSQL store for events and
// participation requests. It uses pgx directly (no ORM).
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes the store translates into domain errors.
const (
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// method runs unchanged inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store wires the repositories to a connection pool and provides the per-event
// capacity lock.
type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	events      *EventRepository
	requests    *RequestRepository
}

// NewStore constructs a Store. A zero lockTimeout waits for row locks forever.
func NewStore(pool *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{
		pool:        pool,
		lockTimeout: lockTimeout,
		events:      NewEventRepository(pool),
		requests:    NewRequestRepository(pool),
	}
}

// Events returns the event repository bound to the pool.
func (s *Store) Events() ports.EventRepo { return s.events }

// Requests returns the request repository bound to the pool.
func (s *Store) Requests() ports.RequestRepo { return s.requests }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type txScope struct {
	events   *EventRepository
	requests *RequestRepository
}

func (t txScope) Events() ports.EventRepo     { return t.events }
func (t txScope) Requests() ports.RequestRepo { return t.requests }

// LockEvent runs fn inside a transaction that holds a row lock on the event.
//
// SELECT ... FOR UPDATE blocks every other LockEvent call for the same event
// until this transaction commits or rolls back, so the confirmed count read
// by fn cannot change underneath it. Different events never contend.
// lock_timeout bounds the wait; a timeout surfaces as model.ErrTransient.
func (s *Store) LockEvent(ctx context.Context, eventID string, fn ports.LockedFunc) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", translate(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if s.lockTimeout > 0 {
		_, err = tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`,
			fmt.Sprintf("%dms", s.lockTimeout.Milliseconds()))
		if err != nil {
			return fmt.Errorf("set lock timeout: %w", translate(err))
		}
	}

	event, err := scanEvent(tx.QueryRow(ctx, selectEvents+` WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrEventNotFound
		}
		return fmt.Errorf("lock event row: %w", translate(err))
	}

	scope := txScope{
		events:   NewEventRepository(tx),
		requests: NewRequestRepository(tx),
	}
	if err = fn(ctx, scope, event); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", translate(err))
	}
	return nil
}

// translate marks lock contention as transient so the service may retry it.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
			return fmt.Errorf("%w: %w", model.ErrTransient, err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func toStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
