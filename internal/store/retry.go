package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// retryPolicy controls how write transactions are retried while another
// process holds the database lock.
type retryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		MaxAttempts:   5,
		InitialDelay:  25 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// isBusy reports whether err means the database was locked by another
// connection.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// do runs fn until it succeeds, fails with a non-busy error, or the attempts
// run out. Waits between attempts grow exponentially up to MaxDelay.
func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	delay := p.InitialDelay
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isBusy(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.BackoffFactor)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return lastErr
}

// withTx runs fn in a transaction, committing when it returns nil. The whole
// transaction is retried when SQLite reports the database busy.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.retry.do(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// exec runs a single write statement with the busy retry policy.
func (s *SQLiteStore) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	err := s.retry.do(ctx, func() error {
		var err error
		result, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	return result, err
}
