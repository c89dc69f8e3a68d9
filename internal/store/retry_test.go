package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
)

func fastRetry() retryPolicy {
	return retryPolicy{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func TestRetry_RetriesBusyUntilSuccess(t *testing.T) {
	calls := 0
	err := fastRetry().do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := fastRetry().do(context.Background(), func() error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrLocked}
	})
	if !isBusy(err) {
		t.Fatalf("expected the last busy error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestRetry_DoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("constraint failed")
	calls := 0
	err := fastRetry().do(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Errorf("expected one call returning boom, got %d calls, err %v", calls, err)
	}
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := fastRetry()
	p.InitialDelay = time.Hour
	err := p.do(ctx, func() error {
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
