package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingExpirer struct {
	calls    atomic.Int64
	released int
	err      error
}

func (e *countingExpirer) ExpireDue(_ context.Context, _ int) (int, error) {
	e.calls.Add(1)
	return e.released, e.err
}

func TestSweeper_RunsUntilCancelled(t *testing.T) {
	t.Parallel()

	expirer := &countingExpirer{released: 2}
	sweeper := New(expirer, 5*time.Millisecond, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for expirer.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", expirer.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not stop on cancel")
	}
}

func TestSweeper_KeepsRunningAfterErrors(t *testing.T) {
	t.Parallel()

	expirer := &countingExpirer{err: errors.New("db down")}
	sweeper := New(expirer, 5*time.Millisecond, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	deadline := time.After(2 * time.Second)
	for expirer.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected sweeper to retry after an error, got %d calls", expirer.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	sweeper := New(&countingExpirer{}, 0, 0, nil)
	if sweeper.interval != 30*time.Second {
		t.Fatalf("expected default interval 30s, got %v", sweeper.interval)
	}
	if sweeper.batchSize != 100 {
		t.Fatalf("expected default batch size 100, got %d", sweeper.batchSize)
	}
	if sweeper.logger == nil {
		t.Fatalf("expected non-nil logger")
	}
}
