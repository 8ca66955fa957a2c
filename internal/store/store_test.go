package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stream-compositor/internal/complexity"
	"stream-compositor/internal/validator"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "diag.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("store.Close: %v", err)
		}
	})
	return s
}

func TestRecordAndQueryValidations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.RecordValidation("sess-a", 1, validator.Result{
		Stable:     false,
		FrameCount: 2,
		Elapsed:    3 * time.Second,
		Err:        validator.ErrTimeout,
	})
	s.RecordValidation("sess-a", 2, validator.Result{
		Stable:     true,
		FrameCount: 5,
		Elapsed:    180 * time.Millisecond,
	})

	recs, err := s.RecentValidations(ctx, 10)
	if err != nil {
		t.Fatalf("RecentValidations: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	// Newest first.
	if !recs[0].Stable || recs[0].Attempt != 2 {
		t.Fatalf("newest record = %+v, want stable attempt 2", recs[0])
	}
	if recs[1].Stable || recs[1].Error == "" {
		t.Fatalf("oldest record = %+v, want unstable with error text", recs[1])
	}
	if recs[1].Elapsed != 3*time.Second {
		t.Fatalf("Elapsed = %v, want 3s", recs[1].Elapsed)
	}
}

func TestRecordAndQueryComplexitySamples(t *testing.T) {
	s := newTestStore(t)

	s.RecordComplexitySample("sess-b", complexity.Metrics{
		Spatial:       0.12,
		Temporal:      0.05,
		FrameVariance: 0.3,
		Overall:       0.14,
		IsLow:         true,
	}, 0.16)

	recs, err := s.RecentComplexitySamples(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentComplexitySamples: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d samples, want 1", len(recs))
	}
	got := recs[0]
	if got.SessionID != "sess-b" || !got.IsLow {
		t.Fatalf("sample = %+v, want sess-b low-complexity", got)
	}
	if got.Overall != 0.14 || got.Smoothed != 0.16 {
		t.Fatalf("scores = %.2f/%.2f, want 0.14/0.16", got.Overall, got.Smoothed)
	}
}

func TestStatsAggregation(t *testing.T) {
	s := newTestStore(t)

	s.RecordValidation("a", 1, validator.Result{Stable: true, FrameCount: 5})
	s.RecordValidation("b", 1, validator.Result{Err: validator.ErrTimeout})
	s.RecordValidation("b", 2, validator.Result{Stable: true, FrameCount: 5})

	vs, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := ValidationStats{Total: 3, Stable: 2, Unstable: 1, Retries: 1}
	if vs != want {
		t.Fatalf("Stats = %+v, want %+v", vs, want)
	}
}

func TestPruneRemovesNothingInsideRetention(t *testing.T) {
	s := newTestStore(t)
	s.RecordValidation("a", 1, validator.Result{Stable: true})

	n, err := s.Prune(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 0 {
		t.Fatalf("pruned %d fresh records, want 0", n)
	}

	recs, err := s.RecentValidations(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentValidations: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("record count after prune = %d, want 1", len(recs))
	}
}

func TestNewFailsOnMissingDirectory(t *testing.T) {
	_, err := New(context.Background(), "/nonexistent-dir-for-test/diag.db")
	if err == nil {
		t.Fatal("expected an error for an unwritable database path")
	}
}

func TestRecentValidationsEmptyStore(t *testing.T) {
	s := newTestStore(t)
	recs, err := s.RecentValidations(context.Background(), 10)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("RecentValidations on empty store: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("got %d records from empty store", len(recs))
	}
}
