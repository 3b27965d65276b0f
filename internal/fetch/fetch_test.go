package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunAllPreservesSubmissionOrder(t *testing.T) {
	ops := []Op{
		func(ctx context.Context) (any, error) {
			time.Sleep(20 * time.Millisecond)
			return "slow", nil
		},
		func(ctx context.Context) (any, error) {
			return "fast", nil
		},
	}
	results, err := RunAll(context.Background(), ops, Options{MaxParallel: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Value != "slow" || results[1].Value != "fast" {
		t.Fatalf("results out of submission order: %v", results)
	}
}

func TestRunAllBoundsParallelism(t *testing.T) {
	var inFlight, peak int64
	op := func(ctx context.Context) (any, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil, nil
	}
	ops := []Op{op, op, op, op, op, op}
	if _, err := RunAll(context.Background(), ops, Options{MaxParallel: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := atomic.LoadInt64(&peak); p > 2 {
		t.Fatalf("parallelism exceeded bound: peak %d", p)
	}
}

func TestRunAllFirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	ops := []Op{
		func(ctx context.Context) (any, error) { return nil, boom },
		func(ctx context.Context) (any, error) { return "ok", nil },
	}
	_, err := RunAll(context.Background(), ops, Options{MaxParallel: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRunAllReturnExceptions(t *testing.T) {
	boom := errors.New("boom")
	ops := []Op{
		func(ctx context.Context) (any, error) { return "a", nil },
		func(ctx context.Context) (any, error) { return nil, boom },
		func(ctx context.Context) (any, error) { return "c", nil },
	}
	results, err := RunAll(context.Background(), ops, Options{MaxParallel: 1, ReturnExceptions: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Value != "a" || results[2].Value != "c" {
		t.Fatalf("good slots corrupted: %v", results)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Fatalf("expected captured error in slot 1, got %v", results[1].Err)
	}
}

func TestRunAllEmpty(t *testing.T) {
	results, err := RunAll(context.Background(), nil, Options{})
	if err != nil || results != nil {
		t.Fatalf("empty batch must be a no-op, got %v %v", results, err)
	}
}

func TestGroupFlattensOuterThenInner(t *testing.T) {
	mk := func(id string) Op {
		return func(ctx context.Context) (any, error) {
			return map[string]any{"id": id}, nil
		}
	}
	ops := []Op{Group(mk("a"), mk("b")), mk("c")}
	results, err := RunAll(context.Background(), ops, Options{MaxParallel: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records := Concat(results)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"a", "b", "c"} {
		if records[i]["id"] != want {
			t.Fatalf("record %d: expected %s, got %v", i, want, records[i]["id"])
		}
	}
}

func TestConcatOneLevel(t *testing.T) {
	results := []Result{
		{Value: map[string]any{"id": "a"}},
		{Value: []map[string]any{{"id": "b"}, {"id": "c"}}},
		{Value: []any{
			[]any{map[string]any{"id": "d"}},
			map[string]any{"id": "e"},
		}},
		{Value: []any{}},
		{Err: errors.New("skipped")},
	}
	records := Concat(results)
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d: %v", len(records), records)
	}
	if records[4]["id"] != "e" {
		t.Fatalf("flatten order broken: %v", records)
	}
}
