package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/sigma-quantiphi/polymarket-pandas/logger"
)

// Op is one unit of work, typically a single API request.
type Op func(ctx context.Context) (any, error)

// Result pairs an operation's value with its error when errors are captured
// per slot instead of propagated.
type Result struct {
	Value any
	Err   error
}

// Options controls RunAll scheduling and error handling.
type Options struct {
	// MaxParallel bounds in-flight operations. Zero or negative means
	// unbounded.
	MaxParallel int
	// ReturnExceptions captures each operation's error in its Result slot
	// instead of failing the whole batch on the first error.
	ReturnExceptions bool
}

// RunAll executes all operations concurrently, at most MaxParallel at a time,
// and returns results in submission order. Without ReturnExceptions the first
// error cancels the remaining operations and is returned; with it every slot
// carries its own error and RunAll itself only fails on context cancellation
// before submission.
func RunAll(ctx context.Context, ops []Op, opts Options) ([]Result, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sem chan struct{}
	if opts.MaxParallel > 0 {
		sem = make(chan struct{}, opts.MaxParallel)
	}

	results := make([]Result, len(ops))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, op := range ops {
		if sem != nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				if firstErr != nil {
					return nil, firstErr
				}
				return nil, ctx.Err()
			}
		}

		wg.Add(1)
		go func(i int, op Op) {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}

			v, err := op(ctx)
			results[i] = Result{Value: v, Err: err}
			if err != nil && !opts.ReturnExceptions {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("operation %d: %w", i, err)
					cancel()
				}
				mu.Unlock()
			}
		}(i, op)
	}

	wg.Wait()
	if firstErr != nil {
		logger.GetLogger().WithComponent("fetch").WithError(firstErr).
			Debug("batch aborted on first error")
		return nil, firstErr
	}
	return results, nil
}

// Values unwraps a Result slice obtained with ReturnExceptions disabled.
func Values(results []Result) []any {
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}

// Group bundles several operations into one whose result is the slice of
// their values in order. RunAll result flattening unwraps the group one
// level, so grouped records land in outer-then-inner order.
func Group(ops ...Op) Op {
	return func(ctx context.Context) (any, error) {
		values := make([]any, 0, len(ops))
		for _, op := range ops {
			v, err := op(ctx)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	}
}

// Concat merges operation results into one record slice. Each result may be
// a single record, a slice of records, or a one-level nested slice of either;
// empty slices and failed slots are tolerated.
func Concat(results []Result) []map[string]any {
	var out []map[string]any
	for _, r := range results {
		if r.Err != nil || r.Value == nil {
			continue
		}
		out = appendRecords(out, r.Value, true)
	}
	return out
}

func appendRecords(out []map[string]any, v any, nested bool) []map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return append(out, x)
	case []map[string]any:
		return append(out, x...)
	case []any:
		for _, elem := range x {
			if nested {
				out = appendRecords(out, elem, false)
			} else if rec, ok := elem.(map[string]any); ok {
				out = append(out, rec)
			}
		}
	}
	return out
}
