package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
)

const (
	// Worker pool size for page parsing at ingest
	defaultMaxWorkers = 15

	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 32 * time.Second
)

// RetryPolicy controls retries of rate-limited (429) calls. Other errors are never retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = baseRetryDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = maxRetryDelay
	}
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// RateLimitedCall waits for limiter approval for estimatedTokens, then calls fn,
// retrying on 429 errors according to policy. A nil limiter skips the wait.
func RateLimitedCall[T any](ctx context.Context, limiter *rate.Limiter, estimatedTokens int, policy RetryPolicy, log logger.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if limiter != nil {
		// WaitN rejects requests larger than the burst outright
		n := min(estimatedTokens, limiter.Burst())
		if err := limiter.WaitN(ctx, n); err != nil {
			return zero, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	} else if err := ctx.Err(); err != nil {
		return zero, err
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.delay(attempt)
			log.Info("Retry attempt %d/%d after %v delay", attempt, policy.MaxRetries, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info("Retry succeeded on attempt %d", attempt)
			}
			return result, nil
		}

		lastErr = err
		if !isRateLimitError(err) {
			return zero, err
		}
		log.Warn("Rate limit error (429) on attempt %d/%d: %v", attempt+1, policy.MaxRetries+1, err)
	}

	if policy.MaxRetries == 0 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("max retries (%d) exceeded, last error: %w", policy.MaxRetries, lastErr)
}

// isRateLimitError checks if an error is a 429 rate limit error
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	errStr := err.Error()
	for _, marker := range []string{"429", "rate limit", "rate_limit_exceeded", "Too Many Requests"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// RateLimitedCompleter decorates a Completer with a shared token budget and the retry policy.
// One instance is shared by every summarization request so they draw from the same budget.
type RateLimitedCompleter struct {
	next    Completer
	limiter *rate.Limiter
	policy  RetryPolicy
	log     logger.Logger
}

// NewRateLimitedCompleter wraps next. tokensPerSecond <= 0 disables rate limiting.
func NewRateLimitedCompleter(next Completer, tokensPerSecond, burstTokens int, policy RetryPolicy, log logger.Logger) *RateLimitedCompleter {
	var limiter *rate.Limiter
	if tokensPerSecond > 0 {
		if burstTokens <= 0 {
			burstTokens = tokensPerSecond
		}
		limiter = rate.NewLimiter(rate.Limit(tokensPerSecond), burstTokens)
	}
	return &RateLimitedCompleter{next: next, limiter: limiter, policy: policy, log: log}
}

func (c *RateLimitedCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return RateLimitedCall(ctx, c.limiter, estimateTokens(req), c.policy, c.log, func(ctx context.Context) (string, error) {
		return c.next.Complete(ctx, req)
	})
}

var _ Completer = (*RateLimitedCompleter)(nil)

// WorkerPool manages a pool of workers for parallel processing
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
}

// NewWorkerPool creates a new worker pool with the specified maximum workers
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Acquire acquires a worker slot, blocking if all workers are busy
func (wp *WorkerPool) Acquire(ctx context.Context) error {
	select {
	case wp.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a worker slot, allowing another worker to proceed
func (wp *WorkerPool) Release() {
	<-wp.semaphore
}

// ParallelCollect runs processFn over items on a pool of maxWorkers goroutines.
// results[i] and errs[i] belong to items[i] regardless of completion order.
// Items never started because ctx was cancelled get ctx.Err().
func ParallelCollect[T any, R any](
	ctx context.Context,
	items []T,
	maxWorkers int,
	processFn func(context.Context, int, T) (R, error),
) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}

	wp := NewWorkerPool(maxWorkers)

	type result struct {
		index int
		value R
		err   error
	}
	resultChan := make(chan result, len(items))

	launched := 0
	for i, item := range items {
		if err := wp.Acquire(ctx); err != nil {
			for j := i; j < len(items); j++ {
				errs[j] = err
			}
			break
		}
		launched++

		go func(idx int, itm T) {
			defer wp.Release()

			select {
			case <-ctx.Done():
				var zero R
				resultChan <- result{index: idx, value: zero, err: ctx.Err()}
				return
			default:
			}

			val, err := processFn(ctx, idx, itm)
			resultChan <- result{index: idx, value: val, err: err}
		}(i, item)
	}

	for range launched {
		res := <-resultChan
		results[res.index] = res.value
		errs[res.index] = res.err
	}

	return results, errs
}

// ParallelProcess processes items in parallel and fails on the first error (by item order).
func ParallelProcess[T any, R any](
	ctx context.Context,
	items []T,
	maxWorkers int,
	log logger.Logger,
	processFn func(context.Context, int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	results, errs := ParallelCollect(ctx, items, maxWorkers, processFn)
	for i, err := range errs {
		if err != nil {
			log.Error("Item %d failed: %v", i, err)
			return nil, err
		}
	}
	return results, nil
}
