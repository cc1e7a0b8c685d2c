package intent

import (
	"context"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
)

const defaultEmbedTimeout = 2 * time.Second

// ResilientEmbedder guards a remote embedding backend with a per-call
// timeout, retries and a circuit breaker. Exhausted calls surface the error;
// the classifier then degrades to the unknown intent.
type ResilientEmbedder struct {
	next    Embedder
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewResilientEmbedder(next Embedder, timeout time.Duration) *ResilientEmbedder {
	if timeout <= 0 {
		timeout = defaultEmbedTimeout
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedder",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &ResilientEmbedder{next: next, cb: cb, timeout: timeout}
}

func (e *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.cb.Execute(func() (any, error) {
		var vec []float32
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
		)
		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			var callErr error
			vec, callErr = e.next.Embed(tCtx, text)
			return callErr
		})
		if retryErr != nil {
			return nil, retryErr
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]float32), nil
}
