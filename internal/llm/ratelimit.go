package llm

import (
	"context"
	"encoding/json"
	"time"

	"stackforge/internal/llmclient"
)

// rpsLimiter is a lightweight token-bucket limiter that throttles to at most
// R requests per second with an optional burst capacity.
type rpsLimiter struct {
	tokens chan struct{}
	stopCh chan struct{}
}

// newRPSLimiter creates a limiter that allows up to rps events per second
// with a burst capacity of 'burst'. If rps <= 0, the limiter is disabled.
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	l := &rpsLimiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}

	// Pre-fill bucket to allow an initial burst.
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}

	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
					// bucket full; drop token
				}
			case <-l.stopCh:
				return
			}
		}
	}()

	return l
}

// Acquire blocks until a token is available or the context is canceled.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

// Stop terminates the limiter's refill goroutine.
func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	close(l.stopCh)
}

// RateLimit paces oracle calls to respect external request-per-second
// limits. Each GenerateJSON call waits for a bucket token first.
func RateLimit(rps float64, burst int) Middleware {
	limiter := newRPSLimiter(rps, burst)
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &limited{next: next, limiter: limiter}
	}
}

type limited struct {
	next    llmclient.LLMClient
	limiter *rpsLimiter
}

func (l *limited) Name() string { return l.next.Name() }
func (l *limited) Close() error {
	l.limiter.Stop()
	return l.next.Close()
}
func (l *limited) CountTokens(text string) int {
	return l.next.CountTokens(text)
}
func (l *limited) TokenCapacity() int { return l.next.TokenCapacity() }

func (l *limited) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := l.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return l.next.GenerateJSON(ctx, prompt, input)
}
