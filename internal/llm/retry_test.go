package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"stackforge/internal/llmclient"
)

type scriptedLLM struct {
	errs  []error
	resp  json.RawMessage
	calls int
}

func (s *scriptedLLM) Name() string               { return "scripted" }
func (s *scriptedLLM) Close() error               { return nil }
func (s *scriptedLLM) CountTokens(text string) int { return len(text) / 4 }
func (s *scriptedLLM) TokenCapacity() int          { return 1000 }

func (s *scriptedLLM) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.resp, nil
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	base := &scriptedLLM{
		errs: []error{errors.New("503 overloaded"), errors.New("503 overloaded"), nil},
		resp: json.RawMessage(`{"ok":true}`),
	}
	cli := Chain(base, Retry(3, time.Millisecond))

	raw, err := cli.GenerateJSON(context.Background(), "p", nil)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("unexpected response: %s", raw)
	}
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	perm := llmclient.NewPermanentError(errors.New("401 bad key"))
	base := &scriptedLLM{errs: []error{perm, perm, perm}}
	cli := Chain(base, Retry(3, time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	if !llmclient.IsPermanent(err) {
		t.Fatalf("want permanent error, got %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1", base.calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	e := errors.New("rate limit")
	base := &scriptedLLM{errs: []error{e, e, e, e}}
	cli := Chain(base, Retry(3, time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	if err == nil {
		t.Fatal("want error after exhausting attempts")
	}
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
}

func TestRateLimitBlocksUntilToken(t *testing.T) {
	base := &scriptedLLM{resp: json.RawMessage(`{}`)}
	cli := Chain(base, RateLimit(100, 1))
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := cli.GenerateJSON(ctx, "p", nil); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestComponentTagging(t *testing.T) {
	ctx := WithComponent(context.Background(), "backend")
	if got := ComponentFrom(ctx); got != "backend" {
		t.Fatalf("ComponentFrom = %q", got)
	}
	if got := ComponentFrom(context.Background()); got != "unknown" {
		t.Fatalf("ComponentFrom = %q, want unknown", got)
	}
}
