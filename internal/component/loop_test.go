package component

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"stackforge/internal/contract"
	"stackforge/internal/events"
)

type stubLLM struct {
	resp  json.RawMessage
	err   error
	calls int
}

func (s *stubLLM) Name() string                { return "stub" }
func (s *stubLLM) Close() error                { return nil }
func (s *stubLLM) CountTokens(text string) int { return len(text) / 4 }
func (s *stubLLM) TokenCapacity() int          { return 100000 }

func (s *stubLLM) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestLoop(cli *stubLLM) (*Loop, *events.Channel) {
	ch := events.NewChannel(quiet())
	reg := contract.NewRegistry(nil, quiet())
	return NewLoop(cli, reg, ch, 8.0, 5, quiet()), ch
}

func TestGenerateStopsAfterMaxCyclesAndKeepsBestOutput(t *testing.T) {
	// The stub always returns a single tiny file, which can never reach the
	// target score, so the loop must burn exactly MaxCycles and still
	// report success with the files it has.
	low, _ := json.Marshal(map[string]string{"src/stub.js": "const x = 1;"})
	cli := &stubLLM{resp: low}
	loop, ch := newTestLoop(cli)

	res := loop.Generate(context.Background(), Backend{}, []string{"items"}, "run-1")

	if !res.Success {
		t.Fatalf("exhausted refinement should still succeed: %+v", res)
	}
	if res.RefinementCycles != loop.MaxCycles {
		t.Fatalf("cycles = %d, want %d", res.RefinementCycles, loop.MaxCycles)
	}
	if len(res.Files) == 0 {
		t.Fatal("best-so-far files dropped")
	}
	// initial call + one call per cycle
	if cli.calls != loop.MaxCycles+1 {
		t.Fatalf("oracle calls = %d, want %d", cli.calls, loop.MaxCycles+1)
	}

	cycles := ch.History(events.Filter{Types: []string{"refinement_cycle_completed"}})
	if len(cycles) != loop.MaxCycles {
		t.Fatalf("refinement events = %d, want %d", len(cycles), loop.MaxCycles)
	}
	done := ch.History(events.Filter{Types: []string{"component_generation_completed"}})
	if len(done) != 1 {
		t.Fatalf("completion events = %d, want 1", len(done))
	}
}

func TestGenerateOracleFailure(t *testing.T) {
	cli := &stubLLM{err: errors.New("503 overloaded")}
	loop, ch := newTestLoop(cli)

	res := loop.Generate(context.Background(), Backend{}, []string{"items"}, "run-1")

	if res.Success {
		t.Fatal("oracle failure reported as success")
	}
	if res.QualityScore != 0 || len(res.Files) != 0 {
		t.Fatalf("failed result not empty: score=%v files=%d", res.QualityScore, len(res.Files))
	}
	if res.ErrorMessage == "" {
		t.Fatal("error message missing")
	}

	failed := ch.History(events.Filter{Types: []string{"component_generation_failed"}})
	if len(failed) != 1 {
		t.Fatalf("failure events = %d, want exactly 1", len(failed))
	}
	if got := ch.History(events.Filter{Types: []string{"component_generation_completed"}}); len(got) != 0 {
		t.Fatal("failure also published a completion event")
	}
}

func TestGenerateRegistersExtractedContracts(t *testing.T) {
	files := map[string]string{
		"src/routes/items.js": `const router = require('express').Router();
const c = require('../controllers/itemController');
router.get('/api/items', c.list);
router.post('/api/items', c.create);
module.exports = router;
// padding padding padding padding padding padding padding padding
try { } catch (e) { }
async function noop() { await Promise.resolve(); }
console.log('routes loaded');
`,
	}
	raw, _ := json.Marshal(files)
	cli := &stubLLM{resp: raw}

	ch := events.NewChannel(quiet())
	reg := contract.NewRegistry(nil, quiet())
	loop := NewLoop(cli, reg, ch, 1.0, 5, quiet()) // low target: no refinement

	res := loop.Generate(context.Background(), Backend{}, []string{"items"}, "run-1")
	if !res.Success {
		t.Fatalf("generate failed: %s", res.ErrorMessage)
	}
	if len(res.Contracts.Endpoints) != 2 {
		t.Fatalf("extracted endpoints = %d, want 2", len(res.Contracts.Endpoints))
	}

	fc, ok := reg.Get("items")
	if !ok {
		t.Fatal("feature contract not registered")
	}
	if len(fc.Endpoints) != 2 || fc.CreatedBy != "backend" {
		t.Fatalf("registered contract = %+v", fc)
	}
}

func TestGenerateFallsBackToSkeletonOnGarbage(t *testing.T) {
	cli := &stubLLM{resp: json.RawMessage(`"just a string, not a file map"`)}
	ch := events.NewChannel(quiet())
	reg := contract.NewRegistry(nil, quiet())
	loop := NewLoop(cli, reg, ch, 1.0, 5, quiet())

	res := loop.Generate(context.Background(), Database{}, []string{"items"}, "")
	if !res.Success {
		t.Fatalf("skeleton fallback should succeed: %+v", res)
	}
	if _, ok := res.Files["migrations/001_init.sql"]; !ok {
		t.Fatalf("skeleton files missing: %v", res.Files)
	}
}
