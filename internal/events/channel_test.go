package events

import (
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"
)

func quietChannel() *Channel {
	return NewChannel(log.New(io.Discard, "", 0))
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	c := quietChannel()
	var got atomic.Int32

	c.Subscribe("generation_started", func(Event) { got.Add(1) })
	c.Subscribe("generation_started", func(Event) { got.Add(1) })
	c.Subscribe("*", func(Event) { got.Add(1) })

	c.Publish("generation_started", "pipeline", nil, "")
	if got.Load() != 3 {
		t.Fatalf("deliveries = %d, want 3", got.Load())
	}
}

func TestPanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	c := quietChannel()
	var delivered atomic.Int32

	c.Subscribe("x", func(Event) { panic("boom") })
	c.Subscribe("x", func(Event) { delivered.Add(1) })

	// Publish must return normally and the sibling must still run.
	c.Publish("x", "test", nil, "")
	if delivered.Load() != 1 {
		t.Fatalf("sibling deliveries = %d, want 1", delivered.Load())
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	c := quietChannel()
	var got atomic.Int32
	cancel := c.Subscribe("x", func(Event) { got.Add(1) })

	c.Publish("x", "test", nil, "")
	cancel()
	c.Publish("x", "test", nil, "")

	if got.Load() != 1 {
		t.Fatalf("deliveries = %d, want 1", got.Load())
	}
}

func TestHistoryBoundedAndFiltered(t *testing.T) {
	c := quietChannel()
	for i := 0; i < historyLimit+50; i++ {
		c.Publish("tick", "test", nil, "run-1")
	}
	if got := len(c.History(Filter{})); got != historyLimit {
		t.Fatalf("history size = %d, want %d", got, historyLimit)
	}

	c.Publish("other", "elsewhere", nil, "run-2")
	if got := c.History(Filter{CorrelationID: "run-2"}); len(got) != 1 || got[0].Type != "other" {
		t.Fatalf("correlation filter = %+v", got)
	}
	if got := c.History(Filter{Types: []string{"other"}}); len(got) != 1 {
		t.Fatalf("type filter = %+v", got)
	}
	if got := c.History(Filter{Limit: 3}); len(got) != 3 {
		t.Fatalf("limit filter = %d events", len(got))
	}
}

func TestCorrelationIDPropagates(t *testing.T) {
	c := quietChannel()
	first := c.Publish("a", "test", nil, "")
	if first.CorrelationID == "" {
		t.Fatal("empty correlation id not replaced")
	}
	c.Publish("b", "test", nil, first.CorrelationID)

	run := c.CorrelationEvents(first.CorrelationID)
	if len(run) != 2 {
		t.Fatalf("run events = %d, want 2", len(run))
	}
}

func TestWaitForTimesOut(t *testing.T) {
	c := quietChannel()
	_, err := c.WaitFor("never", 20*time.Millisecond)
	if err != ErrWaitTimeout {
		t.Fatalf("err = %v, want ErrWaitTimeout", err)
	}
}

func TestWaitForReceivesEvent(t *testing.T) {
	c := quietChannel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ev, err := c.WaitFor("ready", time.Second)
		if err != nil || ev.Type != "ready" {
			t.Errorf("WaitFor = %+v, %v", ev, err)
		}
	}()
	time.Sleep(10 * time.Millisecond)
	c.Publish("ready", "test", nil, "")
	<-done
}

func TestStats(t *testing.T) {
	c := quietChannel()
	c.Publish("a", "s1", nil, "")
	c.Publish("a", "s1", nil, "")
	c.Publish("b", "s2", nil, "")

	s := c.Stats()
	if s.TotalPublished != 3 || s.ByType["a"] != 2 || s.BySource["s2"] != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if len(s.Recent) != 3 {
		t.Fatalf("recent = %d, want 3", len(s.Recent))
	}
}
