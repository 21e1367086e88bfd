package events

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrWaitTimeout is returned by WaitFor when no matching event arrives in
// time.
var ErrWaitTimeout = errors.New("events: wait timed out")

const historyLimit = 1000

// Event is one pipeline notification. CorrelationID groups all events from
// the same generation run.
type Event struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Payload       map[string]any `json:"payload"`
	Source        string         `json:"source"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id"`
}

// Callback receives a published event. Callbacks run on their own
// goroutines; a panic in one is recovered and logged without affecting the
// publisher or sibling subscribers.
type Callback func(Event)

// Filter narrows History results. Zero-value fields match everything.
type Filter struct {
	Types         []string
	Source        string
	CorrelationID string
	Limit         int
}

// Channel is the in-process event bus: subscribe by type (or "*" for all),
// publish with fan-out, and query bounded history.
type Channel struct {
	mu          sync.Mutex
	subscribers map[string]map[int]Callback
	nextSubID   int
	history     []Event
	published   int
	byType      map[string]int
	bySource    map[string]int
	logger      *log.Logger
}

func NewChannel(logger *log.Logger) *Channel {
	if logger == nil {
		logger = log.Default()
	}
	return &Channel{
		subscribers: make(map[string]map[int]Callback),
		byType:      make(map[string]int),
		bySource:    make(map[string]int),
		logger:      logger,
	}
}

// Subscribe registers cb for events of the given type ("*" matches every
// type) and returns a cancel func that removes the subscription.
func (c *Channel) Subscribe(eventType string, cb Callback) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.subscribers[eventType]
	if subs == nil {
		subs = make(map[int]Callback)
		c.subscribers[eventType] = subs
	}
	id := c.nextSubID
	c.nextSubID++
	subs[id] = cb

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers[eventType], id)
	}
}

// Publish records the event in history and fans it out to subscribers.
// Each callback runs on its own goroutine; Publish returns after all of
// them complete. When correlationID is empty a fresh one is generated.
// The returned event carries the assigned ids.
func (c *Channel) Publish(eventType, source string, payload map[string]any, correlationID string) Event {
	if correlationID == "" {
		correlationID = NewID()
	}
	ev := Event{
		ID:            NewID(),
		Type:          eventType,
		Payload:       payload,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}

	c.mu.Lock()
	c.history = append(c.history, ev)
	if len(c.history) > historyLimit {
		c.history = c.history[len(c.history)-historyLimit:]
	}
	c.published++
	c.byType[eventType]++
	c.bySource[source]++

	var callbacks []Callback
	for _, cb := range c.subscribers[eventType] {
		callbacks = append(callbacks, cb)
	}
	for _, cb := range c.subscribers["*"] {
		callbacks = append(callbacks, cb)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, cb := range callbacks {
		wg.Add(1)
		go func(cb Callback) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Printf("events: subscriber panic on %s: %v", eventType, r)
				}
			}()
			cb(ev)
		}(cb)
	}
	wg.Wait()
	return ev
}

// History returns recorded events matching the filter, oldest first.
func (c *Channel) History(f Filter) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Event
	for _, ev := range c.history {
		if f.CorrelationID != "" && ev.CorrelationID != f.CorrelationID {
			continue
		}
		if f.Source != "" && ev.Source != f.Source {
			continue
		}
		if len(f.Types) > 0 && !containsString(f.Types, ev.Type) {
			continue
		}
		out = append(out, ev)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// CorrelationEvents returns every recorded event for one run.
func (c *Channel) CorrelationEvents(correlationID string) []Event {
	return c.History(Filter{CorrelationID: correlationID})
}

// Stats summarizes bus activity.
type Stats struct {
	TotalPublished int            `json:"total_published"`
	HistorySize    int            `json:"history_size"`
	ByType         map[string]int `json:"by_type"`
	BySource       map[string]int `json:"by_source"`
	Recent         []Event        `json:"recent"`
}

func (c *Channel) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		TotalPublished: c.published,
		HistorySize:    len(c.history),
		ByType:         make(map[string]int, len(c.byType)),
		BySource:       make(map[string]int, len(c.bySource)),
	}
	for k, v := range c.byType {
		s.ByType[k] = v
	}
	for k, v := range c.bySource {
		s.BySource[k] = v
	}
	n := 5
	if len(c.history) < n {
		n = len(c.history)
	}
	s.Recent = append(s.Recent, c.history[len(c.history)-n:]...)
	return s
}

// WaitFor blocks until an event of the given type is published or the
// timeout elapses.
func (c *Channel) WaitFor(eventType string, timeout time.Duration) (Event, error) {
	ch := make(chan Event, 1)
	cancel := c.Subscribe(eventType, func(ev Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	defer cancel()

	select {
	case ev := <-ch:
		return ev, nil
	case <-time.After(timeout):
		return Event{}, ErrWaitTimeout
	}
}

// NewID returns a random 16-hex-char identifier.
func NewID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("150405.000")))
	}
	return hex.EncodeToString(b[:])
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
