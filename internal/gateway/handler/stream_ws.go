package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"stackforge/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The edge handles origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// streamRun upgrades to a websocket and streams the run's pipeline events:
// history first, then live events as they are published. The socket closes
// when the client goes away or the run's events stop mattering to it.
func (h *Handler) streamRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := h.Sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Printf("stream %s: upgrade: %v", id, err)
		return
	}

	writeCh := make(chan events.Event, 64)
	done := make(chan struct{})

	// Live events for this run are queued before history replay so nothing
	// is missed in between; the client may see an occasional duplicate and
	// can dedupe on event id.
	cancel := h.Events.Subscribe("*", func(ev events.Event) {
		if run.CorrelationID != "" && ev.CorrelationID != run.CorrelationID {
			return
		}
		select {
		case writeCh <- ev:
		case <-done:
		default:
			// slow client; drop rather than block the bus
		}
	})

	var replay []events.Event
	if run.CorrelationID != "" {
		replay = h.Events.CorrelationEvents(run.CorrelationID)
	}

	// reader: consume control frames and detect client close
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		cancel()
		conn.Close()
	}()

	for _, ev := range replay {
		if err := writeEvent(conn, ev); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev := <-writeCh:
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev events.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
