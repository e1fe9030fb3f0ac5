package devtools

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans runtime events out to websocket subscribers. Sends are
// non-blocking: a subscriber that falls behind its buffer loses events
// rather than stalling the reactive runtime.
type hub struct {
	logger  *slog.Logger
	dropped atomic.Uint64

	mu   sync.RWMutex
	subs map[*subscriber]bool
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger: logger,
		subs:   make(map[*subscriber]bool),
	}
}

func (h *hub) add(sub *subscriber) {
	h.mu.Lock()
	h.subs[sub] = true
	h.mu.Unlock()
}

// remove detaches the subscriber and closes its connection. Safe to call
// from both the read and write loops; only the first call closes.
func (h *hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	if ok {
		delete(h.subs, sub)
	}
	h.mu.Unlock()

	if ok {
		close(sub.send)
		sub.conn.Close()
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// publish broadcasts an event to all subscribers. With no subscribers it
// returns before marshalling, keeping the instrumentation hot path cheap.
func (h *hub) publish(ev Event) {
	if h.count() == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	for sub := range h.subs {
		select {
		case sub.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
	h.mu.RUnlock()
}

// readLoop discards inbound messages until the client disconnects.
func (h *hub) readLoop(sub *subscriber) {
	defer h.remove(sub)

	sub.conn.SetReadLimit(512)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Error("read error", "error", err)
			}
			return
		}
	}
}

// writeLoop pumps queued events to the connection and pings idle clients.
func (h *hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(sub)
	}()

	for {
		select {
		case data, ok := <-sub.send:
			if !ok {
				return
			}
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeAll disconnects every subscriber.
func (h *hub) closeAll() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
		delete(h.subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		close(sub.send)
		sub.conn.Close()
	}
}
