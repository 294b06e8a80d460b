// Package ws streams match events to observers over websockets.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/settlersim/internal/engine"
)

// ProtocolVersion is the envelope version observers receive.
const ProtocolVersion = "1.0"

const (
	clientBuffer = 256
	replayCount  = 50
	writeWait    = 5 * time.Second
	readWait     = 60 * time.Second
	pingPeriod   = readWait * 9 / 10
)

// Envelope wraps one event on the wire.
type Envelope struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Replay          bool         `json:"replay,omitempty"`
	Event           engine.Event `json:"event"`
}

// Hub fans events out to connected observers. Publish never blocks: a
// client that falls behind loses events.
type Hub struct {
	upgrader websocket.Upgrader
	recent   func(n int) []engine.Event

	// Observers only listen, so liveness comes from pongs.
	readWait   time.Duration
	pingPeriod time.Duration

	mu      sync.Mutex
	clients map[uint64]chan []byte

	nextID  atomic.Uint64
	dropped atomic.Uint64
}

// NewHub creates a hub. recent, if set, supplies the backlog replayed to
// each new observer.
func NewHub(recent func(n int) []engine.Event) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		recent:     recent,
		readWait:   readWait,
		pingPeriod: pingPeriod,
		clients:    make(map[uint64]chan []byte),
	}
}

// Clients returns the number of connected observers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many messages were discarded for slow observers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Publish sends e to every observer. Safe to use as a bus subscriber.
func (h *Hub) Publish(e engine.Event) {
	b, err := encode(e, false)
	if err != nil {
		slog.Warn("ws encode failed", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

func encode(e engine.Event, replay bool) ([]byte, error) {
	return json.Marshal(Envelope{Type: "EVENT", ProtocolVersion: ProtocolVersion, Replay: replay, Event: e})
}

func (h *Hub) register() (uint64, chan []byte) {
	id := h.nextID.Add(1)
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *Hub) unregister(id uint64) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// Handler upgrades the request and streams events until the observer
// disconnects. Observers only listen; anything they send is ignored.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, out := h.register()
		defer h.unregister(id)
		slog.Debug("observer connected", "id", id, "remote", r.RemoteAddr)

		if h.recent != nil {
			for _, e := range h.recent(replayCount) {
				b, err := encode(e, true)
				if err != nil {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		_ = conn.SetReadDeadline(time.Now().Add(h.readWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.readWait))
		})

		// Reader: drain, process pongs, and notice the close.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
				_ = conn.SetReadDeadline(time.Now().Add(h.readWait))
			}
		}()

		ping := time.NewTicker(h.pingPeriod)
		defer ping.Stop()

		for {
			select {
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
				slog.Debug("observer disconnected", "id", id)
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}
