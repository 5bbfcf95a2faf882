// Package broadcast pushes full entity snapshots to connected websocket clients.
//
// Every frame is {"event": NAME, "data": SNAPSHOT}. Clients replace their cache for NAME
// wholesale, so a frame never needs the previous one.
package broadcast

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/metrics"
	"github.com/mycelian/postybirb/internal/model"
)

const (
	EventSubmissionUpdates       = "SUBMISSION_UPDATES"
	EventSettingsUpdates         = "SETTINGS_UPDATES"
	EventAccountUpdates          = "ACCOUNT_UPDATES"
	EventDirectoryWatcherUpdates = "DIRECTORY_WATCHER_UPDATES"
)

const writeTimeout = 5 * time.Second

type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// SnapshotFunc loads the current full state for one event.
type SnapshotFunc func(ctx context.Context) (any, error)

type source struct {
	event    string
	snapshot SnapshotFunc
}

type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *peer) writeFrame(f Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return websocket.JSON.Send(p.conn, f)
}

// Hub tracks live clients and the snapshot source of every event.
type Hub struct {
	log zerolog.Logger

	// emitMu orders snapshot reads with their writes so no client sees an older snapshot after a newer one.
	emitMu sync.Mutex

	mu      sync.Mutex
	peers   map[*peer]struct{}
	sources []source
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:   log.With().Str("component", "broadcast").Logger(),
		peers: make(map[*peer]struct{}),
	}
}

// Handler upgrades requests to the push channel. Inbound frames are ignored.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(conn *websocket.Conn) {
	p := &peer{conn: conn}
	h.add(p)
	defer h.remove(p)

	ctx := context.Background()
	if req := conn.Request(); req != nil {
		ctx = req.Context()
	}
	h.greet(ctx, p)

	_, _ = io.Copy(io.Discard, conn)
}

// greet sends every registered snapshot once to a new client.
func (h *Hub) greet(ctx context.Context, p *peer) {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()
	for _, s := range h.sourceList() {
		data, err := s.snapshot(ctx)
		if err != nil {
			h.log.Warn().Err(err).Str("event", s.event).Msg("greeting snapshot failed")
			continue
		}
		if err := p.writeFrame(Frame{Event: s.event, Data: data}); err != nil {
			h.log.Debug().Err(err).Msg("client went away during greeting")
			return
		}
	}
}

func (h *Hub) add(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()
	metrics.ConnectedClients.Inc()
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	_, ok := h.peers[p]
	delete(h.peers, p)
	h.mu.Unlock()
	if ok {
		metrics.ConnectedClients.Dec()
		_ = p.conn.Close()
	}
}

func (h *Hub) sourceList() []source {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]source(nil), h.sources...)
}

func (h *Hub) snapshotFor(event string) SnapshotFunc {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sources {
		if s.event == event {
			return s.snapshot
		}
	}
	return nil
}

// Clients reports how many clients are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Register makes event part of the greeting and available to Emit.
func (h *Hub) Register(event string, snapshot SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.sources {
		if s.event == event {
			h.sources[i].snapshot = snapshot
			return
		}
	}
	h.sources = append(h.sources, source{event: event, snapshot: snapshot})
}

// Watch registers event and re-emits it after every commit touching one of kinds.
// The change payload itself is not used; the snapshot is reloaded.
func (h *Hub) Watch(bus *events.Bus, event string, kinds []model.EntityKind, snapshot SnapshotFunc) func() {
	h.Register(event, snapshot)
	return bus.Subscribe(kinds, func(ctx context.Context, _ []events.Change) error {
		return h.Emit(ctx, event)
	})
}

// Emit loads the snapshot for event and sends it to every client. Clients that fail the write are dropped.
func (h *Hub) Emit(ctx context.Context, event string) error {
	snapshot := h.snapshotFor(event)
	if snapshot == nil {
		return nil
	}

	h.emitMu.Lock()
	defer h.emitMu.Unlock()
	data, err := snapshot(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	frame := Frame{Event: event, Data: data}
	for _, p := range peers {
		if err := p.writeFrame(frame); err != nil {
			h.log.Debug().Err(err).Str("event", event).Msg("dropping client")
			h.remove(p)
		}
	}
	metrics.BroadcastsSent.WithLabelValues(event).Inc()
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()
	for _, p := range peers {
		h.remove(p)
	}
}
