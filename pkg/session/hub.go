package session

import (
	"log/slog"
	"sync"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
)

// Hub fans status events out to per-graph subscribers.
// Slow subscribers lose events rather than blocking the graph store.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan domain.StatusEvent
	nextID int
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		subs:   make(map[string]map[int]chan domain.StatusEvent),
		logger: logger,
	}
}

// Subscribe registers a subscriber for graphID. The returned cancel func
// closes the channel and must be called once the caller is done.
func (h *Hub) Subscribe(graphID string, buffer int) (<-chan domain.StatusEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.StatusEvent, buffer)
	id := h.nextID
	h.nextID++
	if h.subs[graphID] == nil {
		h.subs[graphID] = make(map[int]chan domain.StatusEvent)
	}
	h.subs[graphID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[graphID], id)
			if len(h.subs[graphID]) == 0 {
				delete(h.subs, graphID)
			}
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber of its graph without blocking.
func (h *Hub) Publish(ev domain.StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[ev.GraphID] {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("dropping status event for slow subscriber",
				"graph_id", ev.GraphID,
				"node_id", ev.NodeID,
			)
		}
	}
}

// Subscribers returns the number of subscribers of graphID.
func (h *Hub) Subscribers(graphID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[graphID])
}
