package devserver

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solstice-app/breakout/internal/domain"
)

// client is one connected socket with a buffered outbound queue.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func (c *client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// Hub fans events out to every socket attached to a session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[domain.SessionID]map[*client]struct{})}
}

func (h *Hub) add(sessionID domain.SessionID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[sessionID]
	if !ok {
		set = make(map[*client]struct{})
		h.sessions[sessionID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(sessionID domain.SessionID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions[sessionID], c)
}

// Broadcast sends one event frame to every socket in the session. Slow
// consumers are dropped from this frame, not disconnected.
func (h *Hub) Broadcast(sessionID domain.SessionID, frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Str("module", "devserver").Msg("encode broadcast")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.sessions[sessionID] {
		if !c.trySend(data) {
			log.Warn().Str("module", "devserver").Str("session", string(sessionID)).Msg("slow consumer, frame dropped")
		}
	}
}
