// Package socket implements the event-channel transport over a
// websocket connection: named-event emit and dispatch, read/write pumps,
// and backpressure on the send buffer.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solstice-app/breakout/internal/core"
)

const writeWait = 5 * time.Second

var ErrNotConnected = errors.New("socket: not connected")

// Options tune the connection. Zero values fall back to defaults.
type Options struct {
	SendBuffer int           // outbound frame buffer (default 32)
	ReadLimit  int64         // max inbound frame size (default 32768)
	PingPeriod time.Duration // ping interval (default 54s)
}

func (o *Options) withDefaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
}

// Socket is a client-side core.Transport over gorilla/websocket.
// Inbound frames are dispatched to named handlers synchronously on the
// read pump, preserving arrival order.
type Socket struct {
	url    string
	tokens core.TokenProvider
	opts   Options

	mu        sync.RWMutex
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	connected bool
	handlers  map[string]core.EventHandler
}

func New(url string, tokens core.TokenProvider, opts Options) *Socket {
	opts.withDefaults()
	return &Socket{
		url:      url,
		tokens:   tokens,
		opts:     opts,
		handlers: make(map[string]core.EventHandler),
	}
}

// Connect dials the server and starts the pumps. Calling Connect on an
// already-connected socket is a no-op.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}

	header := http.Header{}
	if s.tokens != nil {
		token, err := s.tokens.Token()
		if err != nil {
			return fmt.Errorf("socket: auth token: %w", err)
		}
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("socket: dial %s: %w", s.url, err)
	}
	conn.SetReadLimit(s.opts.ReadLimit)

	s.conn = conn
	s.send = make(chan []byte, s.opts.SendBuffer)
	s.done = make(chan struct{})
	s.connected = true
	log.Info().Str("module", "adapters.socket").Str("url", s.url).Msg("connected")

	go s.writePump(conn, s.send, s.done)
	go s.readPump(conn, s.done)
	return nil
}

// Disconnect tears the connection down. Safe to call repeatedly and
// from any state.
func (s *Socket) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	s.connected = false
	close(s.done)
	// Best-effort close handshake; the server may already be gone.
	deadline := time.Now().Add(writeWait)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := s.conn.Close()
	s.conn = nil
	log.Info().Str("module", "adapters.socket").Msg("disconnected")
	return err
}

func (s *Socket) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

type outFrame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Emit queues one named event. Returns core.ErrBackpressure when the
// send buffer is full; the frame is dropped, not queued.
func (s *Socket) Emit(name string, payload any) error {
	data, err := json.Marshal(outFrame{Event: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("socket: encode %s: %w", name, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return ErrNotConnected
	}
	select {
	case s.send <- data:
		return nil
	default:
		log.Warn().Str("module", "adapters.socket").Str("event", name).Msg("send buffer full, frame dropped")
		return core.ErrBackpressure
	}
}

// On registers the handler for a named event, replacing any previous one.
func (s *Socket) On(name string, h core.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// Off removes the handler for a named event.
func (s *Socket) Off(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, name)
}

func (s *Socket) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.socket").Msg("writePump ping")
				return
			}
		case data := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.socket").Msg("writePump set deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.socket").Msg("writePump write error")
				return
			}
		}
	}
}

func (s *Socket) readPump(conn *websocket.Conn, done <-chan struct{}) {
	defer s.markClosed(conn)
	pongWait := s.opts.PingPeriod * 10 / 9
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		select {
		case <-done:
			return
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("module", "adapters.socket").Msg("readPump closed unexpectedly")
			}
			return
		}
		s.dispatch(data)
	}
}

// dispatch routes one inbound frame by its top-level event name. Frames
// with no registered handler are dropped quietly; the subscription set
// is the facade's concern.
func (s *Socket) dispatch(data []byte) {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Event == "" {
		log.Warn().Str("module", "adapters.socket").Msg("frame without event name dropped")
		return
	}
	s.mu.RLock()
	h, ok := s.handlers[head.Event]
	s.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "adapters.socket").Str("event", head.Event).Msg("no handler")
		return
	}
	h(data)
}

// markClosed flips the connected flag when the read pump exits because
// the peer went away (as opposed to a local Disconnect).
func (s *Socket) markClosed(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn && s.connected {
		s.connected = false
		_ = conn.Close()
		s.conn = nil
		log.Warn().Str("module", "adapters.socket").Msg("connection lost")
	}
}
