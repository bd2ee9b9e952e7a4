// Package app is the operation surface of the breakout client: one
// method per user action, preferring the live event channel and falling
// back to REST when the channel is unavailable or an action fails.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solstice-app/breakout/internal/adapters/rest"
	"github.com/solstice-app/breakout/internal/clock"
	"github.com/solstice-app/breakout/internal/core"
	"github.com/solstice-app/breakout/internal/domain"
	"github.com/solstice-app/breakout/internal/event"
	"github.com/solstice-app/breakout/internal/projection"
)

// Options tune the facade. Zero values fall back to defaults.
type Options struct {
	AckTimeout     time.Duration // create-room acknowledgment wait (default 8s)
	CreatePoll     RetryPolicy   // poll-for-existence after a failed REST create
	ReconnectPause time.Duration // pause between disconnect and redial (default 1s)
	Clock          clock.Clock
	OnEvent        func(*event.Envelope) // optional consumer hook for folded events
}

func (o Options) withDefaults() Options {
	if o.AckTimeout <= 0 {
		o.AckTimeout = 8 * time.Second
	}
	o.CreatePoll = o.CreatePoll.withDefaults()
	if o.ReconnectPause <= 0 {
		o.ReconnectPause = time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	return o
}

type createResult struct {
	room *domain.Room
	err  error
}

// Client is one session's breakout-room client. Construct one per
// session/connection context; there is no shared global instance.
type Client struct {
	sessionID domain.SessionID
	transport core.Transport
	rest      *rest.Client
	proj      *projection.Projection
	reducer   *projection.Reducer
	metrics   *projection.Metrics
	clk       clock.Clock
	opts      Options

	mu             sync.Mutex
	state          core.State
	subscribed     bool
	pendingCreates map[string]chan createResult // keyed by requested room name
	pendingJoin    domain.RoomID                // optimistic join awaiting server echo
}

func New(sessionID domain.SessionID, transport core.Transport, restClient *rest.Client, opts Options) *Client {
	opts = opts.withDefaults()
	proj := projection.New()
	return &Client{
		sessionID:      sessionID,
		transport:      transport,
		rest:           restClient,
		proj:           proj,
		reducer:        projection.NewReducer(proj),
		metrics:        projection.NewMetrics(proj),
		clk:            opts.Clock,
		opts:           opts,
		pendingCreates: make(map[string]chan createResult),
	}
}

// Connect brings the event channel up. It is idempotent when already
// connected and rejects a second connect while one is in flight.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case core.StateConnected:
		c.mu.Unlock()
		return nil
	case core.StateConnecting:
		c.mu.Unlock()
		return ErrConnectInFlight
	}
	c.setStateLocked(core.StateConnecting)
	if !c.subscribed {
		for _, name := range event.InboundNames() {
			c.transport.On(name, c.handleFrame)
		}
		c.subscribed = true
	}
	c.mu.Unlock()

	if err := c.transport.Connect(ctx); err != nil {
		c.setState(core.StateError)
		return fmt.Errorf("breakout: connect: %w", err)
	}
	c.setState(core.StateConnected)
	log.Info().Str("module", "app").Str("session", string(c.sessionID)).Msg("event channel connected")
	return nil
}

// Disconnect tears the channel down from any state, emitting a
// best-effort leaving notification first.
func (c *Client) Disconnect() error {
	if room := c.proj.CurrentRoom(); room != "" && c.transport.Connected() {
		_ = c.transport.Emit(event.EmitLeaveRoom, event.LeaveRoomPayload{
			SessionID: c.sessionID,
			RoomID:    room,
			Timestamp: c.clk.Now().UnixMilli(),
		})
	}
	err := c.transport.Disconnect()
	c.setState(core.StateDisconnected)
	log.Info().Str("module", "app").Str("session", string(c.sessionID)).Msg("event channel disconnected")
	return err
}

// Reconnect cycles the connection: disconnect, a short pause, connect.
// A reconnect racing an in-flight connect is rejected rather than run
// concurrently.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == core.StateConnecting {
		c.mu.Unlock()
		return ErrConnectInFlight
	}
	c.mu.Unlock()
	if err := c.Disconnect(); err != nil {
		log.Warn().Err(err).Str("module", "app").Msg("disconnect before reconnect")
	}
	c.clk.Sleep(c.opts.ReconnectPause)
	return c.Connect(ctx)
}

// State reports the connection state machine's current state.
func (c *Client) State() core.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s core.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateLocked(s)
}

func (c *Client) setStateLocked(s core.State) {
	c.state = s
	c.proj.SetConnectionState(s)
}

// Projection exposes the folded room/participant state for consumers.
func (c *Client) Projection() *projection.Projection { return c.proj }

// Metrics returns the display-only counters.
func (c *Client) Metrics() projection.MetricsSnapshot { return c.metrics.Snapshot() }

// ClearCache empties the projection and the dedup memory. Replaying the
// same event sequence afterwards reproduces the same projection.
func (c *Client) ClearCache() {
	c.proj.Clear()
	c.reducer.Reset()
}

// handleFrame is the single inbound path: every named event the
// transport delivers lands here, in arrival order.
func (c *Client) handleFrame(data []byte) {
	c.metrics.RecordEvent()
	env, err := event.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "app").Msg("malformed event dropped")
		return
	}
	c.routeAck(env)
	c.reducer.Apply(env)
	if cb := c.opts.OnEvent; cb != nil {
		cb(env)
	}
}

// routeAck resolves pending acknowledgment waits. Success events match
// on session and room name; error events resolve whatever create is
// pending for this session, since the server does not echo the name on
// failure.
func (c *Client) routeAck(env *event.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch env.Kind {
	case event.KindRoomCreated:
		if env.SessionID != c.sessionID || env.Room == nil {
			return
		}
		if ch, ok := c.pendingCreates[env.Room.Name]; ok {
			room := *env.Room
			select {
			case ch <- createResult{room: &room}:
			default:
			}
		}
	case event.KindRoomCreateError:
		if env.SessionID != c.sessionID {
			return
		}
		for _, ch := range c.pendingCreates {
			select {
			case ch <- createResult{err: fmt.Errorf("breakout: server rejected create: %s", env.Error)}:
			default:
			}
		}
	case event.KindRoomJoinSuccess:
		if c.pendingJoin != "" && env.RoomID == c.pendingJoin {
			c.pendingJoin = ""
		}
	case event.KindRoomJoinError:
		if c.pendingJoin == "" {
			return
		}
		if env.RoomID == "" || env.RoomID == c.pendingJoin {
			log.Warn().Str("module", "app").Str("room_id", string(c.pendingJoin)).Str("error", env.Error).Msg("join rejected, rolling back current room")
			c.proj.ClearCurrentRoomIf(c.pendingJoin)
			c.pendingJoin = ""
		}
	default:
	}
}
