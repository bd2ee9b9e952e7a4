package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/solstice-app/breakout/internal/adapters/rest"
	"github.com/solstice-app/breakout/internal/domain"
	"github.com/solstice-app/breakout/internal/event"
)

// CreateRoom creates a breakout room. Validation fails fast before any
// network call. With a live channel the create is emitted and raced
// against a matching acknowledgment; on timeout, server error, or emit
// failure the REST fallback chain takes over. The caller sees a single
// consolidated error only when every tier is exhausted.
func (c *Client) CreateRoom(ctx context.Context, cfg domain.RoomConfig) (*domain.Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if c.transport.Connected() {
		room, err := c.createViaChannel(ctx, cfg)
		if err == nil {
			c.proj.UpsertRoom(*room)
			return room, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		log.Warn().Err(err).Str("module", "app").Str("name", cfg.Name).Msg("channel create failed, falling back to REST")
	}

	return c.createViaREST(ctx, cfg)
}

// createViaChannel emits the create request and waits for the matching
// success or error event, bounded by the acknowledgment timeout.
func (c *Client) createViaChannel(ctx context.Context, cfg domain.RoomConfig) (*domain.Room, error) {
	ch := make(chan createResult, 1)
	c.mu.Lock()
	c.pendingCreates[cfg.Name] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pendingCreates, cfg.Name)
		c.mu.Unlock()
	}()

	err := c.transport.Emit(event.EmitCreateRoom, event.CreateRoomPayload{
		SessionID:  c.sessionID,
		RoomConfig: cfg,
		Timestamp:  c.clk.Now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.room, nil
	case <-c.clk.After(c.opts.AckTimeout):
		return nil, errAckTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// createViaREST runs the fallback chain: the primary endpoint, the
// legacy endpoint shape on 404, and finally a bounded poll for the room
// to appear in the list. The poll covers backends that create the room
// despite reporting an error; it is a workaround, not a protocol.
func (c *Client) createViaREST(ctx context.Context, cfg domain.RoomConfig) (*domain.Room, error) {
	room, err := c.rest.CreateRoom(ctx, c.sessionID, cfg)
	if err == nil {
		c.proj.UpsertRoom(*room)
		return room, nil
	}

	if rest.IsNotFound(err) {
		log.Warn().Str("module", "app").Str("name", cfg.Name).Msg("primary create endpoint 404, trying legacy shape")
		var legacyErr error
		room, legacyErr = c.rest.CreateRoomLegacy(ctx, c.sessionID, cfg)
		if legacyErr == nil {
			c.proj.UpsertRoom(*room)
			return room, nil
		}
		err = legacyErr
	}

	if room := c.pollForRoom(ctx, cfg.Name); room != nil {
		log.Info().Str("module", "app").Str("name", cfg.Name).Str("room_id", string(room.ID)).Msg("room appeared after failed create, treating as delayed success")
		c.proj.UpsertRoom(*room)
		return room, nil
	}

	return nil, fmt.Errorf("breakout: create room %q: %w", cfg.Name, err)
}

// pollForRoom lists rooms on the retry policy's schedule until one with
// the requested name shows up, or attempts run out.
func (c *Client) pollForRoom(ctx context.Context, name string) *domain.Room {
	policy := c.opts.CreatePoll
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		case <-c.clk.After(policy.Backoff(attempt)):
		}
		rooms, err := c.rest.ListRooms(ctx, c.sessionID)
		if err != nil {
			log.Debug().Err(err).Str("module", "app").Int("attempt", attempt).Msg("existence poll failed")
			continue
		}
		for i := range rooms {
			if rooms[i].Name == name {
				return &rooms[i]
			}
		}
	}
	return nil
}

// JoinRoom joins a room. Over the live channel the request is
// fire-and-forget and the current-room pointer is set optimistically; a
// later join-error event rolls it back. Disconnected, it goes through
// REST synchronously and caches the returned room.
func (c *Client) JoinRoom(ctx context.Context, roomID domain.RoomID, participant domain.Participant) error {
	if c.transport.Connected() {
		c.mu.Lock()
		c.pendingJoin = roomID
		c.mu.Unlock()
		c.proj.SetCurrentRoom(roomID)
		err := c.transport.Emit(event.EmitJoinRoom, event.JoinRoomPayload{
			SessionID:       c.sessionID,
			RoomID:          roomID,
			ParticipantData: participant,
			Timestamp:       c.clk.Now().UnixMilli(),
		})
		if err != nil {
			c.mu.Lock()
			c.pendingJoin = ""
			c.mu.Unlock()
			c.proj.ClearCurrentRoomIf(roomID)
			return fmt.Errorf("breakout: join room %s: %w", roomID, err)
		}
		return nil
	}

	room, err := c.rest.JoinRoom(ctx, c.sessionID, roomID, participant)
	if err != nil {
		return fmt.Errorf("breakout: join room %s: %w", roomID, err)
	}
	c.proj.UpsertRoom(*room)
	c.proj.SetCurrentRoom(roomID)
	return nil
}

// LeaveRoom leaves a room. The current-room pointer is cleared only if
// it still points at the room being left.
func (c *Client) LeaveRoom(ctx context.Context, roomID domain.RoomID) error {
	var err error
	if c.transport.Connected() {
		err = c.transport.Emit(event.EmitLeaveRoom, event.LeaveRoomPayload{
			SessionID: c.sessionID,
			RoomID:    roomID,
			Timestamp: c.clk.Now().UnixMilli(),
		})
	} else {
		err = c.rest.LeaveRoom(ctx, c.sessionID, roomID)
	}
	if err != nil {
		return fmt.Errorf("breakout: leave room %s: %w", roomID, err)
	}
	c.proj.ClearCurrentRoomIf(roomID)
	return nil
}

// UpdateRoom sends a partial room mutation. Channel-only: there is no
// REST endpoint for updates.
func (c *Client) UpdateRoom(roomID domain.RoomID, updates domain.RoomUpdate) error {
	if !c.transport.Connected() {
		return ErrNotConnected
	}
	return c.transport.Emit(event.EmitUpdateRoom, event.UpdateRoomPayload{
		SessionID: c.sessionID,
		RoomID:    roomID,
		Updates:   updates,
	})
}

// DeleteRoom removes a room, over the channel when live, REST otherwise.
// No optimistic local removal on the channel path: the room disappears
// when the closed event folds.
func (c *Client) DeleteRoom(ctx context.Context, roomID domain.RoomID) error {
	if c.transport.Connected() {
		return c.transport.Emit(event.EmitDeleteRoom, event.DeleteRoomPayload{
			SessionID: c.sessionID,
			RoomID:    roomID,
		})
	}
	if err := c.rest.DeleteRoom(ctx, c.sessionID, roomID); err != nil {
		return fmt.Errorf("breakout: delete room %s: %w", roomID, err)
	}
	c.proj.RemoveRoom(roomID)
	return nil
}

// ModerateParticipant sends a moderation request. Channel-only.
func (c *Client) ModerateParticipant(roomID domain.RoomID, action domain.ModerationAction) error {
	if !c.transport.Connected() {
		return ErrNotConnected
	}
	return c.transport.Emit(event.EmitModerate, event.ModeratePayload{
		SessionID: c.sessionID,
		RoomID:    roomID,
		Action:    action,
	})
}

// SendMessage sends a chat message into a room. Channel-only.
func (c *Client) SendMessage(roomID domain.RoomID, msg domain.Message) error {
	if !c.transport.Connected() {
		return ErrNotConnected
	}
	return c.transport.Emit(event.EmitMessage, event.MessagePayload{
		SessionID: c.sessionID,
		RoomID:    roomID,
		Message:   msg,
	})
}

// SendReaction sends an emoji reaction into a room. Channel-only.
func (c *Client) SendReaction(roomID domain.RoomID, reaction domain.Reaction) error {
	if !c.transport.Connected() {
		return ErrNotConnected
	}
	return c.transport.Emit(event.EmitReaction, event.ReactionPayload{
		SessionID: c.sessionID,
		RoomID:    roomID,
		Reaction:  reaction,
	})
}

// AutoAssign asks the server to distribute participants across rooms.
// REST-only; the returned assignments are handed back for the event
// stream (or the caller) to fold.
func (c *Client) AutoAssign(ctx context.Context, strategy domain.AssignStrategy) ([]domain.Assignment, error) {
	switch strategy {
	case domain.AssignBalanced, domain.AssignRandom, domain.AssignSkillBased:
	default:
		return nil, fmt.Errorf("breakout: unknown assign strategy %q", strategy)
	}
	assignments, err := c.rest.AutoAssign(ctx, c.sessionID, strategy)
	if err != nil {
		return nil, fmt.Errorf("breakout: auto-assign: %w", err)
	}
	return assignments, nil
}
