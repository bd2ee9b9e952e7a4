// Package rest is the request/response fallback path used when the
// socket channel is unavailable or a socket action fails.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solstice-app/breakout/internal/core"
	"github.com/solstice-app/breakout/internal/domain"
)

// APIError is a non-success response from the backend, carrying the HTTP
// status and the server's error string when one was decodable.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest: server error (%d): %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an APIError with HTTP 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to the session-scoped breakout-rooms REST surface.
type Client struct {
	base   string // e.g. "https://host/api/sessions"
	http   *http.Client
	tokens core.TokenProvider
}

func New(baseURL string, tokens core.TokenProvider) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
		tokens: tokens,
	}
}

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type roomData struct {
	Room        *domain.Room        `json:"room,omitempty"`
	Rooms       []domain.Room       `json:"rooms,omitempty"`
	Assignments []domain.Assignment `json:"assignments,omitempty"`
}

// do issues one JSON request and decodes the response envelope. A body
// that is not JSON (an HTML error page from a misrouted or down server)
// becomes an APIError rather than a bare parse failure.
func (c *Client) do(ctx context.Context, method, url string, body any) (*roomData, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("rest: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("rest: build request: %w", err)
	}
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("rest: auth token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rest: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("rest: read response: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		log.Warn().Str("module", "adapters.rest").Str("url", url).Int("status", resp.StatusCode).Msg("non-JSON response, server misrouted or down")
		return nil, &APIError{Status: resp.StatusCode, Message: "non-JSON response"}
	}

	var env envelope
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("rest: decode response: %w", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	var data roomData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("rest: decode data: %w", err)
		}
	}
	return &data, nil
}

// CreateRoom creates a room via the primary endpoint.
func (c *Client) CreateRoom(ctx context.Context, sessionID domain.SessionID, cfg domain.RoomConfig) (*domain.Room, error) {
	url := fmt.Sprintf("%s/%s/breakout-rooms", c.base, sessionID)
	data, err := c.do(ctx, http.MethodPost, url, cfg)
	if err != nil {
		return nil, err
	}
	if data.Room == nil {
		return nil, fmt.Errorf("rest: create response missing room")
	}
	return data.Room, nil
}

// CreateRoomLegacy retries creation against the pre-rename path shape
// that older deployments still serve.
func (c *Client) CreateRoomLegacy(ctx context.Context, sessionID domain.SessionID, cfg domain.RoomConfig) (*domain.Room, error) {
	url := fmt.Sprintf("%s/%s/rooms/breakout", c.base, sessionID)
	data, err := c.do(ctx, http.MethodPost, url, cfg)
	if err != nil {
		return nil, err
	}
	if data.Room == nil {
		return nil, fmt.Errorf("rest: legacy create response missing room")
	}
	return data.Room, nil
}

// ListRooms returns every breakout room in the session.
func (c *Client) ListRooms(ctx context.Context, sessionID domain.SessionID) ([]domain.Room, error) {
	url := fmt.Sprintf("%s/%s/breakout-rooms", c.base, sessionID)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return data.Rooms, nil
}

// JoinRoom joins a room, returning the server's view of it.
func (c *Client) JoinRoom(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID, p domain.Participant) (*domain.Room, error) {
	url := fmt.Sprintf("%s/%s/breakout-rooms/%s/join", c.base, sessionID, roomID)
	data, err := c.do(ctx, http.MethodPost, url, p)
	if err != nil {
		return nil, err
	}
	if data.Room == nil {
		return nil, fmt.Errorf("rest: join response missing room")
	}
	return data.Room, nil
}

// LeaveRoom leaves a room.
func (c *Client) LeaveRoom(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID) error {
	url := fmt.Sprintf("%s/%s/breakout-rooms/%s/leave", c.base, sessionID, roomID)
	_, err := c.do(ctx, http.MethodPost, url, struct{}{})
	return err
}

// DeleteRoom removes a room.
func (c *Client) DeleteRoom(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID) error {
	url := fmt.Sprintf("%s/%s/breakout-rooms/%s", c.base, sessionID, roomID)
	_, err := c.do(ctx, http.MethodDelete, url, nil)
	return err
}

type autoAssignRequest struct {
	Strategy domain.AssignStrategy `json:"strategy"`
}

// AutoAssign asks the server to distribute unassigned participants. The
// caller folds the returned assignments; this client does not touch the
// projection.
func (c *Client) AutoAssign(ctx context.Context, sessionID domain.SessionID, strategy domain.AssignStrategy) ([]domain.Assignment, error) {
	url := fmt.Sprintf("%s/%s/breakout-rooms/auto-assign", c.base, sessionID)
	data, err := c.do(ctx, http.MethodPost, url, autoAssignRequest{Strategy: strategy})
	if err != nil {
		return nil, err
	}
	return data.Assignments, nil
}
