package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solstice-app/breakout/internal/core"
	"github.com/solstice-app/breakout/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, core.StaticToken("test-token"))
}

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func TestCreateRoom(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s1/breakout-rooms" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header: %q", got)
		}
		var cfg domain.RoomConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if cfg.Name != "alpha" {
			t.Errorf("unexpected name: %s", cfg.Name)
		}
		writeEnvelope(w, map[string]any{"room": domain.Room{ID: "r1", Name: cfg.Name, MaxParticipants: cfg.MaxParticipants}})
	}))

	room, err := client.CreateRoom(context.Background(), "s1", domain.RoomConfig{Name: "alpha", MaxParticipants: 6})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.ID != "r1" {
		t.Errorf("unexpected room: %+v", room)
	}
}

func TestCreateRoomLegacyPath(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s1/rooms/breakout" {
			t.Errorf("unexpected legacy path: %s", r.URL.Path)
		}
		writeEnvelope(w, map[string]any{"room": domain.Room{ID: "r1", Name: "alpha"}})
	}))

	if _, err := client.CreateRoomLegacy(context.Background(), "s1", domain.RoomConfig{Name: "alpha", MaxParticipants: 4}); err != nil {
		t.Fatalf("CreateRoomLegacy failed: %v", err)
	}
}

func TestServerErrorBecomesAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "no such endpoint"})
	}))

	_, err := client.CreateRoom(context.Background(), "s1", domain.RoomConfig{Name: "alpha", MaxParticipants: 4})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
}

func TestEnvelopeFailureWithoutHTTPError(t *testing.T) {
	// success:false with HTTP 200 is still an error.
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "room limit reached"})
	}))

	_, err := client.CreateRoom(context.Background(), "s1", domain.RoomConfig{Name: "alpha", MaxParticipants: 4})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "room limit reached" {
		t.Errorf("expected server error text, got %v", err)
	}
}

func TestHTMLResponseDetected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html><body>502 Bad Gateway</body></html>"))
	}))

	_, err := client.ListRooms(context.Background(), "s1")
	if err == nil {
		t.Fatal("expected error for HTML response")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Errorf("expected APIError with 502, got %v", err)
	}
}

func TestListRooms(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		writeEnvelope(w, map[string]any{"rooms": []domain.Room{{ID: "r1"}, {ID: "r2"}}})
	}))

	rooms, err := client.ListRooms(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("expected 2 rooms, got %d", len(rooms))
	}
}

func TestJoinLeaveDelete(t *testing.T) {
	var paths []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		writeEnvelope(w, map[string]any{"room": domain.Room{ID: "r1"}})
	}))

	ctx := context.Background()
	if _, err := client.JoinRoom(ctx, "s1", "r1", domain.Participant{ID: "p1"}); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if err := client.LeaveRoom(ctx, "s1", "r1"); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}
	if err := client.DeleteRoom(ctx, "s1", "r1"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}

	want := []string{
		"POST /s1/breakout-rooms/r1/join",
		"POST /s1/breakout-rooms/r1/leave",
		"DELETE /s1/breakout-rooms/r1",
	}
	for i, w := range want {
		if paths[i] != w {
			t.Errorf("call %d: got %q, want %q", i, paths[i], w)
		}
	}
}

func TestAutoAssign(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s1/breakout-rooms/auto-assign" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Strategy domain.AssignStrategy `json:"strategy"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Strategy != domain.AssignBalanced {
			t.Errorf("unexpected strategy: %s", req.Strategy)
		}
		writeEnvelope(w, map[string]any{"assignments": []domain.Assignment{
			{Participant: domain.Participant{ID: "p1"}, RoomID: "r1"},
		}})
	}))

	assignments, err := client.AutoAssign(context.Background(), "s1", domain.AssignBalanced)
	if err != nil {
		t.Fatalf("AutoAssign failed: %v", err)
	}
	if len(assignments) != 1 || assignments[0].RoomID != "r1" {
		t.Errorf("unexpected assignments: %+v", assignments)
	}
}
