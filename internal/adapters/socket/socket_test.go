package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solstice-app/breakout/internal/core"
)

var upgrader = websocket.Upgrader{}

// newWSServer starts a websocket endpoint whose handler owns the server
// side of each connection. The handler must return when the connection
// errors, or server shutdown will hang.
func newWSServer(t *testing.T, handler func(r *http.Request, conn *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// drain reads until the peer goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectSendsBearerToken(t *testing.T) {
	var mu sync.Mutex
	var auth string
	url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		drain(conn)
	})

	s := New(url, core.StaticToken("tok-1"), Options{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	if !s.Connected() {
		t.Fatal("not connected after Connect")
	}
	mu.Lock()
	defer mu.Unlock()
	if auth != "Bearer tok-1" {
		t.Fatalf("authorization header = %q, want Bearer tok-1", auth)
	}
}

func TestConnectIdempotent(t *testing.T) {
	var mu sync.Mutex
	count := 0
	url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		mu.Lock()
		count++
		mu.Unlock()
		drain(conn)
	})

	s := New(url, nil, Options{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("second connect: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("server saw %d connections, want 1", count)
	}
}

func TestEmitDeliversNamedFrame(t *testing.T) {
	frames := make(chan []byte, 1)
	url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frames <- data
		drain(conn)
	})

	s := New(url, nil, Options{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	if err := s.Emit("create_breakout_room", map[string]string{"name": "Design"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	select {
	case data := <-frames:
		var frame struct {
			Event   string            `json:"event"`
			Payload map[string]string `json:"payload"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if frame.Event != "create_breakout_room" || frame.Payload["name"] != "Design" {
			t.Fatalf("frame = %+v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestEmitWhenDisconnected(t *testing.T) {
	s := New("ws://127.0.0.1:0", nil, Options{})
	if err := s.Emit("create_breakout_room", nil); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("emit err = %v, want ErrNotConnected", err)
	}
}

func TestDispatchPreservesArrivalOrder(t *testing.T) {
	frames := []string{
		`{"event":"breakout_room_created","timestamp":1}`,
		`{"event":"breakout_participant_joined","timestamp":2}`,
		`{"event":"breakout_room_closed","timestamp":3}`,
	}
	url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		drain(conn)
	})

	var mu sync.Mutex
	var got []string
	s := New(url, nil, Options{})
	record := func(data []byte) {
		var head struct {
			Event string `json:"event"`
		}
		_ = json.Unmarshal(data, &head)
		mu.Lock()
		got = append(got, head.Event)
		mu.Unlock()
	}
	s.On("breakout_room_created", record)
	s.On("breakout_participant_joined", record)
	s.On("breakout_room_closed", record)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	waitFor(t, "all frames dispatched", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})
	mu.Lock()
	defer mu.Unlock()
	want := []string{"breakout_room_created", "breakout_participant_joined", "breakout_room_closed"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", got, want)
		}
	}
}

func TestUnhandledFrameDroppedQuietly(t *testing.T) {
	url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"unknown_event"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"breakout_room_created"}`))
		drain(conn)
	})

	seen := make(chan struct{}, 1)
	s := New(url, nil, Options{})
	s.On("breakout_room_created", func(data []byte) { seen <- struct{}{} })

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	select {
	case <-seen:
	case <-time.After(2 * time.Second):
		t.Fatal("handled frame never dispatched past junk frames")
	}
}

func TestOffRemovesHandler(t *testing.T) {
	release := make(chan struct{})
	url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"breakout_room_created","roomId":"r-1"}`))
		<-release
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"breakout_room_created","roomId":"r-2"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"breakout_room_closed"}`))
		drain(conn)
	})

	var mu sync.Mutex
	created := 0
	closed := make(chan struct{}, 1)
	s := New(url, nil, Options{})
	s.On("breakout_room_created", func(data []byte) {
		mu.Lock()
		created++
		mu.Unlock()
	})
	s.On("breakout_room_closed", func(data []byte) { closed <- struct{}{} })

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	waitFor(t, "first frame", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return created == 1
	})
	s.Off("breakout_room_created")
	close(release)

	// The closed frame arrives after the second created frame; seeing it
	// proves the removed handler was skipped, not still pending.
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("sentinel frame never arrived")
	}
	mu.Lock()
	defer mu.Unlock()
	if created != 1 {
		t.Fatalf("removed handler fired %d times, want 1", created)
	}
}

func TestPeerCloseMarksDisconnected(t *testing.T) {
	url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		// Close immediately; the client should notice and flip state.
	})

	s := New(url, nil, Options{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, "disconnect detection", func() bool { return !s.Connected() })

	if err := s.Emit("create_breakout_room", nil); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("emit after peer close = %v, want ErrNotConnected", err)
	}
}

func TestDisconnectRepeatable(t *testing.T) {
	url := newWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		drain(conn)
	})

	s := New(url, nil, Options{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}
	if s.Connected() {
		t.Fatal("still connected after Disconnect")
	}
}
