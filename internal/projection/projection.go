// Package projection maintains the client-side view of server room and
// participant state, rebuilt by folding the inbound event stream.
package projection

import (
	"sync"
	"time"

	"github.com/solstice-app/breakout/internal/core"
	"github.com/solstice-app/breakout/internal/domain"
)

// Projection is the process-local room/participant state. It is never
// persisted; it exists only as the fold of events applied so far plus
// the facade's optimistic updates. All access is mutex-guarded because
// the socket read pump and caller goroutines touch it concurrently.
type Projection struct {
	mu           sync.RWMutex
	rooms        map[domain.RoomID]domain.Room
	participants map[domain.ParticipantID]domain.Participant
	currentRoom  domain.RoomID
	lastUpdate   time.Time
	connState    core.State
}

func New() *Projection {
	return &Projection{
		rooms:        make(map[domain.RoomID]domain.Room),
		participants: make(map[domain.ParticipantID]domain.Participant),
	}
}

// Room returns a copy of the room, if the projection knows it. A room
// absent here is non-existent to the client even if the server still
// holds it.
func (p *Projection) Room(id domain.RoomID) (domain.Room, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.rooms[id]
	return r, ok
}

// Rooms returns a snapshot of all known rooms. Order is unspecified.
func (p *Projection) Rooms() []domain.Room {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Room, 0, len(p.rooms))
	for _, r := range p.rooms {
		out = append(out, r)
	}
	return out
}

func (p *Projection) Participant(id domain.ParticipantID) (domain.Participant, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pt, ok := p.participants[id]
	return pt, ok
}

func (p *Projection) Participants() []domain.Participant {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Participant, 0, len(p.participants))
	for _, pt := range p.participants {
		out = append(out, pt)
	}
	return out
}

// CurrentRoom returns the room this client session is in, or "" if none.
func (p *Projection) CurrentRoom() domain.RoomID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentRoom
}

// SetCurrentRoom records the client's own room, optimistically or on
// server confirmation.
func (p *Projection) SetCurrentRoom(id domain.RoomID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentRoom = id
}

// ClearCurrentRoomIf clears the current-room pointer only when it still
// points at the given room. Used on leave and on join rollback.
func (p *Projection) ClearCurrentRoomIf(id domain.RoomID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentRoom == id {
		p.currentRoom = ""
	}
}

// UpsertRoom stores a full room record, replacing any previous entry.
// The REST fallback path uses this to cache server responses.
func (p *Projection) UpsertRoom(room domain.Room) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms[room.ID] = room
}

// RemoveRoom drops a room, clearing the current-room pointer if it
// pointed there. Used by the REST delete path, where no closed event
// will arrive.
func (p *Projection) RemoveRoom(id domain.RoomID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rooms, id)
	if p.currentRoom == id {
		p.currentRoom = ""
	}
}

func (p *Projection) LastUpdate() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastUpdate
}

// ConnectionState mirrors the facade's state machine for consumers that
// only see the projection.
func (p *Projection) ConnectionState() core.State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connState
}

func (p *Projection) SetConnectionState(s core.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connState = s
}

// Clear drops every room, participant and the current-room pointer,
// returning the projection to its initial empty state.
func (p *Projection) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = make(map[domain.RoomID]domain.Room)
	p.participants = make(map[domain.ParticipantID]domain.Participant)
	p.currentRoom = ""
	p.lastUpdate = time.Time{}
}

func (p *Projection) counts() (rooms, participants int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms), len(p.participants)
}
