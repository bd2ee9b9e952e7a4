package projection

import (
	"github.com/rs/zerolog/log"

	"github.com/solstice-app/breakout/internal/domain"
	"github.com/solstice-app/breakout/internal/event"
)

// dedupCap bounds the duplicate-suppression memory. When exceeded, the
// oldest half by insertion order is evicted. Not a true LRU: heavy
// reordering can evict a key that later recurs, but memory stays
// bounded and duplicates are caught for realistic event sequences.
const dedupCap = 1000

// Reducer folds inbound events into a Projection, suppressing duplicate
// deliveries. Apply is safe for concurrent use, though in practice only
// the socket read pump calls it.
type Reducer struct {
	proj  *Projection
	seen  map[string]struct{}
	order []string
}

func NewReducer(proj *Projection) *Reducer {
	return &Reducer{
		proj: proj,
		seen: make(map[string]struct{}),
	}
}

// Apply folds one event into the projection. It reports false when the
// event was dropped as a duplicate or as malformed; it never panics past
// this boundary.
func (r *Reducer) Apply(env *event.Envelope) bool {
	p := r.proj
	p.mu.Lock()
	defer p.mu.Unlock()

	key := env.DedupKey()
	if _, dup := r.seen[key]; dup {
		log.Debug().Str("module", "projection").Str("event", env.Kind.String()).Str("key", key).Msg("duplicate event dropped")
		return false
	}
	r.remember(key)

	if !r.fold(env) {
		return false
	}
	p.lastUpdate = env.Timestamp
	return true
}

// remember inserts a dedup key and enforces the cap-and-halve policy.
// Caller holds the projection lock.
func (r *Reducer) remember(key string) {
	r.seen[key] = struct{}{}
	r.order = append(r.order, key)
	if len(r.seen) <= dedupCap {
		return
	}
	half := len(r.order) / 2
	for _, old := range r.order[:half] {
		delete(r.seen, old)
	}
	r.order = append([]string(nil), r.order[half:]...)
	log.Debug().Str("module", "projection").Int("kept", len(r.seen)).Msg("dedup memory halved")
}

// fold applies the per-kind effect. Events are folded strictly in
// arrival order; no reordering or causal buffering. Two events about the
// same room arriving out of the server's intended order land out of
// order here too (last-applied wins).
func (r *Reducer) fold(env *event.Envelope) bool {
	p := r.proj
	switch env.Kind {
	case event.KindRoomCreated, event.KindRoomUpdated:
		if env.Room == nil || env.Room.ID == "" {
			return r.malformed(env)
		}
		// The payload is the full current room record; no field merge.
		p.rooms[env.Room.ID] = *env.Room

	case event.KindRoomDeleted:
		if env.RoomID == "" {
			return r.malformed(env)
		}
		delete(p.rooms, env.RoomID)
		if p.currentRoom == env.RoomID {
			p.currentRoom = ""
		}

	case event.KindRoomStatusChanged:
		if env.RoomID == "" {
			return r.malformed(env)
		}
		// Only the status field; other fields stay untouched. A status
		// change for an unknown room is a no-op, not an insert.
		if room, ok := p.rooms[env.RoomID]; ok {
			room.Status = env.Status
			p.rooms[env.RoomID] = room
		}

	case event.KindParticipantJoined, event.KindParticipantUpdated:
		if env.Participant == nil || env.Participant.ID == "" {
			return r.malformed(env)
		}
		p.participants[env.Participant.ID] = *env.Participant
		if room, ok := p.rooms[env.RoomID]; ok {
			// Server-reported occupancy and roster win over anything
			// inferred locally.
			if env.ParticipantCount != nil {
				room.ParticipantCount = *env.ParticipantCount
			}
			if env.Roster != nil {
				room.Participants = env.Roster
			}
			p.rooms[env.RoomID] = room
		}

	case event.KindParticipantLeft:
		if env.RoomID == "" || env.ParticipantID == "" {
			return r.malformed(env)
		}
		delete(p.participants, env.ParticipantID)
		if room, ok := p.rooms[env.RoomID]; ok {
			if room.ParticipantCount > 0 {
				room.ParticipantCount--
			}
			roster := make([]domain.Participant, 0, len(room.Participants))
			for _, pt := range room.Participants {
				if pt.ID != env.ParticipantID {
					roster = append(roster, pt)
				}
			}
			room.Participants = roster
			p.rooms[env.RoomID] = room
		}

	case event.KindAutoAssignCompleted:
		for _, a := range env.Assignments {
			if a.Participant.ID == "" {
				continue
			}
			p.participants[a.Participant.ID] = a.Participant
		}

	case event.KindMessageReceived, event.KindModerationAction,
		event.KindRecordingStatusChanged, event.KindRoomCreateError,
		event.KindRoomJoinSuccess, event.KindRoomJoinError:
		// Notification-only: forwarded to consumers, no map mutation.

	case event.KindUnknown:
		return r.malformed(env)
	}
	return true
}

func (r *Reducer) malformed(env *event.Envelope) bool {
	log.Warn().Str("module", "projection").Str("event", env.Kind.String()).Str("room_id", string(env.RoomID)).Msg("malformed event dropped")
	return false
}

// Reset clears the dedup memory. Paired with Projection.Clear so that
// replaying a recorded event sequence reproduces the same projection.
func (r *Reducer) Reset() {
	r.proj.mu.Lock()
	defer r.proj.mu.Unlock()
	r.seen = make(map[string]struct{})
	r.order = nil
}

// DedupSize reports how many delivery keys are currently remembered.
func (r *Reducer) DedupSize() int {
	r.proj.mu.RLock()
	defer r.proj.mu.RUnlock()
	return len(r.seen)
}
