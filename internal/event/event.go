// Package event defines the wire protocol shared by the socket transport
// and the projection: inbound server events as a closed tagged union, and
// the outbound request payloads.
package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/solstice-app/breakout/internal/domain"
)

// Kind discriminates inbound server events. The set is closed: the
// decoder rejects unknown wire names and every consumer switches
// exhaustively over these values.
type Kind int

const (
	KindUnknown Kind = iota
	KindRoomCreated
	KindRoomUpdated
	KindRoomDeleted
	KindRoomStatusChanged
	KindParticipantJoined
	KindParticipantLeft
	KindParticipantUpdated
	KindAutoAssignCompleted
	KindMessageReceived
	KindModerationAction
	KindRecordingStatusChanged
	KindRoomCreateError
	KindRoomJoinSuccess
	KindRoomJoinError
)

var kindNames = map[Kind]string{
	KindRoomCreated:            "breakout_room_created",
	KindRoomUpdated:            "breakout_room_updated",
	KindRoomDeleted:            "breakout_room_closed",
	KindRoomStatusChanged:      "breakout_room_status_changed",
	KindParticipantJoined:      "breakout_participant_joined",
	KindParticipantLeft:        "breakout_participant_left",
	KindParticipantUpdated:     "breakout_participant_updated",
	KindAutoAssignCompleted:    "breakout_auto_assign_completed",
	KindMessageReceived:        "breakout_message_received",
	KindModerationAction:       "breakout_moderation_action",
	KindRecordingStatusChanged: "breakout_recording_status_changed",
	KindRoomCreateError:        "breakout_room_create_error",
	KindRoomJoinSuccess:        "breakout_room_join_success",
	KindRoomJoinError:          "breakout_room_join_error",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// WireName returns the event name used on the socket channel.
func (k Kind) WireName() string { return k.String() }

// InboundNames lists every wire name the client subscribes to.
func InboundNames() []string {
	names := make([]string, 0, len(kindNames))
	for _, n := range kindNames {
		names = append(names, n)
	}
	return names
}

// Envelope is one decoded server event. Kind determines which payload
// fields are populated; missing required fields are a decode error, so a
// consumer holding an Envelope can rely on its kind's fields being set.
type Envelope struct {
	Kind          Kind
	SessionID     domain.SessionID
	RoomID        domain.RoomID
	ParticipantID domain.ParticipantID
	Timestamp     time.Time

	// Kind-specific payloads. Only the fields relevant to Kind are set.
	Room             *domain.Room
	Participant      *domain.Participant
	ParticipantCount *int                 // server-reported occupancy, wins over local counts
	Roster           []domain.Participant // full roster when the server includes one
	Status           domain.RoomStatus
	Assignments      []domain.Assignment
	Message          *domain.Message
	Moderation       *domain.ModerationAction
	Recording        bool
	Error            string // server error text for *_error events
}

// DedupKey identifies an event delivery for duplicate suppression.
// Events without a room scope share the "global" bucket.
func (e *Envelope) DedupKey() string {
	scope := string(e.RoomID)
	if scope == "" {
		scope = "global"
	}
	return fmt.Sprintf("%d|%s|%d", e.Kind, scope, e.Timestamp.UnixMilli())
}

// Decode errors. Malformed events are dropped by the caller with a
// warning; they never propagate further.
var (
	ErrUnknownEvent   = errors.New("event: unknown event name")
	ErrMissingRoomID  = errors.New("event: missing room id")
	ErrMissingPayload = errors.New("event: missing required payload")
)
