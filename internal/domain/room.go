package domain

import "time"

type (
	SessionID     string
	RoomID        string
	ParticipantID string
)

// RoomStatus is the room lifecycle state as reported by the server.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusActive  RoomStatus = "active"
	StatusPaused  RoomStatus = "paused"
	StatusEnded   RoomStatus = "ended"
)

// RoomSettings are the per-room feature toggles.
type RoomSettings struct {
	TextChat        bool `json:"textChat"`
	VoiceChat       bool `json:"voiceChat"`
	ScreenShare     bool `json:"screenShare"`
	Moderation      bool `json:"moderation"`
	Recording       bool `json:"recording"`
	VoiceModulation bool `json:"voiceModulation"`
	Reactions       bool `json:"reactions"`
	Polls           bool `json:"polls"`
}

// Room is the client's view of one breakout room. A Room value is a full
// record: server events carry complete room payloads, not field deltas,
// so upserts replace rather than merge.
type Room struct {
	ID               RoomID        `json:"id"`
	Name             string        `json:"name"`
	Topic            string        `json:"topic,omitempty"`
	FacilitatorID    ParticipantID `json:"facilitatorId,omitempty"`
	MaxParticipants  int           `json:"maxParticipants"`
	ParticipantCount int           `json:"participantCount"`
	Status           RoomStatus    `json:"status"`
	Settings         RoomSettings  `json:"settings"`
	IsPrivate        bool          `json:"isPrivate"`
	RequiresApproval bool          `json:"requiresApproval"`
	Tags             []string      `json:"tags,omitempty"`
	Participants     []Participant `json:"participants,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	LastActivity     time.Time     `json:"lastActivity"`
}

// RoomUpdate is a partial room mutation sent to the server. Nil fields
// are left untouched server-side.
type RoomUpdate struct {
	Name            *string       `json:"name,omitempty"`
	Topic           *string       `json:"topic,omitempty"`
	Status          *RoomStatus   `json:"status,omitempty"`
	MaxParticipants *int          `json:"maxParticipants,omitempty"`
	Settings        *RoomSettings `json:"settings,omitempty"`
}
