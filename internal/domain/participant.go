package domain

import "time"

// Role is a participant's permission level within a room.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleFacilitator Role = "facilitator"
	RoleObserver    Role = "observer"
)

// Participant is one user's membership record. From the client's point of
// view a participant belongs to at most one room at a time.
type Participant struct {
	ID        ParticipantID `json:"id"`
	Alias     string        `json:"alias"`
	AvatarURL string        `json:"avatarUrl,omitempty"`
	Role      Role          `json:"role"`
	Connected bool          `json:"connected"`
	Muted     bool          `json:"muted"`
	JoinedAt  time.Time     `json:"joinedAt"`
}

// AssignStrategy selects how auto-assignment distributes participants.
type AssignStrategy string

const (
	AssignBalanced   AssignStrategy = "balanced"
	AssignRandom     AssignStrategy = "random"
	AssignSkillBased AssignStrategy = "skill-based"
)

// Assignment maps one participant to the room the server placed them in.
type Assignment struct {
	Participant Participant `json:"participant"`
	RoomID      RoomID      `json:"roomId"`
}

// ModerationAction is a facilitator request against one participant.
type ModerationAction struct {
	TargetID ParticipantID `json:"targetId"`
	Action   string        `json:"action"` // "mute", "unmute", "remove", "promote"
	Reason   string        `json:"reason,omitempty"`
}

// Message is a text chat message within a room.
type Message struct {
	SenderID    ParticipantID `json:"senderId"`
	SenderAlias string        `json:"senderAlias,omitempty"`
	Body        string        `json:"body"`
	SentAt      time.Time     `json:"sentAt"`
}

// Reaction is a transient emoji reaction within a room.
type Reaction struct {
	SenderID ParticipantID `json:"senderId"`
	Emoji    string        `json:"emoji"`
}
