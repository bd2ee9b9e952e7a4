package event

import "github.com/solstice-app/breakout/internal/domain"

// Outbound event names emitted over the socket channel.
const (
	EmitCreateRoom = "create_breakout_room"
	EmitJoinRoom   = "join_breakout_room"
	EmitLeaveRoom  = "leave_breakout_room"
	EmitUpdateRoom = "update_breakout_room"
	EmitDeleteRoom = "delete_breakout_room"
	EmitMessage    = "send_breakout_message"
	EmitReaction   = "send_breakout_reaction"
	EmitModerate   = "moderate_breakout_participant"
)

type CreateRoomPayload struct {
	SessionID  domain.SessionID  `json:"sessionId"`
	RoomConfig domain.RoomConfig `json:"roomConfig"`
	Timestamp  int64             `json:"timestamp"`
}

type JoinRoomPayload struct {
	SessionID       domain.SessionID   `json:"sessionId"`
	RoomID          domain.RoomID      `json:"roomId"`
	ParticipantData domain.Participant `json:"participantData"`
	Timestamp       int64              `json:"timestamp"`
}

type LeaveRoomPayload struct {
	SessionID domain.SessionID `json:"sessionId"`
	RoomID    domain.RoomID    `json:"roomId"`
	Timestamp int64            `json:"timestamp"`
}

type UpdateRoomPayload struct {
	SessionID domain.SessionID  `json:"sessionId"`
	RoomID    domain.RoomID     `json:"roomId"`
	Updates   domain.RoomUpdate `json:"updates"`
}

type DeleteRoomPayload struct {
	SessionID domain.SessionID `json:"sessionId"`
	RoomID    domain.RoomID    `json:"roomId"`
}

type MessagePayload struct {
	SessionID domain.SessionID `json:"sessionId"`
	RoomID    domain.RoomID    `json:"roomId"`
	Message   domain.Message   `json:"message"`
}

type ReactionPayload struct {
	SessionID domain.SessionID `json:"sessionId"`
	RoomID    domain.RoomID    `json:"roomId"`
	Reaction  domain.Reaction  `json:"reaction"`
}

type ModeratePayload struct {
	SessionID domain.SessionID        `json:"sessionId"`
	RoomID    domain.RoomID           `json:"roomId"`
	Action    domain.ModerationAction `json:"action"`
}
