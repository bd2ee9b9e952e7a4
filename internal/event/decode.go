package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/solstice-app/breakout/internal/domain"
)

// wireEnvelope is the raw frame shape on the socket channel.
type wireEnvelope struct {
	Event         string               `json:"event"`
	SessionID     domain.SessionID     `json:"sessionId"`
	RoomID        domain.RoomID        `json:"roomId,omitempty"`
	ParticipantID domain.ParticipantID `json:"participantId,omitempty"`
	Timestamp     int64                `json:"timestamp"` // unix milliseconds
	Payload       json.RawMessage      `json:"payload,omitempty"`
}

type roomPayload struct {
	Room             *domain.Room             `json:"room,omitempty"`
	Error            string                   `json:"error,omitempty"`
	Participant      *domain.Participant      `json:"participant,omitempty"`
	ParticipantCount *int                     `json:"participantCount,omitempty"`
	Participants     []domain.Participant     `json:"participants,omitempty"`
	Status           domain.RoomStatus        `json:"status,omitempty"`
	Assignments      []domain.Assignment      `json:"assignments,omitempty"`
	Message          *domain.Message          `json:"message,omitempty"`
	Action           *domain.ModerationAction `json:"action,omitempty"`
	Recording        bool                     `json:"recording,omitempty"`
}

// Decode parses one raw socket frame into an Envelope, checking that the
// fields its kind requires are present.
func Decode(data []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("event: decode frame: %w", err)
	}
	kind, ok := kindsByName[w.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, w.Event)
	}

	env := &Envelope{
		Kind:          kind,
		SessionID:     w.SessionID,
		RoomID:        w.RoomID,
		ParticipantID: w.ParticipantID,
		Timestamp:     time.UnixMilli(w.Timestamp),
	}

	var p roomPayload
	if len(w.Payload) > 0 {
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s payload: %w", w.Event, err)
		}
	}
	env.Room = p.Room
	env.Participant = p.Participant
	env.ParticipantCount = p.ParticipantCount
	env.Roster = p.Participants
	env.Status = p.Status
	env.Assignments = p.Assignments
	env.Message = p.Message
	env.Moderation = p.Action
	env.Recording = p.Recording
	env.Error = p.Error

	if err := env.checkRequired(); err != nil {
		return nil, err
	}
	return env, nil
}

// checkRequired enforces per-kind required fields. The switch is
// exhaustive over Kind so a new kind cannot be added without deciding
// its requirements here.
func (e *Envelope) checkRequired() error {
	switch e.Kind {
	case KindRoomCreated, KindRoomUpdated:
		if e.Room == nil || e.Room.ID == "" {
			return fmt.Errorf("%w: %s needs a room record", ErrMissingPayload, e.Kind)
		}
	case KindRoomDeleted, KindRoomStatusChanged:
		if e.RoomID == "" {
			return fmt.Errorf("%w: %s", ErrMissingRoomID, e.Kind)
		}
	case KindParticipantJoined, KindParticipantUpdated:
		if e.Participant == nil || e.Participant.ID == "" {
			return fmt.Errorf("%w: %s needs a participant record", ErrMissingPayload, e.Kind)
		}
	case KindParticipantLeft:
		if e.RoomID == "" {
			return fmt.Errorf("%w: %s", ErrMissingRoomID, e.Kind)
		}
		if e.ParticipantID == "" && e.Participant == nil {
			return fmt.Errorf("%w: %s needs a participant id", ErrMissingPayload, e.Kind)
		}
		if e.ParticipantID == "" {
			e.ParticipantID = e.Participant.ID
		}
	case KindAutoAssignCompleted:
		if len(e.Assignments) == 0 {
			return fmt.Errorf("%w: %s needs assignments", ErrMissingPayload, e.Kind)
		}
	case KindMessageReceived:
		if e.Message == nil {
			return fmt.Errorf("%w: %s needs a message", ErrMissingPayload, e.Kind)
		}
	case KindModerationAction, KindRecordingStatusChanged,
		KindRoomCreateError, KindRoomJoinSuccess, KindRoomJoinError:
		// Notification and acknowledgment events; no hard requirements
		// beyond what the facade matches on.
	case KindUnknown:
		return ErrUnknownEvent
	}
	return nil
}
