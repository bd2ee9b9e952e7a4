package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Capacity bounds enforced before any network call.
const (
	MinParticipants      = 2
	MaxParticipantsLimit = 20
)

// RoomConfig is the caller-supplied configuration for a new room.
type RoomConfig struct {
	Name             string       `json:"name" validate:"required"`
	Topic            string       `json:"topic,omitempty"`
	MaxParticipants  int          `json:"maxParticipants" validate:"gte=2,lte=20"`
	Settings         RoomSettings `json:"settings"`
	IsPrivate        bool         `json:"isPrivate"`
	RequiresApproval bool         `json:"requiresApproval"`
	Tags             []string     `json:"tags,omitempty"`
}

var validate = validator.New()

// Validate checks the config before it goes anywhere near the network.
func (c RoomConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		for _, fe := range err.(validator.ValidationErrors) {
			switch fe.Field() {
			case "Name":
				return fmt.Errorf("room config: name must not be empty")
			case "MaxParticipants":
				return fmt.Errorf("room config: maxParticipants must be between %d and %d, got %d",
					MinParticipants, MaxParticipantsLimit, c.MaxParticipants)
			}
		}
		return fmt.Errorf("room config: %w", err)
	}
	return nil
}
