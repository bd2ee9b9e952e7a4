package domain

import "testing"

func TestRoomConfigValidate(t *testing.T) {
	base := RoomConfig{Name: "focus group", MaxParticipants: 6}

	t.Run("valid", func(t *testing.T) {
		if err := base.Validate(); err != nil {
			t.Fatalf("expected valid config, got %v", err)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		cfg := base
		cfg.Name = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for empty name")
		}
	})

	t.Run("capacity too small", func(t *testing.T) {
		cfg := base
		cfg.MaxParticipants = 1
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for maxParticipants = 1")
		}
	})

	t.Run("capacity too large", func(t *testing.T) {
		cfg := base
		cfg.MaxParticipants = 21
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for maxParticipants = 21")
		}
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		for _, n := range []int{MinParticipants, MaxParticipantsLimit} {
			cfg := base
			cfg.MaxParticipants = n
			if err := cfg.Validate(); err != nil {
				t.Errorf("maxParticipants = %d should validate, got %v", n, err)
			}
		}
	})
}
