// breakout-demo connects to a running breakoutd, creates and joins a
// room, sends a message, and prints the resulting projection.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/solstice-app/breakout/internal/adapters/rest"
	"github.com/solstice-app/breakout/internal/adapters/socket"
	"github.com/solstice-app/breakout/internal/app"
	"github.com/solstice-app/breakout/internal/config"
	"github.com/solstice-app/breakout/internal/core"
	"github.com/solstice-app/breakout/internal/domain"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	sessionID := domain.SessionID(uuid.NewString())
	token := cfg.AuthToken
	if token == "" {
		token = "dev-" + uuid.NewString()
	}
	tokens := core.StaticToken(token)

	transport := socket.New(fmt.Sprintf("%s/%s", cfg.SocketURL, sessionID), tokens, socket.Options{
		SendBuffer: cfg.SendBuffer,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	})
	restClient := rest.New(cfg.APIBaseURL, tokens)

	client := app.New(sessionID, transport, restClient, app.Options{
		AckTimeout:     cfg.AckTimeout,
		CreatePoll:     app.RetryPolicy{MaxAttempts: cfg.CreatePollAttempts, Backoff: app.FixedBackoff(cfg.CreatePollInterval)},
		ReconnectPause: cfg.ReconnectPause,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer client.Disconnect()

	room, err := client.CreateRoom(ctx, domain.RoomConfig{
		Name:            "demo room",
		Topic:           "kicking the tires",
		MaxParticipants: 6,
		Settings:        domain.RoomSettings{TextChat: true, Reactions: true},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create room")
	}
	log.Info().Str("room_id", string(room.ID)).Str("name", room.Name).Msg("room created")

	me := domain.Participant{
		ID:    domain.ParticipantID(uuid.NewString()),
		Alias: "demo",
		Role:  domain.RoleParticipant,
	}
	if err := client.JoinRoom(ctx, room.ID, me); err != nil {
		log.Fatal().Err(err).Msg("join room")
	}

	if err := client.SendMessage(room.ID, domain.Message{
		SenderID:    me.ID,
		SenderAlias: me.Alias,
		Body:        "hello from breakout-demo",
		SentAt:      time.Now(),
	}); err != nil {
		log.Warn().Err(err).Msg("send message")
	}

	// Give the event stream a moment to echo back.
	time.Sleep(time.Second)

	snap := client.Metrics()
	log.Info().
		Int("rooms", snap.TotalRooms).
		Int("participants", snap.TotalParticipants).
		Uint64("events", snap.EventsReceived).
		Str("current_room", string(client.Projection().CurrentRoom())).
		Msg("projection state")
}
