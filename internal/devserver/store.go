// Package devserver is an in-memory breakout backend for local
// development and demos. It speaks the same event names and REST
// endpoints as the production session service, without persistence.
package devserver

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solstice-app/breakout/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("devserver: room not found")
	ErrRoomFull     = errors.New("devserver: room is full")
)

// Store holds per-session room state behind a single lock.
type Store struct {
	mu    sync.RWMutex
	rooms map[domain.SessionID]map[domain.RoomID]*domain.Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[domain.SessionID]map[domain.RoomID]*domain.Room)}
}

func (s *Store) CreateRoom(sessionID domain.SessionID, cfg domain.RoomConfig) *domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	room := &domain.Room{
		ID:               domain.RoomID(uuid.NewString()),
		Name:             cfg.Name,
		Topic:            cfg.Topic,
		MaxParticipants:  cfg.MaxParticipants,
		Status:           domain.StatusWaiting,
		Settings:         cfg.Settings,
		IsPrivate:        cfg.IsPrivate,
		RequiresApproval: cfg.RequiresApproval,
		Tags:             cfg.Tags,
		CreatedAt:        now,
		LastActivity:     now,
	}
	byID, ok := s.rooms[sessionID]
	if !ok {
		byID = make(map[domain.RoomID]*domain.Room)
		s.rooms[sessionID] = byID
	}
	byID[room.ID] = room
	return snapshot(room)
}

func (s *Store) List(sessionID domain.SessionID) []domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.rooms[sessionID]))
	for _, r := range s.rooms[sessionID] {
		out = append(out, *snapshot(r))
	}
	return out
}

func (s *Store) Get(sessionID domain.SessionID, roomID domain.RoomID) (*domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[sessionID][roomID]
	if !ok {
		return nil, false
	}
	return snapshot(r), true
}

func (s *Store) Delete(sessionID domain.SessionID, roomID domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[sessionID][roomID]; !ok {
		return false
	}
	delete(s.rooms[sessionID], roomID)
	return true
}

// Join adds a participant, enforcing capacity and deduplicating by
// participant id (a rejoin replaces the previous entry).
func (s *Store) Join(sessionID domain.SessionID, roomID domain.RoomID, p domain.Participant) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[sessionID][roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	for i, existing := range room.Participants {
		if existing.ID == p.ID {
			room.Participants[i] = p
			room.LastActivity = time.Now()
			return snapshot(room), nil
		}
	}
	if len(room.Participants) >= room.MaxParticipants {
		return nil, ErrRoomFull
	}
	p.JoinedAt = time.Now()
	p.Connected = true
	room.Participants = append(room.Participants, p)
	room.ParticipantCount = len(room.Participants)
	room.LastActivity = time.Now()
	if room.Status == domain.StatusWaiting {
		room.Status = domain.StatusActive
	}
	return snapshot(room), nil
}

func (s *Store) Leave(sessionID domain.SessionID, roomID domain.RoomID, participantID domain.ParticipantID) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[sessionID][roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	kept := room.Participants[:0]
	for _, p := range room.Participants {
		if p.ID != participantID {
			kept = append(kept, p)
		}
	}
	room.Participants = kept
	room.ParticipantCount = len(kept)
	room.LastActivity = time.Now()
	return snapshot(room), nil
}

func (s *Store) Update(sessionID domain.SessionID, roomID domain.RoomID, u domain.RoomUpdate) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[sessionID][roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if u.Name != nil {
		room.Name = *u.Name
	}
	if u.Topic != nil {
		room.Topic = *u.Topic
	}
	if u.Status != nil {
		room.Status = *u.Status
	}
	if u.MaxParticipants != nil {
		room.MaxParticipants = *u.MaxParticipants
	}
	if u.Settings != nil {
		room.Settings = *u.Settings
	}
	room.LastActivity = time.Now()
	return snapshot(room), nil
}

// AutoAssign distributes every participant currently in the session's
// rooms across those rooms round-robin. Good enough to exercise the
// client's fold path.
func (s *Store) AutoAssign(sessionID domain.SessionID, strategy domain.AssignStrategy) []domain.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var roomIDs []domain.RoomID
	var participants []domain.Participant
	for id, r := range s.rooms[sessionID] {
		roomIDs = append(roomIDs, id)
		participants = append(participants, r.Participants...)
	}
	if len(roomIDs) == 0 {
		return nil
	}
	out := make([]domain.Assignment, 0, len(participants))
	for i, p := range participants {
		out = append(out, domain.Assignment{Participant: p, RoomID: roomIDs[i%len(roomIDs)]})
	}
	return out
}

// snapshot copies a room so callers never hold a pointer into the store.
func snapshot(r *domain.Room) *domain.Room {
	out := *r
	out.Participants = append([]domain.Participant(nil), r.Participants...)
	out.Tags = append([]string(nil), r.Tags...)
	return &out
}
