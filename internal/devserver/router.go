package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/solstice-app/breakout/internal/domain"
	"github.com/solstice-app/breakout/internal/event"
)

// Server bundles the store and hub behind the HTTP surface.
type Server struct {
	store *Store
	hub   *Hub
}

func NewServer() *Server {
	return &Server{store: NewStore(), hub: NewHub()}
}

// ClientTokenMiddleware gives every browser a stable client token.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// BearerMiddleware requires an Authorization header on the API. The dev
// server accepts any non-empty token; it only checks the shape.
func BearerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || auth == "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing bearer token"})
			return
		}
		c.Next()
	}
}

// SetupRouter builds the gin engine: REST surface plus the socket
// endpoint, mirroring the production service's paths.
func SetupRouter(mode, secret string, srv *Server) *gin.Engine {
	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("BreakoutSessions", store))
	r.Use(ClientTokenMiddleware())

	api := r.Group("/api")
	api.GET("/ws/:sessionId", srv.HandleSocket)

	rooms := api.Group("/sessions/:sessionId")
	rooms.Use(BearerMiddleware())
	rooms.POST("/breakout-rooms", srv.handleCreateRoom)
	rooms.GET("/breakout-rooms", srv.handleListRooms)
	rooms.POST("/breakout-rooms/auto-assign", srv.handleAutoAssign)
	rooms.POST("/breakout-rooms/:roomId/join", srv.handleJoinRoom)
	rooms.POST("/breakout-rooms/:roomId/leave", srv.handleLeaveRoom)
	rooms.DELETE("/breakout-rooms/:roomId", srv.handleDeleteRoom)

	log.Info().Str("module", "devserver").Msg("router setup")
	return r
}

func ok(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("sessionId"))
	var cfg domain.RoomConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		fail(c, http.StatusBadRequest, "invalid room config")
		return
	}
	if err := cfg.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	room := s.store.CreateRoom(sessionID, cfg)
	s.hub.Broadcast(sessionID, frame(event.KindRoomCreated.WireName(), sessionID, room.ID, gin.H{"room": room}))
	ok(c, gin.H{"room": room})
}

func (s *Server) handleListRooms(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("sessionId"))
	ok(c, gin.H{"rooms": s.store.List(sessionID)})
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("sessionId"))
	roomID := domain.RoomID(c.Param("roomId"))
	var p domain.Participant
	if err := c.ShouldBindJSON(&p); err != nil || p.ID == "" {
		fail(c, http.StatusBadRequest, "invalid participant")
		return
	}
	room, err := s.store.Join(sessionID, roomID, p)
	if err != nil {
		status := http.StatusNotFound
		if err == ErrRoomFull {
			status = http.StatusConflict
		}
		fail(c, status, err.Error())
		return
	}
	s.hub.Broadcast(sessionID, eventFrame{
		Event:         event.KindParticipantJoined.WireName(),
		SessionID:     sessionID,
		RoomID:        roomID,
		ParticipantID: p.ID,
		Timestamp:     room.LastActivity.UnixMilli(),
		Payload: gin.H{
			"participant":      p,
			"participantCount": room.ParticipantCount,
			"participants":     room.Participants,
		},
	})
	ok(c, gin.H{"room": room})
}

func (s *Server) handleLeaveRoom(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("sessionId"))
	roomID := domain.RoomID(c.Param("roomId"))
	token := c.GetString("client_token")
	s.dropParticipant(sessionID, roomID, domain.ParticipantID(token))
	ok(c, gin.H{})
}

func (s *Server) handleDeleteRoom(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("sessionId"))
	roomID := domain.RoomID(c.Param("roomId"))
	if !s.store.Delete(sessionID, roomID) {
		fail(c, http.StatusNotFound, ErrRoomNotFound.Error())
		return
	}
	s.hub.Broadcast(sessionID, frame(event.KindRoomDeleted.WireName(), sessionID, roomID, nil))
	ok(c, gin.H{})
}

func (s *Server) handleAutoAssign(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("sessionId"))
	var req struct {
		Strategy domain.AssignStrategy `json:"strategy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}
	assignments := s.store.AutoAssign(sessionID, req.Strategy)
	s.hub.Broadcast(sessionID, frame(event.KindAutoAssignCompleted.WireName(), sessionID, "", gin.H{"assignments": assignments}))
	ok(c, gin.H{"assignments": assignments})
}

func timeNowMilli() int64 { return time.Now().UnixMilli() }

// dropParticipant removes a participant from a room and broadcasts the
// left event.
func (s *Server) dropParticipant(sessionID domain.SessionID, roomID domain.RoomID, participantID domain.ParticipantID) {
	if participantID == "" || roomID == "" {
		return
	}
	if _, err := s.store.Leave(sessionID, roomID, participantID); err != nil {
		return
	}
	s.hub.Broadcast(sessionID, eventFrame{
		Event:         event.KindParticipantLeft.WireName(),
		SessionID:     sessionID,
		RoomID:        roomID,
		ParticipantID: participantID,
		Timestamp:     timeNowMilli(),
	})
}
