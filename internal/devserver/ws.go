package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solstice-app/breakout/internal/domain"
	"github.com/solstice-app/breakout/internal/event"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventFrame is the inbound-event wire shape the client decodes.
type eventFrame struct {
	Event         string               `json:"event"`
	SessionID     domain.SessionID     `json:"sessionId"`
	RoomID        domain.RoomID        `json:"roomId,omitempty"`
	ParticipantID domain.ParticipantID `json:"participantId,omitempty"`
	Timestamp     int64                `json:"timestamp"`
	Payload       any                  `json:"payload,omitempty"`
}

func frame(name string, sessionID domain.SessionID, roomID domain.RoomID, payload any) eventFrame {
	return eventFrame{
		Event:     name,
		SessionID: sessionID,
		RoomID:    roomID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// wsSession is one socket's server-side state: which participant it
// speaks for once it has joined a room.
type wsSession struct {
	srv         *Server
	sessionID   domain.SessionID
	cl          *client
	participant domain.ParticipantID
	room        domain.RoomID
}

// HandleSocket upgrades the connection and runs the event loop.
func (s *Server) HandleSocket(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("sessionId"))
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "devserver").Msg("ws upgrade")
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, 32)}
	s.hub.add(sessionID, cl)
	log.Info().Str("module", "devserver").Str("session", string(sessionID)).Msg("socket attached")

	ws := &wsSession{srv: s, sessionID: sessionID, cl: cl}
	go ws.writePump()
	ws.readPump()
}

func (ws *wsSession) writePump() {
	for data := range ws.cl.send {
		if err := ws.cl.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}
		if err := ws.cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (ws *wsSession) readPump() {
	defer func() {
		ws.srv.hub.remove(ws.sessionID, ws.cl)
		ws.cl.close()
		if ws.room != "" && ws.participant != "" {
			ws.srv.dropParticipant(ws.sessionID, ws.room, ws.participant)
		}
		log.Info().Str("module", "devserver").Str("session", string(ws.sessionID)).Msg("socket detached")
	}()
	for {
		_, data, err := ws.cl.conn.ReadMessage()
		if err != nil {
			return
		}
		ws.handle(data)
	}
}

func (ws *wsSession) handle(data []byte) {
	var head struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		log.Warn().Err(err).Str("module", "devserver").Msg("bad frame")
		return
	}
	switch head.Event {
	case event.EmitCreateRoom:
		ws.handleCreate(head.Payload)
	case event.EmitJoinRoom:
		ws.handleJoin(head.Payload)
	case event.EmitLeaveRoom:
		ws.handleLeave(head.Payload)
	case event.EmitUpdateRoom:
		ws.handleUpdate(head.Payload)
	case event.EmitDeleteRoom:
		ws.handleDelete(head.Payload)
	case event.EmitMessage:
		ws.handleMessage(head.Payload)
	case event.EmitReaction:
		// Reactions are ephemeral; nothing to store or echo in the
		// dev server.
	case event.EmitModerate:
		ws.handleModerate(head.Payload)
	default:
		log.Debug().Str("module", "devserver").Str("event", head.Event).Msg("unhandled event")
	}
}

// sendTo delivers a frame to this socket only (acknowledgments).
func (ws *wsSession) sendTo(f eventFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	ws.cl.trySend(data)
}

func (ws *wsSession) handleCreate(payload []byte) {
	var p event.CreateRoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ws.sendTo(frame(event.KindRoomCreateError.WireName(), ws.sessionID, "", gin.H{"error": "bad payload"}))
		return
	}
	if err := p.RoomConfig.Validate(); err != nil {
		ws.sendTo(frame(event.KindRoomCreateError.WireName(), ws.sessionID, "", gin.H{"error": err.Error()}))
		return
	}
	room := ws.srv.store.CreateRoom(ws.sessionID, p.RoomConfig)
	ws.srv.hub.Broadcast(ws.sessionID, frame(event.KindRoomCreated.WireName(), ws.sessionID, room.ID, gin.H{"room": room}))
}

func (ws *wsSession) handleJoin(payload []byte) {
	var p event.JoinRoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	room, err := ws.srv.store.Join(ws.sessionID, p.RoomID, p.ParticipantData)
	if err != nil {
		ws.sendTo(eventFrame{
			Event:     event.KindRoomJoinError.WireName(),
			SessionID: ws.sessionID,
			RoomID:    p.RoomID,
			Timestamp: time.Now().UnixMilli(),
			Payload:   gin.H{"error": err.Error()},
		})
		return
	}
	ws.participant = p.ParticipantData.ID
	ws.room = p.RoomID
	ws.sendTo(frame(event.KindRoomJoinSuccess.WireName(), ws.sessionID, p.RoomID, gin.H{"room": room}))
	joined := *room
	ws.srv.hub.Broadcast(ws.sessionID, eventFrame{
		Event:         event.KindParticipantJoined.WireName(),
		SessionID:     ws.sessionID,
		RoomID:        p.RoomID,
		ParticipantID: p.ParticipantData.ID,
		Timestamp:     time.Now().UnixMilli(),
		Payload: gin.H{
			"participant":      p.ParticipantData,
			"participantCount": joined.ParticipantCount,
			"participants":     joined.Participants,
		},
	})
}

func (ws *wsSession) handleLeave(payload []byte) {
	var p event.LeaveRoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	ws.srv.dropParticipant(ws.sessionID, p.RoomID, ws.participant)
	ws.room = ""
}

func (ws *wsSession) handleUpdate(payload []byte) {
	var p event.UpdateRoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	room, err := ws.srv.store.Update(ws.sessionID, p.RoomID, p.Updates)
	if err != nil {
		return
	}
	ws.srv.hub.Broadcast(ws.sessionID, frame(event.KindRoomUpdated.WireName(), ws.sessionID, room.ID, gin.H{"room": room}))
}

func (ws *wsSession) handleDelete(payload []byte) {
	var p event.DeleteRoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	if ws.srv.store.Delete(ws.sessionID, p.RoomID) {
		ws.srv.hub.Broadcast(ws.sessionID, frame(event.KindRoomDeleted.WireName(), ws.sessionID, p.RoomID, nil))
	}
}

func (ws *wsSession) handleMessage(payload []byte) {
	var p event.MessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	ws.srv.hub.Broadcast(ws.sessionID, frame(event.KindMessageReceived.WireName(), ws.sessionID, p.RoomID, gin.H{"message": p.Message}))
}

func (ws *wsSession) handleModerate(payload []byte) {
	var p event.ModeratePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	ws.srv.hub.Broadcast(ws.sessionID, frame(event.KindModerationAction.WireName(), ws.sessionID, p.RoomID, gin.H{"action": p.Action}))
}
