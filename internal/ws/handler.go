package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"syncroom-service/internal/auth"
	"syncroom-service/internal/chat"
	"syncroom-service/internal/models"
	"syncroom-service/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// AssistantRelay is the hook invoked for every accepted room message.
type AssistantRelay interface {
	HandleRoomMessage(msg models.Message)
}

// Handler owns the websocket endpoint: handshake, identity, and the
// per-connection read loop dispatching the event envelope.
type Handler struct {
	identity auth.IdentityProvider
	gate     *auth.Gate
	hub      *Hub
	router   *chat.Router
	calls    *CallRelay
	relay    AssistantRelay
	tracer   trace.Tracer
	pongWait time.Duration
}

// NewHandler wires a Handler.
func NewHandler(identity auth.IdentityProvider, gate *auth.Gate, hub *Hub, router *chat.Router, calls *CallRelay, relay AssistantRelay) *Handler {
	return &Handler{
		identity: identity,
		gate:     gate,
		hub:      hub,
		router:   router,
		calls:    calls,
		relay:    relay,
		tracer:   otel.Tracer("syncroom-service/ws"),
		pongWait: pongWait,
	}
}

// envelope is the common inbound frame shape; the type field selects the
// payload fields that apply.
type envelope struct {
	Type string `json:"type"`

	RoomID int `json:"room_id"`

	Body          string `json:"body"`
	ParentID      *int   `json:"parent_id"`
	IsCodeSnippet bool   `json:"is_code_snippet"`
	Language      string `json:"language"`

	MessageID int    `json:"message_id"`
	Emoji     string `json:"emoji"`

	IsTyping bool `json:"is_typing"`

	CallRoom string          `json:"call_room"`
	TargetID string          `json:"target_id"`
	Payload  json.RawMessage `json:"payload"`
}

func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return after
	}
	return c.Query("token")
}

// Serve upgrades the request and runs the connection until it closes.
func (h *Handler) Serve(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "ws.handshake")

	identity, err := h.identity.CurrentUser(tokenFromRequest(c))
	if err != nil {
		span.End()
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.End()
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.UserID,
		Username:    identity.Username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now().UTC(),
	}
	span.SetAttributes(
		attribute.Int("user.id", identity.UserID),
		attribute.String("conn.id", info.ConnID),
	)
	span.End()

	client := NewClient(conn, identity, info)
	observability.IncWSActive()
	observability.PublishEvent(ctx, "ws.connect", observability.EventEnvelope{
		EventType: "ws",
		EventName: "ws_connect",
		Payload:   info,
	})
	log.Info().
		Str("conn_id", info.ConnID).
		Int("user_id", identity.UserID).
		Str("ip", info.IP).
		Msg("websocket connected")

	go client.WritePump()
	h.readLoop(client)

	h.disconnect(client)
}

func (h *Handler) disconnect(client *Client) {
	h.calls.LeaveCall(client)
	roomID, roster, changed := h.hub.Leave(client)
	if changed {
		h.hub.BroadcastRoster(roomID, roster)
	}
	client.Close()

	observability.DecWSActive()
	observability.PublishEvent(context.Background(), "ws.disconnect", observability.EventEnvelope{
		EventType: "ws",
		EventName: "ws_disconnect",
		Payload:   client.Info,
	})
	log.Info().
		Str("conn_id", client.Info.ConnID).
		Int("user_id", client.Info.UserID).
		Msg("websocket disconnected")
}

func (h *Handler) readLoop(client *Client) {
	// Pings from the write pump must come back as pongs within pongWait,
	// otherwise the read fails and the connection is reaped.
	_ = client.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn_id", client.Info.ConnID).Msg("websocket read error")
			}
			return
		}

		var ev envelope
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Type == "" {
			continue
		}
		observability.IncWSEvent(ev.Type)
		h.dispatch(client, ev)
	}
}

func (h *Handler) dispatch(client *Client, ev envelope) {
	ctx := context.Background()

	switch ev.Type {
	case models.EventJoinRoom:
		h.handleJoinRoom(ctx, client, ev.RoomID)

	case models.EventChatMessage:
		h.handleChatMessage(ctx, client, ev)

	case models.EventAddReaction:
		roomID := client.Room()
		if roomID == 0 {
			return
		}
		if err := h.router.AddReaction(ctx, roomID, client.Identity.UserID, ev.MessageID, ev.Emoji); err != nil {
			h.logDenied(client, ev.Type, err)
		}

	case models.EventDeleteMessage:
		roomID := client.Room()
		if roomID == 0 {
			return
		}
		if err := h.router.DeleteMessage(ctx, roomID, client.Identity.UserID, ev.MessageID); err != nil {
			h.logDenied(client, ev.Type, err)
		}

	case models.EventTyping:
		roomID := client.Room()
		if roomID == 0 {
			return
		}
		userID := client.Identity.UserID
		h.router.BroadcastTyping(roomID, &userID, client.Identity.Username, ev.IsTyping)

	case models.EventJoinCall:
		peers := h.calls.JoinCall(client, ev.CallRoom)
		h.sendTo(client, models.PeerListEvent{Type: models.EventExistingPeers, Peers: peers})

	case models.EventOffer, models.EventAnswer, models.EventICECandidate:
		h.calls.Forward(client, ev.Type, ev.TargetID, ev.Payload)

	case models.EventLeaveCall:
		h.calls.LeaveCall(client)

	default:
		log.Debug().Str("type", ev.Type).Str("conn_id", client.Info.ConnID).Msg("unknown event type")
	}
}

func (h *Handler) handleJoinRoom(ctx context.Context, client *Client, roomID int) {
	if roomID == 0 {
		return
	}
	if _, err := h.gate.RequireMember(ctx, roomID, client.Identity.UserID); err != nil {
		h.sendTo(client, models.ErrorEvent{Type: models.EventError, Message: "not a member of this room"})
		return
	}
	roster := h.hub.Join(client, roomID)
	h.hub.BroadcastRoster(roomID, roster)
}

func (h *Handler) handleChatMessage(ctx context.Context, client *Client, ev envelope) {
	roomID := client.Room()
	if roomID == 0 {
		return
	}
	stored, err := h.router.PostMessage(ctx, chat.Inbound{
		RoomID:        roomID,
		AuthorID:      client.Identity.UserID,
		AuthorName:    client.Identity.Username,
		Body:          ev.Body,
		ParentID:      ev.ParentID,
		IsCodeSnippet: ev.IsCodeSnippet,
		Language:      ev.Language,
	})
	if err != nil {
		// Empty bodies and authorization failures are dropped without
		// feedback; the room never learns about them.
		if !errors.Is(err, chat.ErrEmptyBody) {
			h.logDenied(client, ev.Type, err)
		}
		return
	}
	if h.relay != nil {
		h.relay.HandleRoomMessage(stored)
	}
}

func (h *Handler) sendTo(client *Client, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("event marshal")
		return
	}
	if err := client.TrySend(payload); err != nil {
		client.Close()
	}
}

func (h *Handler) logDenied(client *Client, eventType string, err error) {
	if errors.Is(err, auth.ErrForbidden) || errors.Is(err, auth.ErrNotAMember) {
		log.Debug().
			Str("event", eventType).
			Int("user_id", client.Identity.UserID).
			Msg("event denied")
		return
	}
	log.Error().Err(err).Str("event", eventType).Str("conn_id", client.Info.ConnID).Msg("event failed")
}
