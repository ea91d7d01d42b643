package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"workshop-chat-service/internal/auth"
	"workshop-chat-service/internal/broadcast"
	"workshop-chat-service/internal/chat"
	"workshop-chat-service/internal/models"
	"workshop-chat-service/internal/observability"
	"workshop-chat-service/internal/registry"
	"workshop-chat-service/internal/repositories"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errBadTarget = errors.New("payload names neither a room nor a workshop pair")

// SessionHandler is the hub entry point: it authenticates connections, drives
// the connect/disconnect lifecycle and validates incoming messages.
type SessionHandler struct {
	verifier    *auth.Verifier
	registry    *registry.Registry
	membership  *chat.MembershipManager
	rooms       *chat.RoomService
	messages    *chat.MessageService
	broadcaster broadcast.Broadcaster
	local       *broadcast.LocalBroadcaster
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(
	verifier *auth.Verifier,
	reg *registry.Registry,
	membership *chat.MembershipManager,
	rooms *chat.RoomService,
	messages *chat.MessageService,
	broadcaster broadcast.Broadcaster,
	local *broadcast.LocalBroadcaster,
) *SessionHandler {
	return &SessionHandler{
		verifier:    verifier,
		registry:    reg,
		membership:  membership,
		rooms:       rooms,
		messages:    messages,
		broadcaster: broadcaster,
		local:       local,
	}
}

// Handle upgrades the connection and runs its session. A missing or invalid
// identity or role claim refuses the connection before the upgrade.
func (h *SessionHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("workshop-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	identity, err := h.verifier.Verify(bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	// net/http cancels the request context the moment this handler returns,
	// hijacked connections included; the session outlives the request, so
	// everything past the handshake runs on a detached context.
	sessionCtx := context.WithoutCancel(ctx)

	client := NewClient(conn)
	info := ConnInfo{
		ConnID:      client.ID(),
		UserID:      identity.UserID,
		Role:        identity.Role.String(),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	h.local.Attach(client)
	h.registry.Register(identity.UserID, client)

	if err := h.membership.OnConnect(sessionCtx, identity, client); err != nil {
		log.Printf("ws: rejecting connection %s: %v", client.ID(), err)
		h.registry.Unregister(identity.UserID, client.ID())
		h.local.Detach(client)
		conn.Close()
		return
	}

	observability.IncWSActive()
	publishLifecycle(sessionCtx, "ws_connect", info, "")

	go client.writePump()
	go h.readPump(sessionCtx, identity, client, info)
}

// readPump reads inbound frames until the connection dies. Cleanup on exit is
// unconditional: the registry entry and local subscriptions are retired even
// when the in-flight operation that triggered the disconnect failed.
func (h *SessionHandler) readPump(ctx context.Context, identity auth.Identity, client *Client, info ConnInfo) {
	var closeReason string
	defer func() {
		h.registry.Unregister(identity.UserID, client.ID())
		h.local.Detach(client)
		client.closeSend()
		client.conn.Close()
		observability.DecWSActive()
		publishLifecycle(ctx, "ws_disconnect", info, closeReason)
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycle(ctx, "ws_error", info, closeReason)
			}
			return
		}
		h.handleInbound(ctx, identity, client, raw)
	}
}

// handleInbound processes one sendMessage payload. Every failure is recovered
// at this boundary: the sender gets a receiveError notice and the connection
// stays active.
func (h *SessionHandler) handleInbound(ctx context.Context, identity auth.Identity, client *Client, raw []byte) {
	var req models.SendMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.sendError(ctx, client, "malformed payload")
		return
	}

	room, created, err := h.resolveRoom(ctx, identity, req)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNotParticipant):
			log.Printf("ws: security: user %d (%s) denied access to room %d / workshop %d", identity.UserID, identity.Role, req.RoomID, req.WorkshopID)
			h.sendError(ctx, client, "not a participant of this room")
		case errors.Is(err, errBadTarget):
			h.sendError(ctx, client, "malformed payload")
		case errors.Is(err, repositories.ErrRoomNotFound), errors.Is(err, repositories.ErrWorkshopNotFound):
			h.sendError(ctx, client, "room not found")
		default:
			log.Printf("ws: resolve room: %v", err)
			h.sendError(ctx, client, "could not resolve room")
		}
		return
	}

	msg, err := h.messages.Create(ctx, room.ID, identity.Role, req.Text)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMessageTooLong) {
			h.sendError(ctx, client, err.Error())
		} else {
			log.Printf("ws: persist message in room %d: %v", room.ID, err)
			h.sendError(ctx, client, "could not store message")
		}
		return
	}

	if created {
		if err := h.membership.OnRoomCreated(ctx, room); err != nil {
			log.Printf("ws: subscribe participants to new room %d: %v", room.ID, err)
		}
	}

	if err := h.broadcaster.SendToGroupExcept(ctx, room.ID, []string{client.ID()}, broadcast.MethodReceiveMessage, msg); err != nil {
		log.Printf("ws: broadcast to room %d: %v", room.ID, err)
	}
	observability.IncWSEvent("message")
}

// resolveRoom maps the request onto a room, enforcing participant rights. A
// request addressing a pair may create the room; the bool reports that.
func (h *SessionHandler) resolveRoom(ctx context.Context, identity auth.Identity, req models.SendMessageRequest) (models.Room, bool, error) {
	if req.RoomID != 0 {
		room, err := h.rooms.GetByID(ctx, req.RoomID)
		if err != nil {
			return models.Room{}, false, err
		}
		if err := h.rooms.ValidateParticipant(ctx, identity, room); err != nil {
			return models.Room{}, false, err
		}
		return room, false, nil
	}

	if req.WorkshopID == 0 {
		return models.Room{}, false, errBadTarget
	}
	parentID := req.ParentID
	if !identity.Role.IsProvider() {
		parentID = identity.UserID
	}
	if parentID == 0 {
		return models.Room{}, false, errBadTarget
	}

	if err := h.rooms.ValidatePair(ctx, identity, req.WorkshopID, parentID); err != nil {
		return models.Room{}, false, err
	}
	return h.rooms.GetOrCreate(ctx, req.WorkshopID, parentID)
}

// sendError pushes a receiveError notice to the originating connection only.
func (h *SessionHandler) sendError(ctx context.Context, client *Client, text string) {
	if err := h.broadcaster.SendToConnection(ctx, client.ID(), broadcast.MethodReceiveError, text); err != nil {
		log.Printf("ws: send error notice to %s: %v", client.ID(), err)
	}
	observability.IncWSEvent("receive_error")
}

func publishLifecycle(ctx context.Context, event string, info ConnInfo, reason string) {
	envelope := observability.WSLifecycleEvent(event, info.ConnID, time.Since(info.ConnectedAt), reason, info.UserID, info.Role, info.IP)
	_ = observability.PublishEvent(ctx, observability.WSRoutingKey, envelope, observability.BuildHeaders(info.RequestID, info.TraceID))
	observability.IncWSEvent(event)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
