package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"
)

const (
	// writeWait max time to push one frame out
	writeWait = 10 * time.Second
	// pongWait max silence before the peer counts as gone
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10
	// maxFrameSize inbound frame cap in bytes
	maxFrameSize = 64 * 1024
	// sendBuffer outbound queue per connection
	sendBuffer = 256
)

// PresenceStore durable presence writes, backed by the account package
type PresenceStore interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string, lastSeen time.Time) error
}

// IdentityResolver turns the credential presented at connect time into
// a user id, confirming the account still exists.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

// Client one authenticated websocket connection. It implements
// EventSink; outbound frames flow through a buffered queue drained by
// the write pump, slow consumers drop frames rather than block the
// router.
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan domain.OutboundFrame

	closeOnce sync.Once
	done      chan struct{}
}

// UserID owner of this session
func (c *Client) UserID() string { return c.userID }

// Enqueue queue a frame for the write pump, false when dropped
func (c *Client) Enqueue(frame domain.OutboundFrame) bool {
	select {
	case <-c.done:
		return false
	case c.send <- frame:
		return true
	default:
		logger.Log.Warnf("session of user(%s) is lagging, frame %s dropped", c.userID, frame.Type)
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// WSGateway owns the websocket lifecycle: authenticate, register with
// the hub, pump frames, and tear down with presence bookkeeping.
type WSGateway struct {
	hub         *Hub
	chatRepo    repository.ChatRepository
	messageUC   MessageUseCase
	broadcaster Broadcaster
	presence    PresenceStore
	resolver    IdentityResolver
}

// NewWSGateway create WSGateway
func NewWSGateway(
	hub *Hub,
	chatRepo repository.ChatRepository,
	messageUC MessageUseCase,
	broadcaster Broadcaster,
	presence PresenceStore,
	resolver IdentityResolver,
) *WSGateway {
	return &WSGateway{
		hub:         hub,
		chatRepo:    chatRepo,
		messageUC:   messageUC,
		broadcaster: broadcaster,
		presence:    presence,
		resolver:    resolver,
	}
}

// HandleConnection entry point invoked by the websocket route. The
// token middleware has already validated the signature; the credential
// is resolved once more against the account store so a token for a
// deleted account cannot open a session.
func (g *WSGateway) HandleConnection(conn *websocket.Conn) {
	credential, _ := conn.Locals(middlewares.TokenCredential).(string)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	userID, err := g.authenticate(ctx, credential)
	cancel()
	if err != nil {
		_ = conn.WriteJSON(domain.ErrorFrame(errText(err)))
		_ = conn.Close()
		return
	}

	client := &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan domain.OutboundFrame, sendBuffer),
		done:   make(chan struct{}),
	}

	first := g.hub.Register(client)
	logger.Log.Infof("user(%s) session attached, first=%v", userID, first)
	if first {
		g.announcePresence(userID, true, time.Time{})
	}

	go g.writePump(client)
	g.readPump(client)

	last, lastSeen := g.hub.Unregister(client)
	client.close()
	logger.Log.Infof("user(%s) session detached, last=%v", userID, last)
	if last {
		g.announcePresence(userID, false, lastSeen)
	}
}

// authenticate resolve the connect-time credential to a user id
func (g *WSGateway) authenticate(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", errprocess.Wrap(errprocess.ErrUnauthenticated, "missing credential")
	}
	userID, err := g.resolver.Resolve(ctx, credential)
	if err != nil {
		logger.Log.Warnf("websocket credential rejected: %v", err)
		return "", err
	}
	return userID, nil
}

// announcePresence persist the transition and tell every chat partner
func (g *WSGateway) announcePresence(userID string, online bool, lastSeen time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := domain.EventPresenceOffline
	payload := domain.PresencePayload{UserID: userID}
	if online {
		event = domain.EventPresenceOnline
		if err := g.presence.SetOnline(ctx, userID); err != nil {
			logger.Log.Errorf("set user(%s) online failed: %v", userID, err)
		}
	} else {
		payload.LastSeenAt = lastSeen.Format(time.RFC3339)
		if err := g.presence.SetOffline(ctx, userID, lastSeen); err != nil {
			logger.Log.Errorf("set user(%s) offline failed: %v", userID, err)
		}
	}

	chatIDs, err := g.chatRepo.ChatIDsOf(ctx, userID)
	if err != nil {
		logger.Log.Errorf("presence fan-out: list chats of user(%s) failed: %v", userID, err)
		return
	}
	frame := domain.OutboundFrame{Type: event, Payload: payload}
	for _, chatID := range chatIDs {
		g.broadcaster.Broadcast(ctx, chatID, frame, userID)
	}
}

// readPump pull frames off the wire until the connection dies
func (g *WSGateway) readPump(c *Client) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Warnf("user(%s) connection error: %v", c.userID, err)
			}
			return
		}

		var frame domain.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.Enqueue(domain.ErrorFrame("malformed frame"))
			continue
		}
		g.dispatch(c, frame)
	}
}

// dispatch handle one inbound frame. A failed frame produces an error
// frame on this connection only, the session stays up.
func (g *WSGateway) dispatch(c *Client, frame domain.InboundFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch frame.Type {
	case domain.FramePing:
		c.Enqueue(domain.OutboundFrame{Type: domain.EventPong})

	case domain.FrameMessageSend:
		var payload domain.SendMessagePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.Enqueue(domain.ErrorFrame("malformed message.send payload"))
			return
		}
		if _, err := g.messageUC.Send(ctx, c.userID, payload); err != nil {
			c.Enqueue(domain.ErrorFrame(errText(err)))
		}

	case domain.FrameTypingStart, domain.FrameTypingStop:
		var payload domain.TypingPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.Enqueue(domain.ErrorFrame("malformed typing payload"))
			return
		}
		started := frame.Type == domain.FrameTypingStart
		if err := g.messageUC.Typing(ctx, c.userID, payload.ChatID, started); err != nil {
			c.Enqueue(domain.ErrorFrame(errText(err)))
		}

	case domain.FrameMessageRead:
		var payload domain.ReadPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.Enqueue(domain.ErrorFrame("malformed message.read payload"))
			return
		}
		if err := g.messageUC.MarkOneRead(ctx, c.userID, payload.ChatID, payload.MessageID); err != nil {
			c.Enqueue(domain.ErrorFrame(errText(err)))
		}

	default:
		c.Enqueue(domain.ErrorFrame("unknown frame type: " + frame.Type))
	}
}

// writePump drain the outbound queue and keep the connection alive
func (g *WSGateway) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// errText client-safe message for an operation error
func errText(err error) string {
	switch {
	case errors.Is(err, errprocess.ErrUnauthenticated):
		return "authentication required"
	case errors.Is(err, errprocess.ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, errprocess.ErrNotFound):
		return "not found"
	case errors.Is(err, errprocess.ErrInvalidOperation):
		return err.Error()
	default:
		return "internal error"
	}
}
