package app

import (
	"context"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/logger"
)

// Broadcaster fan-out contract used by the use cases. All delivery is
// best effort toward currently connected sessions, offline users are
// skipped and expected to catch up from history.
type Broadcaster interface {
	// Broadcast deliver the frame to every current participant of the
	// chat, excluding excludeUserID when non-empty.
	Broadcast(ctx context.Context, chatID string, frame domain.OutboundFrame, excludeUserID string)
	// BroadcastTo deliver the frame to an explicit recipient list.
	BroadcastTo(userIDs []string, frame domain.OutboundFrame)
	// SendToUser deliver the frame to one user's sessions.
	SendToUser(userID string, frame domain.OutboundFrame)
}

// EventRouter resolves a chat to its membership snapshot and routes
// frames through the hub.
type EventRouter struct {
	hub      *Hub
	chatRepo repository.ChatRepository
}

// NewEventRouter create a Broadcaster on top of the hub
func NewEventRouter(hub *Hub, chatRepo repository.ChatRepository) *EventRouter {
	return &EventRouter{hub: hub, chatRepo: chatRepo}
}

// Broadcast snapshot the participant set, then fan out. A store
// failure delivers to nobody, never to a stale guess.
func (r *EventRouter) Broadcast(ctx context.Context, chatID string, frame domain.OutboundFrame, excludeUserID string) {
	recipients, err := r.chatRepo.ParticipantIDs(ctx, chatID)
	if err != nil {
		logger.Log.Errorf("broadcast: snapshot participants of chat(%s) failed: %v", chatID, err)
		return
	}
	for _, userID := range recipients {
		if userID == excludeUserID {
			continue
		}
		r.hub.Route(userID, frame)
	}
}

// BroadcastTo fan a frame out to an explicit recipient list
func (r *EventRouter) BroadcastTo(userIDs []string, frame domain.OutboundFrame) {
	for _, userID := range userIDs {
		r.hub.Route(userID, frame)
	}
}

// SendToUser route a frame to one user's sessions
func (r *EventRouter) SendToUser(userID string, frame domain.OutboundFrame) {
	r.hub.Route(userID, frame)
}
