package app

import (
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
)

// EventSink one attached connection able to receive outbound frames.
// Enqueue must never block; it reports false when the frame was
// dropped because the connection cannot keep up.
type EventSink interface {
	UserID() string
	Enqueue(frame domain.OutboundFrame) bool
}

// Hub in-process session registry. A user is online iff at least one
// of their sessions is registered; multiple devices register multiple
// sinks under the same user id.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[EventSink]struct{}
}

// NewHub create an empty session registry
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[EventSink]struct{}),
	}
}

// Register attach a sink. Returns true when this is the user's first
// live session, the moment the user transitions to online.
func (h *Hub) Register(sink EventSink) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := sink.UserID()
	set, ok := h.sessions[userID]
	if !ok {
		set = make(map[EventSink]struct{})
		h.sessions[userID] = set
	}
	first := len(set) == 0
	set[sink] = struct{}{}
	return first
}

// Unregister detach a sink. Returns true plus the disconnect time when
// this was the user's last session, the moment the user goes offline.
func (h *Hub) Unregister(sink EventSink) (bool, time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := sink.UserID()
	set, ok := h.sessions[userID]
	if !ok {
		return false, time.Time{}
	}
	if _, attached := set[sink]; !attached {
		return false, time.Time{}
	}
	delete(set, sink)
	if len(set) == 0 {
		delete(h.sessions, userID)
		return true, time.Now().UTC()
	}
	return false, time.Time{}
}

// Route deliver a frame to every live session of one user. Sessions
// that cannot keep up drop the frame, delivery is fire and forget.
func (h *Hub) Route(userID string, frame domain.OutboundFrame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sink := range h.sessions[userID] {
		sink.Enqueue(frame)
	}
}

// IsOnline true when the user has at least one live session
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID]) > 0
}
