package app

import (
	"context"
	"errors"
	"testing"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEventRouter_FanOutToConnectedParticipants(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	userA := uuid.New().String()
	userB := uuid.New().String()
	userOffline := uuid.New().String()

	hub := NewHub()
	sinkA := newRecordingSink(userA)
	sinkB := newRecordingSink(userB)
	hub.Register(sinkA)
	hub.Register(sinkB)

	chatRepo := new(MockChatRepository)
	chatRepo.On("ParticipantIDs", ctx, chatID).Return([]string{userA, userB, userOffline}, nil)

	router := NewEventRouter(hub, chatRepo)
	router.Broadcast(ctx, chatID, domain.OutboundFrame{Type: domain.EventMessageNew}, "")

	assert.Len(t, sinkA.received(), 1)
	assert.Len(t, sinkB.received(), 1)
}

func TestEventRouter_ExcludesSender(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	sender := uuid.New().String()
	other := uuid.New().String()

	hub := NewHub()
	senderSink := newRecordingSink(sender)
	otherSink := newRecordingSink(other)
	hub.Register(senderSink)
	hub.Register(otherSink)

	chatRepo := new(MockChatRepository)
	chatRepo.On("ParticipantIDs", ctx, chatID).Return([]string{sender, other}, nil)

	router := NewEventRouter(hub, chatRepo)
	router.Broadcast(ctx, chatID, domain.OutboundFrame{Type: domain.EventTypingStart}, sender)

	assert.Empty(t, senderSink.received())
	assert.Len(t, otherSink.received(), 1)
}

func TestEventRouter_SnapshotFailureDeliversNothing(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	chatID := uuid.New().String()
	userID := uuid.New().String()

	hub := NewHub()
	sink := newRecordingSink(userID)
	hub.Register(sink)

	chatRepo := new(MockChatRepository)
	chatRepo.On("ParticipantIDs", ctx, chatID).Return(nil, errors.New("db down"))

	router := NewEventRouter(hub, chatRepo)
	router.Broadcast(ctx, chatID, domain.OutboundFrame{Type: domain.EventMessageNew}, "")

	assert.Empty(t, sink.received())
}

func TestEventRouter_LaggingSessionDropsFrame(t *testing.T) {
	userID := uuid.New().String()

	hub := NewHub()
	sink := newRecordingSink(userID)
	sink.full = true
	hub.Register(sink)

	router := NewEventRouter(hub, new(MockChatRepository))
	router.SendToUser(userID, domain.OutboundFrame{Type: domain.EventMessageNew})

	assert.Empty(t, sink.received())
}

func TestEventRouter_BroadcastTo(t *testing.T) {
	userA := uuid.New().String()
	userB := uuid.New().String()

	hub := NewHub()
	sinkA := newRecordingSink(userA)
	hub.Register(sinkA)

	router := NewEventRouter(hub, new(MockChatRepository))
	router.BroadcastTo([]string{userA, userB}, domain.OutboundFrame{Type: domain.EventChatNew})

	assert.Len(t, sinkA.received(), 1)
}
