package domain

import (
	"encoding/json"
	"time"
)

// Inbound frame types (client -> server)
const (
	// FrameMessageSend websocket frame message.send
	FrameMessageSend = "message.send"
	// FrameTypingStart websocket frame typing.start
	FrameTypingStart = "typing.start"
	// FrameTypingStop websocket frame typing.stop
	FrameTypingStop = "typing.stop"
	// FrameMessageRead websocket frame message.read
	FrameMessageRead = "message.read"
	// FramePing websocket frame ping
	FramePing = "ping"
)

// Outbound event types (server -> client)
const (
	// EventMessageNew a message was appended to a chat
	EventMessageNew = "message.new"
	// EventTypingStart a participant started typing
	EventTypingStart = "typing.start"
	// EventTypingStop a participant stopped typing
	EventTypingStop = "typing.stop"
	// EventMessageRead read receipt for one or more messages
	EventMessageRead = "message.read"
	// EventChatNew a chat the recipient belongs to came into view
	EventChatNew = "chat.new"
	// EventChatUpdated chat fields changed
	EventChatUpdated = "chat.updated"
	// EventChatDeleted the chat is gone for the recipient
	EventChatDeleted = "chat.deleted"
	// EventParticipantAdded a user joined the membership set
	EventParticipantAdded = "participant.added"
	// EventParticipantRemoved an admin removed a user
	EventParticipantRemoved = "participant.removed"
	// EventParticipantLeft a user left on their own
	EventParticipantLeft = "participant.left"
	// EventPresenceOnline a chat partner came online
	EventPresenceOnline = "presence.online"
	// EventPresenceOffline a chat partner went offline
	EventPresenceOffline = "presence.offline"
	// EventError connection-local error report
	EventError = "error"
	// EventPong reply to ping
	EventPong = "pong"
)

// InboundFrame client -> server websocket frame
type InboundFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// OutboundFrame server -> client websocket frame
type OutboundFrame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ErrorFrame build a connection-local error frame
func ErrorFrame(message string) OutboundFrame {
	return OutboundFrame{
		Type:    EventError,
		Payload: map[string]string{"message": message},
	}
}

// SendMessagePayload payload of message.send
type SendMessagePayload struct {
	ChatID      string `json:"chat_id"`
	MessageType string `json:"message_type"`
	Content     string `json:"content,omitempty"`
	FileID      string `json:"file_id,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// TypingPayload payload of typing.start / typing.stop
type TypingPayload struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id,omitempty"`
}

// ReadPayload payload of message.read
type ReadPayload struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
}

// PresencePayload payload of presence.online / presence.offline
type PresencePayload struct {
	UserID     string `json:"user_id"`
	LastSeenAt string `json:"last_seen_at,omitempty"`
}

// ChatEventPayload payload of chat.new / chat.updated / chat.deleted
type ChatEventPayload struct {
	Chat *Chat `json:"chat"`
}

// ParticipantEventPayload payload of participant.added / removed / left
type ParticipantEventPayload struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// ReadEventPayload payload of the outbound message.read event. A bulk
// mark-read folds every affected message into one event per sender.
type ReadEventPayload struct {
	ChatID     string    `json:"chat_id"`
	ReaderID   string    `json:"reader_id"`
	MessageIDs []string  `json:"message_ids"`
	ReadAt     time.Time `json:"read_at"`
}
