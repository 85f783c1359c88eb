package domain

import "time"

// MessageType definition message payload kind
type MessageType string

const (
	//MessageTypeText plain text content
	MessageTypeText MessageType = "text"
	//MessageTypeFile opaque reference to an uploaded file
	MessageTypeFile MessageType = "file"
)

// MessageStatus delivery state, monotonic sent -> delivered -> read
type MessageStatus string

const (
	//MessageStatusSent stored, not yet seen by any recipient device
	MessageStatusSent MessageStatus = "sent"
	//MessageStatusDelivered reached at least one recipient device
	MessageStatusDelivered MessageStatus = "delivered"
	//MessageStatusRead read by a recipient
	MessageStatusRead MessageStatus = "read"
)

// rank orders statuses for the monotonic guard
func (s MessageStatus) rank() int {
	switch s {
	case MessageStatusSent:
		return 0
	case MessageStatusDelivered:
		return 1
	case MessageStatusRead:
		return 2
	}
	return -1
}

// CanAdvanceTo report whether moving to next is a forward transition
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	return next.rank() > s.rank()
}

// Message one message in a chat.
type Message struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"message_id"`
	ChatID      string        `gorm:"type:uuid;index:idx_messages_chat" json:"chat_id"`
	SenderID    string        `gorm:"type:uuid;index:idx_messages_sender" json:"sender_id"`
	MessageType MessageType   `gorm:"type:varchar(10)" json:"message_type"`
	Content     string        `json:"content,omitempty"`
	FileID      string        `gorm:"type:uuid" json:"file_id,omitempty"`
	FileName    string        `json:"file_name,omitempty"`
	FileSize    int64         `json:"file_size,omitempty"`
	MimeType    string        `json:"mime_type,omitempty"`
	Status      MessageStatus `gorm:"type:varchar(10);index:idx_messages_status" json:"status"`

	CreatedAt   time.Time  `json:"timestamp"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// TableName gorm table name
func (Message) TableName() string { return "messages" }

// ReadReceipt one row affected by a bulk mark-read, enough for the
// router to notify the original sender.
type ReadReceipt struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
}
