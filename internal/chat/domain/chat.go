package domain

import "time"

// ChatKind definition chat kind
type ChatKind string

const (
	//ChatKindPrivate two-party chat, exactly two participants for its lifetime
	ChatKindPrivate ChatKind = "private"
	//ChatKindGroup n-party chat
	ChatKindGroup ChatKind = "group"
)

// ParticipantRole role of a membership edge
type ParticipantRole string

const (
	//RoleAdmin may rename, add, remove and delete on group chats
	RoleAdmin ParticipantRole = "admin"
	//RoleMember plain member
	RoleMember ParticipantRole = "member"
)

// Chat represents a conversation, private or group.
type Chat struct {
	ID        string   `gorm:"primaryKey;type:uuid" json:"id"`
	Kind      ChatKind `gorm:"type:varchar(10);index:idx_chats_kind" json:"kind"`
	Name      string   `gorm:"type:varchar(255)" json:"name,omitempty"`
	CreatedBy string   `gorm:"type:uuid" json:"created_by"`

	Participants []Participant `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName gorm table name
func (Chat) TableName() string { return "chats" }

// Participant membership edge linking a user to a chat with a role.
// (chat_id, user_id) is unique.
type Participant struct {
	ID       string          `gorm:"primaryKey;type:uuid" json:"-"`
	ChatID   string          `gorm:"type:uuid;uniqueIndex:idx_chat_user" json:"chat_id"`
	UserID   string          `gorm:"type:uuid;uniqueIndex:idx_chat_user;index:idx_participants_user" json:"user_id"`
	Role     ParticipantRole `gorm:"type:varchar(10)" json:"role"`
	JoinedAt time.Time       `gorm:"autoCreateTime" json:"joined_at"`
}

// TableName gorm table name
func (Participant) TableName() string { return "chat_participants" }

// HasParticipant report whether userID is in the loaded participant set
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ChatSummary chat plus per-viewer fields for the REST chat list
type ChatSummary struct {
	Chat              Chat       `json:"chat"`
	UnreadCount       int64      `json:"unread_count"`
	OtherUserOnline   bool       `json:"other_user_online"`
	OtherUserLastSeen *time.Time `json:"other_user_last_seen,omitempty"`
	DisplayName       string     `json:"display_name"`
}
