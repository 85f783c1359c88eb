package domain

import (
	"time"

	"realtime_chat_service/pkg/encrypt"
)

// Account represents a registered user of the gateway.
type Account struct {
	UserID     string
	Username   string
	Email      string
	Phone      string
	Password   string
	AvatarURL  string
	IsOnline   bool
	LastSeenAt *time.Time
	CreatedAt  time.Time
}

// IsPasswordMatch verify password
func (a *Account) IsPasswordMatch(inputPwd string) error {
	return encrypt.CheckPassword(a.Password, inputPwd)
}

// AccountQuery join conditions are used to query accounts
type AccountQuery struct {
	UserID   *string `db:"user_id"`
	Email    *string `db:"email"`
	Username *string `db:"username"`
}

// PresenceRecord presence snapshot stored in redis, keyed
// presence:user:<id>. Written only by session registry transitions.
type PresenceRecord struct {
	UserID     string     `json:"user_id"`
	IsOnline   bool       `json:"is_online"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}
