package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realtime_chat_service/internal/account/domain"
	errprocess "realtime_chat_service/pkg/err"
)

// AccountRepository definition get account info
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindByAccount(ctx context.Context, query *domain.AccountQuery) (*domain.Account, error)
	SearchByUsername(ctx context.Context, q string, limit int) ([]domain.Account, error)
	UpdatePresence(ctx context.Context, userID string, online bool, lastSeen *time.Time) error
}

type accountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository create an AccountRepository
func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &accountRepository{db: db}
}

// EnsureSchema creates the accounts table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS accounts (
        user_id      uuid PRIMARY KEY,
        username     text UNIQUE NOT NULL,
        email        text UNIQUE NOT NULL,
        phone        text UNIQUE NOT NULL,
        password     text NOT NULL,
        avatar_url   text NOT NULL DEFAULT '',
        is_online    boolean NOT NULL DEFAULT false,
        last_seen_at timestamptz,
        created_at   timestamptz NOT NULL DEFAULT now()
      )
    `)
	return err
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO accounts(user_id, username, email, phone, password, avatar_url) VALUES ($1, $2, $3, $4, $5, $6)",
		account.UserID, account.Username, account.Email, account.Phone, account.Password, account.AvatarURL,
	)
	return err
}

func (r *accountRepository) FindByAccount(ctx context.Context, query *domain.AccountQuery) (*domain.Account, error) {
	queryStr := "SELECT user_id, username, email, phone, password, avatar_url, is_online, last_seen_at FROM accounts WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if query.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, *query.Email)
		paramCount++
	}
	if query.UserID != nil {
		queryStr += fmt.Sprintf(" AND user_id = $%d", paramCount)
		params = append(params, *query.UserID)
		paramCount++
	}
	if query.Username != nil {
		queryStr += fmt.Sprintf(" AND username = $%d", paramCount)
		params = append(params, *query.Username)
		paramCount++
	}

	row := r.db.QueryRow(ctx, queryStr, params...)
	var account domain.Account
	err := row.Scan(
		&account.UserID, &account.Username, &account.Email, &account.Phone,
		&account.Password, &account.AvatarURL, &account.IsOnline, &account.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errprocess.ErrNotFound
		}
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) SearchByUsername(ctx context.Context, q string, limit int) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx,
		"SELECT user_id, username, email, avatar_url, is_online, last_seen_at FROM accounts WHERE username ILIKE $1 ORDER BY username LIMIT $2",
		"%"+q+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.UserID, &account.Username, &account.Email,
			&account.AvatarURL, &account.IsOnline, &account.LastSeenAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// UpdatePresence flips the online flag; lastSeen is stamped only on the
// offline transition.
func (r *accountRepository) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen *time.Time) error {
	if lastSeen != nil {
		_, err := r.db.Exec(ctx,
			"UPDATE accounts SET is_online = $1, last_seen_at = $2 WHERE user_id = $3",
			online, *lastSeen, userID,
		)
		return err
	}
	_, err := r.db.Exec(ctx,
		"UPDATE accounts SET is_online = $1 WHERE user_id = $2",
		online, userID,
	)
	return err
}
