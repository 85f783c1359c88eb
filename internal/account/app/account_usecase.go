package app

import (
	"context"
	"errors"
	"time"

	"realtime_chat_service/internal/account/domain"
	"realtime_chat_service/internal/account/repository"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/encrypt"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	token "realtime_chat_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const presenceKeyPrefix = "presence:user:"

// AccountUseCase application services around identity and presence.
// Resolve is the identity resolver consumed at connection time; the
// SetOnline/SetOffline pair is invoked only by session registry
// transitions.
type AccountUseCase interface {
	Register(ctx context.Context, username, email, phone, password string) error
	Login(ctx context.Context, email, password string) (string, error)
	Resolve(ctx context.Context, credential string) (string, error)
	FindAccount(ctx context.Context, param *domain.AccountQuery) (*domain.Account, error)
	Search(ctx context.Context, q string) ([]domain.Account, error)

	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string, lastSeen time.Time) error
	Presence(ctx context.Context, userID string) (domain.PresenceRecord, error)
}

type accountUseCase struct {
	accountRepo  repository.AccountRepository
	presenceRepo database.RedisRepository[domain.PresenceRecord]
	presenceTTL  time.Duration
	issuer       string
}

// NewAccountUseCase build an AccountUseCase
func NewAccountUseCase(
	accountRepo repository.AccountRepository,
	presenceRepo database.RedisRepository[domain.PresenceRecord],
	presenceTTL time.Duration,
	issuer string,
) AccountUseCase {
	return &accountUseCase{
		accountRepo:  accountRepo,
		presenceRepo: presenceRepo,
		presenceTTL:  presenceTTL,
		issuer:       issuer,
	}
}

// Register create a new account
func (a *accountUseCase) Register(ctx context.Context, username, email, phone, password string) error {
	if _, err := a.accountRepo.FindByAccount(ctx, &domain.AccountQuery{Email: &email}); err == nil {
		return errprocess.Wrap(errprocess.ErrInvalidOperation, "email already exists")
	}
	if _, err := a.accountRepo.FindByAccount(ctx, &domain.AccountQuery{Username: &username}); err == nil {
		return errprocess.Wrap(errprocess.ErrInvalidOperation, "username already exists")
	}

	pw, err := encrypt.HashPassword(password)
	if err != nil {
		return err
	}

	account := domain.Account{
		UserID:   uuid.New().String(),
		Username: username,
		Email:    email,
		Phone:    phone,
		Password: pw,
	}

	if err := a.accountRepo.CreateAccount(ctx, &account); err != nil {
		return err
	}

	logger.Log.Info("account registered", zap.String("user_id", account.UserID), zap.String("username", username))
	return nil
}

// Login verify credentials and issue a JWT
func (a *accountUseCase) Login(ctx context.Context, email, password string) (string, error) {
	account, err := a.accountRepo.FindByAccount(ctx, &domain.AccountQuery{Email: &email})
	if err != nil {
		return "", errprocess.Wrap(errprocess.ErrUnauthenticated, "user not found")
	}

	if err = account.IsPasswordMatch(password); err != nil {
		return "", errprocess.Wrap(errprocess.ErrUnauthenticated, "password mismatch")
	}

	return token.GenerateJWT(account.UserID, a.issuer)
}

// Resolve validates the opaque credential presented at connection time
// and yields the stable user id. Stateless and side-effect-free.
func (a *accountUseCase) Resolve(ctx context.Context, credential string) (string, error) {
	claims, err := token.ParseJWT(credential)
	if err != nil {
		return "", errprocess.Wrap(errprocess.ErrUnauthenticated, "invalid credential")
	}

	if _, err := a.accountRepo.FindByAccount(ctx, &domain.AccountQuery{UserID: &claims.UserID}); err != nil {
		return "", errprocess.Wrap(errprocess.ErrUnauthenticated, "unknown user")
	}

	return claims.UserID, nil
}

// FindAccount look up one account
func (a *accountUseCase) FindAccount(ctx context.Context, param *domain.AccountQuery) (*domain.Account, error) {
	return a.accountRepo.FindByAccount(ctx, param)
}

// Search find chat partners by username fragment
func (a *accountUseCase) Search(ctx context.Context, q string) ([]domain.Account, error) {
	return a.accountRepo.SearchByUsername(ctx, q, 20)
}

// SetOnline first session for the user appeared
func (a *accountUseCase) SetOnline(ctx context.Context, userID string) error {
	if err := a.accountRepo.UpdatePresence(ctx, userID, true, nil); err != nil {
		return err
	}
	rec := domain.PresenceRecord{UserID: userID, IsOnline: true}
	if err := a.presenceRepo.Set(ctx, presenceKeyPrefix+userID, rec, a.presenceTTL); err != nil {
		logger.Log.Warn("presence cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// SetOffline last session for the user closed; lastSeen is stamped
func (a *accountUseCase) SetOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	if err := a.accountRepo.UpdatePresence(ctx, userID, false, &lastSeen); err != nil {
		return err
	}
	rec := domain.PresenceRecord{UserID: userID, IsOnline: false, LastSeenAt: &lastSeen}
	if err := a.presenceRepo.Set(ctx, presenceKeyPrefix+userID, rec, a.presenceTTL); err != nil {
		logger.Log.Warn("presence cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// Presence read the cached presence snapshot, falling back to the
// accounts table when the cache entry expired.
func (a *accountUseCase) Presence(ctx context.Context, userID string) (domain.PresenceRecord, error) {
	rec, err := a.presenceRepo.Get(ctx, presenceKeyPrefix+userID)
	if err == nil {
		return rec, nil
	}

	account, err := a.accountRepo.FindByAccount(ctx, &domain.AccountQuery{UserID: &userID})
	if err != nil {
		if errors.Is(err, errprocess.ErrNotFound) {
			return domain.PresenceRecord{}, err
		}
		return domain.PresenceRecord{}, err
	}
	return domain.PresenceRecord{
		UserID:     account.UserID,
		IsOnline:   account.IsOnline,
		LastSeenAt: account.LastSeenAt,
	}, nil
}
