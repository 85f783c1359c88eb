package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"realtime_chat_service/internal/account/domain"
	"realtime_chat_service/pkg/encrypt"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	token "realtime_chat_service/pkg/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRegister_Success(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()

	repo := new(MockAccountRepository)
	cache := new(MockPresenceCache)

	repo.On("FindByAccount", ctx, mock.Anything).Return(nil, errprocess.ErrNotFound).Twice()
	repo.On("CreateAccount", ctx, mock.MatchedBy(func(a *domain.Account) bool {
		return a.Username == "alice" && a.Email == "alice@example.com" && a.Password != "Secret#pw1"
	})).Return(nil)

	uc := NewAccountUseCase(repo, cache, time.Minute, "chat_gateway")
	err := uc.Register(ctx, "alice", "alice@example.com", "", "Secret#pw1")

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()

	repo := new(MockAccountRepository)
	repo.On("FindByAccount", ctx, mock.Anything).Return(&domain.Account{}, nil)

	uc := NewAccountUseCase(repo, new(MockPresenceCache), time.Minute, "chat_gateway")
	err := uc.Register(ctx, "alice", "alice@example.com", "", "Secret#pw1")

	assert.ErrorIs(t, err, errprocess.ErrInvalidOperation)
	repo.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestLogin_IssuesResolvableToken(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	userID := uuid.New().String()

	hashed, err := encrypt.HashPassword("Secret#pw1")
	assert.NoError(t, err)

	repo := new(MockAccountRepository)
	repo.On("FindByAccount", ctx, mock.Anything).Return(&domain.Account{
		UserID:   userID,
		Email:    "alice@example.com",
		Password: hashed,
	}, nil)

	uc := NewAccountUseCase(repo, new(MockPresenceCache), time.Minute, "chat_gateway")
	credential, err := uc.Login(ctx, "alice@example.com", "Secret#pw1")
	assert.NoError(t, err)
	assert.NotEmpty(t, credential)

	// the issued credential resolves back to the same stable user id
	resolved, err := uc.Resolve(ctx, credential)
	assert.NoError(t, err)
	assert.Equal(t, userID, resolved)
}

func TestLogin_WrongPassword(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()

	hashed, err := encrypt.HashPassword("Right#pw1")
	assert.NoError(t, err)

	repo := new(MockAccountRepository)
	repo.On("FindByAccount", ctx, mock.Anything).Return(&domain.Account{
		UserID:   uuid.New().String(),
		Password: hashed,
	}, nil)

	uc := NewAccountUseCase(repo, new(MockPresenceCache), time.Minute, "chat_gateway")
	_, err = uc.Login(ctx, "alice@example.com", "wrong")

	assert.ErrorIs(t, err, errprocess.ErrUnauthenticated)
}

func TestResolve_RejectsGarbageCredential(t *testing.T) {
	logger.SetNewNop()
	uc := NewAccountUseCase(new(MockAccountRepository), new(MockPresenceCache), time.Minute, "chat_gateway")

	_, err := uc.Resolve(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, errprocess.ErrUnauthenticated)
}

func TestResolve_RejectsUnknownUser(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	userID := uuid.New().String()

	credential, err := token.GenerateJWT(userID, "chat_gateway")
	assert.NoError(t, err)

	repo := new(MockAccountRepository)
	repo.On("FindByAccount", ctx, mock.Anything).Return(nil, errprocess.ErrNotFound)

	uc := NewAccountUseCase(repo, new(MockPresenceCache), time.Minute, "chat_gateway")
	_, err = uc.Resolve(ctx, credential)

	assert.ErrorIs(t, err, errprocess.ErrUnauthenticated)
}

func TestSetOffline_StampsLastSeen(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	userID := uuid.New().String()
	lastSeen := time.Now().UTC()

	repo := new(MockAccountRepository)
	cache := new(MockPresenceCache)

	repo.On("UpdatePresence", ctx, userID, false, &lastSeen).Return(nil)
	cache.On("Set", ctx, presenceKeyPrefix+userID, mock.MatchedBy(func(rec domain.PresenceRecord) bool {
		return !rec.IsOnline && rec.LastSeenAt != nil && rec.LastSeenAt.Equal(lastSeen)
	}), time.Minute).Return(nil)

	uc := NewAccountUseCase(repo, cache, time.Minute, "chat_gateway")
	err := uc.SetOffline(ctx, userID, lastSeen)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestSetOnline_SurvivesCacheFailure(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	userID := uuid.New().String()

	repo := new(MockAccountRepository)
	cache := new(MockPresenceCache)

	repo.On("UpdatePresence", ctx, userID, true, (*time.Time)(nil)).Return(nil)
	cache.On("Set", ctx, presenceKeyPrefix+userID, mock.Anything, time.Minute).Return(errors.New("redis down"))

	uc := NewAccountUseCase(repo, cache, time.Minute, "chat_gateway")
	err := uc.SetOnline(ctx, userID)

	// cache failures degrade, they never fail the transition
	assert.NoError(t, err)
}

func TestPresence_FallsBackToDatabase(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	userID := uuid.New().String()
	lastSeen := time.Now().UTC()

	repo := new(MockAccountRepository)
	cache := new(MockPresenceCache)

	cache.On("Get", ctx, presenceKeyPrefix+userID).Return(domain.PresenceRecord{}, errors.New("redis.Nil"))
	repo.On("FindByAccount", ctx, mock.Anything).Return(&domain.Account{
		UserID:     userID,
		IsOnline:   false,
		LastSeenAt: &lastSeen,
	}, nil)

	uc := NewAccountUseCase(repo, cache, time.Minute, "chat_gateway")
	rec, err := uc.Presence(ctx, userID)

	assert.NoError(t, err)
	assert.False(t, rec.IsOnline)
	assert.Equal(t, &lastSeen, rec.LastSeenAt)
}
