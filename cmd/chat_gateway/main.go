package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	accountapp "realtime_chat_service/internal/account/app"
	accountdomain "realtime_chat_service/internal/account/domain"
	accountrepo "realtime_chat_service/internal/account/repository"
	accountrouter "realtime_chat_service/internal/account/router"
	chatapp "realtime_chat_service/internal/chat/app"
	chatdomain "realtime_chat_service/internal/chat/domain"
	chatrepo "realtime_chat_service/internal/chat/repository"
	chatrouter "realtime_chat_service/internal/chat/router"
	fileapp "realtime_chat_service/internal/file/app"
	filedomain "realtime_chat_service/internal/file/domain"
	filerepo "realtime_chat_service/internal/file/repository"
	filerouter "realtime_chat_service/internal/file/router"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/database"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

// userDirectory adapts the account use case to the narrow view the
// chat package needs.
type userDirectory struct {
	accounts accountapp.AccountUseCase
}

func (d *userDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := d.accounts.FindAccount(ctx, &accountdomain.AccountQuery{UserID: &userID})
	if err != nil {
		if errors.Is(err, errprocess.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *userDirectory) UsernameOf(ctx context.Context, userID string) (string, error) {
	account, err := d.accounts.FindAccount(ctx, &accountdomain.AccountQuery{UserID: &userID})
	if err != nil {
		return "", err
	}
	return account.Username, nil
}

// presenceReader serves presence snapshots for the chat list. A session
// on this instance answers immediately, everything else comes from the
// cache with the accounts table behind it.
type presenceReader struct {
	hub      *chatapp.Hub
	accounts accountapp.AccountUseCase
}

func (p *presenceReader) Presence(ctx context.Context, userID string) (bool, *time.Time, error) {
	if p.hub.IsOnline(userID) {
		return true, nil, nil
	}
	rec, err := p.accounts.Presence(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	return rec.IsOnline, rec.LastSeenAt, nil
}

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatGateway, config.EnvConfig.ChatGatewayLogPath)
	cfg := config.LoadConfig[config.Gateway](config.EnvConfig.ChatGateway, config.EnvConfig.ChatGatewayYAMLPath)

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		token.JWTSecret = []byte(secret)
	}

	ctx := context.Background()

	// accounts live in postgres through pgx
	pgConnStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password,
		cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pgPool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    pgConnStr,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("unable to connect to postgres after retries",
			zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
	}
	defer pgPool.Close()
	if err := accountrepo.EnsureSchema(ctx, pgPool); err != nil {
		logger.Log.Fatal("ensure accounts schema failed", zap.Error(err))
	}

	// chats, messages and uploads live in postgres through gorm
	gormDSN := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password,
		cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	gormDB, err := database.NewGormConnection(database.Connection{
		ConnectStr:    gormDSN,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("unable to connect to postgres (gorm) after retries", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&chatdomain.Chat{},
		&chatdomain.Participant{},
		&chatdomain.Message{},
		&filedomain.FileUpload{},
	); err != nil {
		logger.Log.Fatal("auto migrate failed", zap.Error(err))
	}

	// presence snapshots are cached in redis
	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis failed", zap.Error(err))
	}
	presenceCache := database.NewRedisRepository[accountdomain.PresenceRecord](redisClient)

	// completed uploads land in minio
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.BucketName,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("connect minio failed", zap.Error(err))
	}

	accountRepository := accountrepo.NewAccountRepository(pgPool)
	chatRepository := chatrepo.NewChatRepository(gormDB)
	messageRepository := chatrepo.NewMessageRepository(gormDB)
	fileRepository := filerepo.NewFileRepository(gormDB)

	accountUC := accountapp.NewAccountUseCase(accountRepository, presenceCache, cfg.SessionTTL, config.EnvConfig.ChatGateway)
	directory := &userDirectory{accounts: accountUC}

	hub := chatapp.NewHub()
	eventRouter := chatapp.NewEventRouter(hub, chatRepository)

	chatUC := chatapp.NewChatUseCase(chatRepository, messageRepository, eventRouter,
		&presenceReader{hub: hub, accounts: accountUC}, directory)
	messageUC := chatapp.NewMessageUseCase(chatRepository, messageRepository, eventRouter)
	uploadUC := fileapp.NewUploadUseCase(fileRepository, minioClient, cfg.UploadDir)

	wsGateway := chatapp.NewWSGateway(hub, chatRepository, messageUC, eventRouter, accountUC, accountUC)

	r := fiber.New()
	accessLog, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatGatewayLogPath),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer accessLog.Close()
	r.Use(fiber_log.New(fiber_log.Config{
		Output: accessLog,
	}))

	accountrouter.RegisterRoutes(r, accountapp.NewAccountHTTPHandler(accountUC))
	chatrouter.RegisterRoutes(r, chatapp.NewChatHTTPHandler(chatUC, messageUC), wsGateway)
	filerouter.RegisterRoutes(r, fileapp.NewFileHTTPHandler(uploadUC))

	port := ":" + cfg.Port
	log.Printf("Chat Gateway listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
