package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appsvc "tasktracker/internal/app"
	"tasktracker/internal/cache"
	"tasktracker/internal/config"
	"tasktracker/internal/logger"
	"tasktracker/internal/pkg/jwtutil"
	"tasktracker/internal/pkg/passwd"
	"tasktracker/internal/platform/database"
	rabbitmqClient "tasktracker/internal/platform/rabbitmq"
	redisClient "tasktracker/internal/platform/redis"
	"tasktracker/internal/repository"
	"tasktracker/internal/storage"
	"tasktracker/internal/worker"
)

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	EventWorker *worker.AccountEventWorker

	Tokens      *jwtutil.Service
	Hasher      *passwd.Hasher
	Revocations cache.RevocationList
	Avatars     *storage.AvatarStore
	Publisher   appsvc.AccountEventPublisher

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg, logger.Init(cfg.Log.Level, cfg.Log.JSON))
}

// NewWithConfig wires every dependency from cfg. Redis and RabbitMQ are
// optional: an empty address disables them.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{
		Config:    cfg,
		Logger:    log,
		Hasher:    passwd.NewHasher(cfg.Auth.BcryptCost),
		StartedAt: time.Now(),
	}

	tokens, err := jwtutil.NewService(jwtutil.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
		TTL:    cfg.TokenTTL(),
	})
	if err != nil {
		return nil, err
	}
	a.Tokens = tokens

	avatars, err := storage.NewAvatarStore(cfg.Upload.Dir, cfg.Upload.MaxAvatarBytes)
	if err != nil {
		return nil, err
	}
	a.Avatars = avatars

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		_ = a.Close()
		return nil, err
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if redisCli != nil {
		a.Redis = redisCli
		a.Revocations = cache.NewRedisRevocationList(redisCli)
	} else {
		log.Warn("redis disabled, token revocations are kept in memory")
		a.Revocations = cache.NewMemoryRevocationList()
	}

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if mqConn != nil {
		a.MQConn = mqConn
		a.Publisher = rabbitmqClient.NewEventPublisher(mqConn, cfg.RabbitMQ.AccountEventQueue)

		eventRepo := repository.NewAccountEventRepository(db)
		a.EventWorker = worker.NewAccountEventWorker(mqConn, eventRepo, cfg.RabbitMQ.AccountEventQueue, log)
		if err := a.EventWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start account event worker failed: %w", err)
		}
	} else {
		log.Warn("rabbitmq disabled, account events are not recorded")
	}

	return a, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
