package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"student-dashboard/internal/blob"
	"student-dashboard/internal/cv"
	"student-dashboard/internal/notifications"
	"student-dashboard/internal/pages"
	"student-dashboard/internal/session"
	"student-dashboard/internal/shared/auth"
	"student-dashboard/internal/shared/config"
	"student-dashboard/internal/shared/server"
	"student-dashboard/internal/shared/storage/db"
	"student-dashboard/internal/shared/storage/object"
	localstore "student-dashboard/internal/shared/storage/object/local"
	s3store "student-dashboard/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Store  object.ObjectStore
	Blobs  *blob.Registry

	NotificationsService *notifications.Service
	CVService            *cv.Service
	Pages                *pages.Registry
	Sessions             *session.Manager

	NotificationsHandler *notifications.Handler
	CVHandler            *cv.Handler
	PagesHandler         *pages.Handler
	SessionHandler       *session.Handler

	// Feed is nil unless AMQP_URL is set.
	Feed *notifications.Feed
}

// Build prepares dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	cfg = config.Normalize(cfg)

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Blobs:  blob.NewRegistry(store),
	}

	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}

	var ping func(ctx context.Context) error
	if app.DB != nil {
		ping = app.DB.PingContext
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:               cfg,
		Resolver:             app.Sessions,
		SessionHandler:       app.SessionHandler,
		NotificationsHandler: app.NotificationsHandler,
		CVHandler:            app.CVHandler,
		PagesHandler:         app.PagesHandler,
		Notifications:        app.NotificationsService,
		CV:                   app.CVService,
		Pages:                app.Pages,
		Ping:                 ping,
	})

	return app, nil
}

// Close releases connections held by the app.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("bootstrap: close redis: %v", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("bootstrap: close database: %v", err)
		}
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.DefaultServerOptions().Merge(PoolOptions(cfg.DB))
	sqlDB, err := db.ConnectRetry(ctx, cfg.DatabaseURL, opts, cfg.DB.ConnectAttempts, cfg.DB.ConnectBackoff)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// PoolOptions maps pool overrides from configuration onto db.Options.
func PoolOptions(p config.DBPool) db.Options {
	return db.Options{
		MaxOpenConns:    p.MaxOpenConns,
		MaxIdleConns:    p.MaxIdleConns,
		ConnMaxLifetime: p.ConnMaxLifetime,
		ConnMaxIdleTime: p.ConnMaxIdleTime,
		PingTimeout:     p.PingTimeout,
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			KMSKeyID:        cfg.SSEKMSKeyID,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildSessionStore(ctx context.Context, app *App) (session.Store, error) {
	cfg := app.Config
	if cfg.SessionStoreType != "redis" {
		return session.NewFileStore(cfg.SessionDir), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: redis unavailable; using file sessions: %v", err)
			return session.NewFileStore(cfg.SessionDir), nil
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	app.Redis = client
	return session.NewRedisStore(client, cfg.SessionTTL), nil
}

func buildServices(app *App) error {
	cfg := app.Config

	var (
		notificationRepo notifications.Repo
		cvRepo           cv.Repo
	)
	if app.DB != nil {
		notificationRepo = &notifications.PGRepo{DB: app.DB}
		cvRepo = &cv.PGRepo{DB: app.DB}
	} else {
		notificationRepo = notifications.NewMemoryRepo(cfg.MockLatency)
		cvRepo = cv.NewMemoryRepo(cfg.MockLatency)
	}

	app.NotificationsService = notifications.NewService(notificationRepo)
	app.CVService = cv.NewService(cvRepo, app.Store, app.Blobs, cv.Simulator{
		Chunks:     cv.DefaultChunks,
		ChunkDelay: cfg.UploadChunkDelay,
	}, cfg.UploadMode)

	var pageAPI pages.API = pages.NewMockAPI(cfg.MockLatency)
	if cfg.PagesAPI == "stub" {
		pageAPI = pages.StubAPI{}
	}
	app.Pages = pages.NewRegistry(pageAPI, cfg.ResourceTimeout)
	if cfg.StateIdleTTL > 0 {
		app.NotificationsService.IdleTTL = cfg.StateIdleTTL
		app.Pages.IdleTTL = cfg.StateIdleTTL
	}

	sessions, err := buildSessionStore(context.Background(), app)
	if err != nil {
		return err
	}
	app.Sessions = session.NewManager(sessions, auth.NewSigner(cfg.JWTSecret, cfg.SessionTTL))

	app.NotificationsHandler = notifications.NewHandler(app.NotificationsService)
	app.CVHandler = cv.NewHandler(app.CVService)
	app.PagesHandler = pages.NewHandler(app.Pages)
	app.SessionHandler = session.NewHandler(app.Sessions, func(userID string) {
		app.NotificationsService.Forget(userID)
		app.Pages.Forget(userID)
	})

	if strings.TrimSpace(cfg.AMQPURL) != "" {
		app.Feed = &notifications.Feed{
			Svc:   app.NotificationsService,
			URL:   cfg.AMQPURL,
			Queue: cfg.NotificationsQueue,
		}
	}

	if app.NotificationsHandler == nil || app.CVHandler == nil || app.PagesHandler == nil || app.SessionHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
