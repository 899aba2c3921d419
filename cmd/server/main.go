package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/talentbook/internal/gateway"
	"github.com/saransh1220/talentbook/internal/gateway/middleware"
	"github.com/saransh1220/talentbook/internal/modules/media"
	media_http "github.com/saransh1220/talentbook/internal/modules/media/interfaces/http"
	"github.com/saransh1220/talentbook/internal/modules/notification"
	"github.com/saransh1220/talentbook/internal/modules/notification/application"
	"github.com/saransh1220/talentbook/internal/modules/notification/infrastructure/kafka"
	"github.com/saransh1220/talentbook/internal/shared/infrastructure/config"
	"github.com/saransh1220/talentbook/internal/shared/infrastructure/database"
	"github.com/saransh1220/talentbook/internal/shared/logging"
	"github.com/saransh1220/talentbook/pkg/migration"
	"golang.org/x/sync/errgroup"
)

const serviceName = "talentbook"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		Service: serviceName,
		Env:     cfg.Log.Env,
		Version: cfg.Log.Version,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	logging.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// run serves until ctx is cancelled or a background worker fails.
func run(ctx context.Context, cfg config.Config, log logging.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	server := gateway.NewServer(gateway.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, a.handler, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(ctx) })
	g.Go(func() error { return a.notifications.Run(ctx) })
	return g.Wait()
}

type app struct {
	db            *sqlx.DB
	redis         *redis.Client
	notifications *notification.Module
	media         *media.Module
	handler       http.Handler
	log           logging.Logger
}

func newApp(ctx context.Context, cfg config.Config, log logging.Logger) (_ *app, err error) {
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.db, err = openStore(ctx, cfg, log); err != nil {
		return nil, err
	}

	var cache redis.Cmdable
	if cfg.Redis.Enabled {
		if a.redis, err = database.NewRedis(ctx, cfg.Redis); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cache = a.redis
		log.Info("redis connected", "addr", cfg.Redis.Addr())
	}

	var consumer *kafka.ConsumerConfig
	if cfg.Kafka.Enabled {
		consumer = &kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			GroupID:       cfg.Kafka.GroupID,
			Topic:         cfg.Kafka.Topic,
			FromBeginning: cfg.Kafka.FromBeginning,
		}
	}

	a.notifications, err = notification.NewModule(ctx, notification.Config{
		Driver:            cfg.Store.Driver,
		DB:                a.db,
		BatchMode:         application.BatchMode(cfg.Notifications.BatchMode),
		RetentionEnabled:  cfg.Notifications.RetentionEnabled,
		RetentionDays:     cfg.Notifications.RetentionDays,
		RetentionInterval: cfg.Notifications.RetentionInterval,
		Redis:             cache,
		UnreadCacheTTL:    cfg.Notifications.UnreadCacheTTL,
		Kafka:             consumer,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}

	var mediaHandler *media_http.MediaHandler
	if cfg.Media.Enabled {
		if a.media, err = media.NewModule(ctx, cfg.Media, log); err != nil {
			return nil, fmt.Errorf("failed to initialize media: %w", err)
		}
		mediaHandler = a.media.HTTPHandler()
		log.Info("media uploads enabled", "bucket", cfg.Media.Bucket)
	}

	a.handler = gateway.SetupRoutes(gateway.RouterConfig{
		AuthMiddleware:      middleware.NewAuthMiddleware(cfg.JWT.Secret),
		NotificationHandler: a.notifications.HTTPHandler(),
		MediaHandler:        mediaHandler,
		Health:              a.health,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
	})
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config, log logging.Logger) (*sqlx.DB, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info("sqlite store opened", "path", cfg.Store.SQLitePath)
		return db, nil
	default:
		if cfg.Migrations.Auto {
			if err := migration.AutoMigrate(cfg.Database.DSN(), cfg.Migrations.Path, log); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		db, err := database.NewPostgresDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("database connected", "host", cfg.Database.Host, "name", cfg.Database.DBName)
		return db, nil
	}
}

func (a *app) health(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) close() {
	if a.notifications != nil {
		a.notifications.Shutdown()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("failed to close connections", "error", err)
	}
}
