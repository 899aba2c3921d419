package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/talentbook/internal/modules/notification/application"
	"github.com/saransh1220/talentbook/internal/modules/notification/domain"
	"github.com/saransh1220/talentbook/internal/modules/notification/infrastructure/cache"
	"github.com/saransh1220/talentbook/internal/modules/notification/infrastructure/kafka"
	"github.com/saransh1220/talentbook/internal/modules/notification/infrastructure/persistence/postgres"
	"github.com/saransh1220/talentbook/internal/modules/notification/infrastructure/persistence/sqlite"
	"github.com/saransh1220/talentbook/internal/modules/notification/infrastructure/websocket"
	notification_http "github.com/saransh1220/talentbook/internal/modules/notification/interfaces/http"
	"github.com/saransh1220/talentbook/internal/shared/logging"
	"golang.org/x/sync/errgroup"
)

// Config wires the module. DB must match Driver. Redis and Kafka are optional.
type Config struct {
	Driver            string
	DB                *sqlx.DB
	BatchMode         application.BatchMode
	RetentionEnabled  bool
	RetentionDays     int
	RetentionInterval time.Duration
	Redis             redis.Cmdable
	UnreadCacheTTL    time.Duration
	Kafka             *kafka.ConsumerConfig
}

type Module struct {
	service   *application.NotificationService
	triggers  *application.BestEffort
	handler   *notification_http.NotificationHandler
	hub       *websocket.Hub
	retention *application.RetentionRunner
	consumer  *kafka.Consumer
	log       logging.Logger
}

func NewModule(ctx context.Context, cfg Config, log logging.Logger) (*Module, error) {
	log = logging.OrDefault(log)

	repo, err := newRepository(ctx, cfg.Driver, cfg.DB)
	if err != nil {
		return nil, err
	}

	batchMode := cfg.BatchMode
	if batchMode == "" {
		batchMode = application.BatchAtomic
	}
	if !batchMode.Valid() {
		return nil, fmt.Errorf("unknown batch mode %q", batchMode)
	}

	hub := websocket.NewHub(log)
	go hub.Run()

	opts := []application.Option{application.WithBatchMode(batchMode)}
	if cfg.Redis != nil {
		opts = append(opts, application.WithUnreadCache(cache.NewRedisUnreadCache(cfg.Redis, cfg.UnreadCacheTTL, log)))
	}
	service := application.NewNotificationService(repo, hub, log, opts...)
	triggers := application.NewTriggers(service)

	m := &Module{
		service:  service,
		triggers: application.NewBestEffort(triggers, log),
		handler:  notification_http.NewNotificationHandler(service, triggers, hub, log),
		hub:      hub,
		log:      log.With("component", "notification.module"),
	}
	if cfg.RetentionEnabled {
		m.retention = application.NewRetentionRunner(service, cfg.RetentionDays, cfg.RetentionInterval, log)
	}
	if cfg.Kafka != nil {
		m.consumer = kafka.NewConsumer(*cfg.Kafka, log)
	}
	return m, nil
}

func newRepository(ctx context.Context, driver string, db *sqlx.DB) (domain.NotificationRepository, error) {
	if db == nil {
		return nil, errors.New("notification module requires a database")
	}
	switch driver {
	case "", "postgres":
		return postgres.NewPgNotificationRepository(db), nil
	case "sqlite":
		return sqlite.NewNotificationRepository(ctx, db)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// Run drives the background workers until ctx is done.
func (m *Module) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if m.retention != nil {
		g.Go(func() error { return ignoreCanceled(m.retention.Run(ctx)) })
	}
	if m.consumer != nil {
		dispatcher := kafka.NewDispatcher(m.triggers, m.service)
		g.Go(func() error { return ignoreCanceled(m.consumer.Consume(ctx, dispatcher.Handle)) })
	}
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown closes every websocket and the event stream reader.
func (m *Module) Shutdown() {
	m.hub.Stop()
	if m.consumer != nil {
		if err := m.consumer.Close(); err != nil {
			m.log.Warn("failed to close event consumer", "error", err)
		}
	}
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

func (m *Module) Service() *application.NotificationService {
	return m.service
}

// Triggers is the entry point for booking, contract and talent workflows that
// raise notifications in-process.
func (m *Module) Triggers() *application.BestEffort {
	return m.triggers
}
