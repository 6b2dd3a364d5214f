package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	hostelsapp "hlopg/internal/app/handlers/hostels"
	"hlopg/internal/app/middleware"
	"hlopg/internal/app/outbox"
	appschedule "hlopg/internal/app/schedule"
	authsvc "hlopg/internal/app/services/auth"
	"hlopg/internal/app/services/notifications"
	"hlopg/internal/app/uow"
	"hlopg/internal/app/wiring"
	domainhostels "hlopg/internal/domain/hostels"
	domainpopup "hlopg/internal/domain/popup"
	domainuser "hlopg/internal/domain/user"
	"hlopg/internal/infra/broker/kafka"
	"hlopg/internal/infra/config"
	mongostore "hlopg/internal/infra/db/mongo"
	"hlopg/internal/infra/fixtures"
	ginserver "hlopg/internal/infra/http/gin"
	"hlopg/internal/infra/inbox"
	"hlopg/internal/infra/obs"
	outboxstore "hlopg/internal/infra/outbox"
	"hlopg/internal/infra/schedule"
	"hlopg/internal/infra/security"
	"hlopg/internal/infra/storage/memory"
	"hlopg/internal/infra/storage/redisstore"
	"hlopg/internal/infra/validation"
)

const (
	notificationsGroup = "hlopg-notifications"
	inboxRetention     = 7 * 24 * time.Hour
	outboxRetention    = 3 * 24 * time.Hour
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	summary, err := fixtures.Load(ctx, cfg.HostelFixtures, app.fixtureRepos, time.Now(), logger)
	if err != nil {
		logger.Warn("hostel fixtures load failed", "error", err, "path", cfg.HostelFixtures)
	} else if summary.Hostels > 0 {
		logger.Info("hostel fixtures imported", "hostels", summary.Hostels, "reviews", summary.Reviews, "food_menus", summary.FoodMenus, "skipped", summary.Skipped)
	}

	app.cron.Start(ctx)
	app.startBackground(ctx, cfg, logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: app.metrics, Quiet: []string{"/livez", "/readyz", "/metrics"}}, app.health, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	health       obs.HealthHandlers
	metrics      *obs.Metrics
	cron         *schedule.Cron
	fixtureRepos fixtures.Repositories

	mongo       *mongostore.Client
	outboxStore *outboxstore.Store
	users       domainuser.Repository
	hostels     domainhostels.Repository
	closers     []func() error
}

type storage struct {
	factory     uow.UoWFactory
	repos       fixtures.Repositories
	users       domainuser.Repository
	idempotency middleware.IdempotencyStore
	outbox      outbox.Outbox
	purgers     map[string]appschedule.Purger
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	clock := time.Now
	metrics := obs.NewMetrics()
	validator := validation.New()
	app := &application{
		metrics: metrics,
		health:  obs.HealthHandlers{Probes: map[string]obs.Probe{}},
		cron:    schedule.New(schedule.Params{Logger: logger, Clock: clock, Location: cfg.Location}),
	}

	store, err := app.openStorage(ctx, cfg, logger, clock)
	if err != nil {
		return nil, err
	}
	app.fixtureRepos = store.repos
	app.users = store.users

	var drafts domainpopup.DraftStore
	var cityCache hostelsapp.CityCache
	if cfg.RedisAddr != "" {
		client := redisstore.NewClient(redisstore.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		app.closers = append(app.closers, client.Close)
		app.health.Probes["redis"] = redisstore.Probe(client)
		drafts = redisstore.NewDraftStore(client, clock)
		cityCache = redisstore.NewCityCache(client, cfg.CatalogCacheTTL)
	} else {
		memDrafts := memory.NewDraftStore(clock)
		store.purgers["drafts"] = memDrafts
		drafts = memDrafts
	}

	buses := wiring.NewBuses(wiring.Params{
		UoWFactory:  store.factory,
		Drafts:      drafts,
		DraftTTL:    cfg.DraftTTL,
		Location:    cfg.Location,
		Clock:       clock,
		Outbox:      store.outbox,
		Idempotency: store.idempotency,
		CityCache:   cityCache,
		Validator:   validator,
		Commands:    metrics,
		Popup:       metrics,
		Logger:      logger,
	})

	sessions := memory.NewSessionStore(clock)
	challenges := memory.NewChallengeStore()
	resends := security.NewKeyLimiter(cfg.OTPResendInterval, 1, clock)
	authLimiter := security.NewKeyLimiter(time.Second, 10, clock)
	store.purgers["sessions"] = sessions
	store.purgers["otp_challenges"] = challenges
	store.purgers["otp_resends"] = resends
	store.purgers["auth_limiter"] = authLimiter

	authService := &authsvc.Service{
		Users:      store.users,
		Sessions:   sessions,
		Challenges: challenges,
		Passwords:  security.BcryptHasher{Cost: bcrypt.DefaultCost},
		Tokens:     security.RandomTokenGenerator{},
		Codes:      security.DigitCodeGenerator{},
		Notifier:   security.LogNotifier{Logger: logger},
		Resends:    resends,
		Validator:  validator,
		SessionTTL: cfg.SessionTTL,
		OTPTTL:     cfg.OTPTTL,
		Clock:      clock,
		Logger:     logger,
	}

	for name, purger := range store.purgers {
		job := appschedule.PurgeJob(purger, func(removed int) {
			if removed > 0 {
				logger.Debug("expired entries purged", "store", name, "removed", removed)
			}
		})
		if err := app.cron.Schedule(cfg.PurgeSchedule, "purge_"+name, job); err != nil {
			return nil, err
		}
	}
	if app.outboxStore != nil {
		purgeOutbox := func(ctx context.Context, now time.Time) error {
			removed, err := app.outboxStore.PurgeSent(ctx, now.Add(-outboxRetention))
			if removed > 0 {
				logger.Debug("delivered outbox records purged", "removed", removed)
			}
			return err
		}
		if err := app.cron.Schedule(cfg.PurgeSchedule, "purge_outbox", purgeOutbox); err != nil {
			return nil, err
		}
	}

	app.handlers = ginserver.Handlers{
		Hostels:        ginserver.HostelsHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Drafts:         ginserver.DraftsHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
		Me:             ginserver.MeHandler{Commands: buses.Commands, Queries: buses.Queries, Accounts: authService, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
		AuthLimiter:    ginserver.RateLimit(authLimiter),
	}
	return app, nil
}

func (a *application) openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger, clock func() time.Time) (storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, fmt.Errorf("connect mongo: %w", err)
		}
		a.mongo = client
		a.health.Probes["mongo"] = client.Ping

		hostels := mongostore.NewHostelRepository(client.DB)
		reviews := mongostore.NewReviewRepository(client.DB)
		menus := mongostore.NewFoodMenuRepository(client.DB)
		a.outboxStore = outboxstore.NewStore(client.DB, clock)
		a.hostels = hostels
		return storage{
			factory: mongostore.Factory{
				DB:            client.DB,
				HostelsRepo:   hostels,
				BookingsRepo:  mongostore.NewBookingRepository(client.DB),
				ReviewsRepo:   reviews,
				FoodMenusRepo: menus,
			},
			repos:       fixtures.Repositories{Hostels: hostels, Reviews: reviews, FoodMenus: menus},
			users:       mongostore.NewUserRepository(client.DB),
			idempotency: mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
			outbox:      a.outboxStore,
			purgers:     map[string]appschedule.Purger{},
		}, nil
	default:
		hostels := memory.NewHostelRepository()
		reviews := memory.NewReviewRepository()
		menus := memory.NewFoodMenuRepository()
		idem := memory.NewIdempotencyStore(cfg.IdempotencyTTL, clock)
		a.hostels = hostels
		return storage{
			factory: memory.Factory{
				HostelsRepo:   hostels,
				BookingsRepo:  memory.NewBookingRepository(),
				ReviewsRepo:   reviews,
				FoodMenusRepo: menus,
			},
			repos:       fixtures.Repositories{Hostels: hostels, Reviews: reviews, FoodMenus: menus},
			users:       memory.NewUserRepository(),
			idempotency: idem,
			outbox:      memory.NewOutbox(logger),
			purgers:     map[string]appschedule.Purger{"idempotency": idem},
		}, nil
	}
}

// startBackground runs the outbox relay and the notification consumer when Kafka is configured.
func (a *application) startBackground(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	if len(cfg.KafkaBrokers) == 0 || a.outboxStore == nil {
		return
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("hlopg-outbox"))
	if err != nil {
		logger.Error("kafka producer unavailable, outbox relay disabled", "error", err)
		return
	}
	a.closers = append(a.closers, producer.Close)

	host, _ := os.Hostname()
	worker := &outboxstore.Worker{
		Store:       a.outboxStore,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "hlopg/api",
		ID:          fmt.Sprintf("%s-%d", host, os.Getpid()),
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
		Observer:    a.metrics,
	}
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	sink := &notifications.Service{
		Users:    a.users,
		Hostels:  a.hostels,
		Notifier: security.LogNotifier{Logger: logger},
		Inbox:    inbox.NewStore(a.mongo.DB, notificationsGroup, inboxRetention),
		Logger:   logger,
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, notificationsGroup, kafka.NewConfig(notificationsGroup), kafka.CloudEventHandler{Sink: sink}, logger)
	if err != nil {
		logger.Error("kafka consumer unavailable, notifications disabled", "error", err)
		return
	}
	a.closers = append(a.closers, consumer.Close)
	topics := []string{cfg.KafkaTopicPrefix + "booking.events.v1"}
	go func() {
		if err := consumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification consumer stopped", "error", err)
		}
	}()
}

func (a *application) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Close(ctx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}
