package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/termchat/termchat/internal/application/pairing"
	appRooms "github.com/termchat/termchat/internal/application/rooms"
	appSessions "github.com/termchat/termchat/internal/application/sessions"
	"github.com/termchat/termchat/internal/application/sweeper"
	"github.com/termchat/termchat/internal/domain"
	"github.com/termchat/termchat/internal/infrastructure/configs"
	"github.com/termchat/termchat/internal/infrastructure/events"
	"github.com/termchat/termchat/internal/infrastructure/logging"
	"github.com/termchat/termchat/internal/infrastructure/messaging"
	"github.com/termchat/termchat/internal/infrastructure/ratelimiter"
	memrepo "github.com/termchat/termchat/internal/infrastructure/repository"
	"github.com/termchat/termchat/internal/infrastructure/tracing"
	"github.com/termchat/termchat/internal/infrastructure/ws"
	"github.com/termchat/termchat/internal/persistence/db"
	mongorepo "github.com/termchat/termchat/internal/persistence/repository"
	"github.com/termchat/termchat/internal/presentation/api"
	"github.com/termchat/termchat/internal/presentation/handler/health"
	roomsHandler "github.com/termchat/termchat/internal/presentation/handler/rooms"
	sessionsHandler "github.com/termchat/termchat/internal/presentation/handler/sessions"
)

const (
	serviceName = "termchat-api"

	inMemoryMessageCapacity = 500
)

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logging.FilePath,
		Encoding: cfg.Logging.Encoding,
		Level:    cfg.Logging.Level,
		Logger:   cfg.Logging.Logger,
	})

	var (
		sessionRepository domain.SessionRepository
		roomRepository    domain.RoomRepository
		messageRepository domain.MessageRepository
		auditRepository   domain.PairingAuditRepository
	)

	switch cfg.Store.Driver {
	case "mongo":
		mongoCfg := &db.MongoConfig{
			URI:               cfg.Store.Mongo.URI,
			Database:          cfg.Store.Mongo.Database,
			ConnectionTimeout: cfg.Store.Mongo.ConnectionTimeout,
		}

		client, err := db.NewMongoClient(ctx, mongoCfg)
		if err != nil {
			log.Fatal(err)
		}
		defer db.DisconnectMongo(ctx, client)

		database := db.GetDatabase(client, mongoCfg)
		if err := mongorepo.EnsureIndexes(ctx, database); err != nil {
			log.Fatal(err)
		}

		sessionRepository = mongorepo.NewSessionRepository(database)
		roomRepository = mongorepo.NewRoomRepository(database)
		messageRepository = mongorepo.NewMessageRepository(database)
		auditRepository = mongorepo.NewPairingAuditLogRepository(database)
	case "memory":
		sessionRepository = memrepo.NewSessionRepository()
		roomRepository = memrepo.NewRoomRepository()
		messageRepository = memrepo.NewMessageRepository(inMemoryMessageCapacity)
		auditRepository = memrepo.NewAuditRepository()
	default:
		log.Fatalf("unknown store driver: %q", cfg.Store.Driver)
	}

	var (
		sessionPublisher appSessions.Publisher
		pairingPublisher pairing.Publisher
		sweepPublisher   sweeper.Publisher
	)

	if cfg.AMQP.Enabled {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.AMQP.URI)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitmq.Close()

		log.Println("Starting RabbitMQ connection")

		publisher := events.NewPairingPublisher(rabbitmq)
		sessionPublisher = publisher
		pairingPublisher = publisher
		sweepPublisher = publisher

		if err := auditRepository.EnsureIndexes(ctx); err != nil {
			log.Fatal(err)
		}

		auditConsumer := events.NewAuditConsumer(rabbitmq, auditRepository, logger)
		go auditConsumer.Listen()
	}

	sessionRegistry := appSessions.NewRegistry(sessionRepository, sessionPublisher, logger)
	roomRegistry := appRooms.NewRegistry(roomRepository, messageRepository)
	coordinator := pairing.NewCoordinator(sessionRepository, roomRepository, messageRepository, pairingPublisher, logger)

	gateway := ws.NewGateway(roomRepository, messageRepository, logger)
	go gateway.Run(ctx)

	sw := sweeper.New(sessionRepository, roomRepository, sweepPublisher, logger, cfg.Sweeper.Interval)
	go sw.Run(ctx)

	var limiterCache ratelimiter.GetterSetter
	if cfg.RateLimiter.RedisAddr != "" {
		limiterCache = ratelimiter.NewRedis(cfg.RateLimiter.RedisAddr)
	}

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		Cache:            limiterCache,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	sessHandler := sessionsHandler.NewHandler(sessionRegistry)
	rmHandler := roomsHandler.NewHandler(roomRegistry, coordinator, gateway, cfg.Relay.SendBuffer, logger)
	healthHandler := health.NewHandler()

	app := api.NewApplication(*cfg, sessHandler, rmHandler, healthHandler, logger, rl)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}
