package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/voltmesh/voltmesh/internal/adapter/cache"
	extpayment "github.com/voltmesh/voltmesh/internal/adapter/external/payment"
	"github.com/voltmesh/voltmesh/internal/adapter/http/fiber/handlers"
	"github.com/voltmesh/voltmesh/internal/adapter/http/fiber/middleware"
	"github.com/voltmesh/voltmesh/internal/adapter/queue"
	"github.com/voltmesh/voltmesh/internal/adapter/storage/postgres"
	"github.com/voltmesh/voltmesh/internal/adapter/vault"
	wsAdapter "github.com/voltmesh/voltmesh/internal/adapter/websocket"
	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/infrastructure/circuitbreaker"
	"github.com/voltmesh/voltmesh/internal/observability/telemetry"
	"github.com/voltmesh/voltmesh/internal/ports"
	"github.com/voltmesh/voltmesh/internal/service/auth"
	"github.com/voltmesh/voltmesh/internal/service/certificate"
	"github.com/voltmesh/voltmesh/internal/service/email"
	"github.com/voltmesh/voltmesh/internal/service/market"
	"github.com/voltmesh/voltmesh/internal/service/metering"
	"github.com/voltmesh/voltmesh/internal/service/payment"
	"github.com/voltmesh/voltmesh/internal/service/registry"
	"github.com/voltmesh/voltmesh/pkg/config"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	logger.Info("Starting VoltMesh",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// 3. Resolve Secrets from Vault (optional)
	if cfg.Vault.Enabled {
		resolveSecrets(cfg, logger)
	}

	// 4. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(cfg.OpenTelemetry.ServiceName, cfg.OpenTelemetry.Jaeger.Endpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 5. Initialize PostgreSQL (optional; without it every ledger runs on
	// in-memory state only)
	var (
		participantRepo ports.ParticipantRepository
		readingRepo     ports.ReadingRepository
		certificateRepo ports.CertificateRepository
		marketRepo      ports.MarketRepository
		walletRepo      ports.WalletRepository
		userRepo        ports.UserRepository
	)
	var dbPing func() error
	if cfg.Database.URL != "" {
		db, err := postgres.NewConnection(cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("Failed to get underlying SQL DB", zap.Error(err))
		}
		defer sqlDB.Close()
		dbPing = sqlDB.Ping

		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(db); err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
		}

		participantRepo = postgres.NewParticipantRepository(db, logger)
		readingRepo = postgres.NewReadingRepository(db, logger)
		certificateRepo = postgres.NewCertificateRepository(db, logger)
		marketRepo = postgres.NewMarketRepository(db, logger)
		walletRepo = postgres.NewWalletRepository(db, logger)
		userRepo = postgres.NewUserRepository(db, logger)
	} else {
		logger.Warn("No database configured, ledger state is in-memory only")
	}

	// 6. Initialize Cache (Redis with local fallback)
	var appCache ports.Cache
	var cachePing func() error
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, using local cache", zap.Error(err))
			appCache = cache.NewLocalCache(time.Minute, logger)
		} else {
			appCache = redisCache
			cachePing = redisCache.Ping
		}
	} else {
		appCache = cache.NewLocalCache(time.Minute, logger)
	}
	defer appCache.Close()

	// 7. Initialize Message Queue
	var messageQueue ports.MessageQueue
	if cfg.Queue.URL != "" {
		switch cfg.Queue.Provider {
		case "rabbitmq":
			messageQueue, err = queue.NewRabbitMQQueue(cfg.Queue.URL, logger)
		default:
			messageQueue, err = queue.NewNATSQueue(cfg.Queue.URL, logger)
		}
		if err != nil {
			logger.Fatal("Failed to connect to message queue",
				zap.String("provider", cfg.Queue.Provider), zap.Error(err))
		}
		defer messageQueue.Close()
	} else {
		logger.Warn("No message queue configured, events are not published")
	}

	// 8. Initialize Services (Business Logic Layer)
	registryService := registry.NewService(participantRepo, messageQueue, nil, logger)
	certificateService := certificate.NewService(certificateRepo, messageQueue, nil, logger, &certificate.Config{
		ThresholdKWh:   cfg.Certificates.ThresholdKWh,
		AllowedSources: cfg.Certificates.AllowedSources,
	})
	meteringService := metering.NewService(registryService, certificateService, readingRepo,
		messageQueue, nil, logger, cfg.Market.Owner)
	walletService := payment.NewWalletService(walletRepo, nil, logger)
	gateway := circuitbreaker.NewGateway(walletService, logger)
	marketService := market.NewService(certificateService, registryService, gateway,
		marketRepo, messageQueue, nil, logger, &market.Config{
			Owner:           cfg.Market.Owner,
			FeeRecipient:    cfg.Market.FeeRecipient,
			PlatformAccount: cfg.Market.PlatformAccount,
			FeeBps:          cfg.Market.FeeBps,
			MaxFeeBps:       cfg.Market.MaxFeeBps,
		})
	authService := auth.NewService(userRepo, appCache, nil, cfg.JWT.Secret, logger)

	emailService, err := email.NewService(&email.Config{
		Provider:       cfg.Notification.Email.Provider,
		FromEmail:      cfg.Notification.Email.From,
		FromName:       cfg.Notification.Email.FromName,
		SendGridAPIKey: cfg.Notification.Email.APIKey,
		SMTPHost:       cfg.Notification.Email.SMTPHost,
		SMTPPort:       cfg.Notification.Email.SMTPPort,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize email service", zap.Error(err))
	}

	// 9. Initialize Stripe Card Processor (optional; without it deposits
	// credit the wallet directly, for development)
	var cardProcessor ports.CardProcessor
	if cfg.Payment.Stripe.SecretKey != "" {
		cardProcessor = extpayment.NewStripeService(cfg.Payment.Stripe.SecretKey, logger)
	} else {
		logger.Warn("No Stripe key configured, deposits run in development mode")
	}

	// 10. Initialize WebSocket Hub and Market Feed
	wsHub := wsAdapter.NewHub()
	go wsHub.Run()
	if messageQueue != nil {
		feed := wsAdapter.NewMarketFeed(wsHub, messageQueue, logger)
		if err := feed.Start(); err != nil {
			logger.Error("Failed to start market feed", zap.Error(err))
		}
	}

	// 11. Start Notification Workers
	if messageQueue != nil && userRepo != nil {
		startNotificationWorkers(messageQueue, userRepo, emailService, logger)
	}

	// 12. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.NewCORS(cfg.CORS))
	app.Use(middleware.Metrics())
	app.Use(middleware.CircuitBreaker(logger))

	// Health Check Endpoints
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		if dbPing != nil {
			if err := dbPing(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).SendString("Database not ready")
			}
		}
		if cachePing != nil {
			if err := cachePing(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).SendString("Cache not ready")
			}
		}
		return c.SendString("Ready")
	})

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})
	}

	// API v1 Routes
	v1 := app.Group("/api/v1")

	// Auth routes (public)
	authHandler := handlers.NewAuthHandler(authService, logger)
	v1.Post("/auth/register", authHandler.Register)
	v1.Post("/auth/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("", middleware.AuthRequired(authService))
	protected.Get("/auth/me", authHandler.Me)

	// Registry routes
	registryHandler := handlers.NewRegistryHandler(registryService, logger)
	protected.Post("/registry/register", registryHandler.Register)
	protected.Get("/registry/me", registryHandler.MyRegion)
	protected.Get("/registry/regions", registryHandler.Regions)
	protected.Get("/registry/regions/:region/participants", registryHandler.RegionParticipants)

	// Metering routes
	meteringHandler := handlers.NewMeteringHandler(meteringService, logger)
	protected.Post("/metering/consumption", meteringHandler.LogConsumption)
	protected.Post("/metering/production", meteringHandler.LogProduction)
	protected.Post("/metering/verify", meteringHandler.Verify)
	protected.Get("/metering/readings/:identity", meteringHandler.Readings)
	protected.Get("/metering/stats/participants/:identity", meteringHandler.ParticipantStats)
	protected.Get("/metering/stats/regions/:region", meteringHandler.RegionStats)

	// Certificate routes
	certificateHandler := handlers.NewCertificateHandler(certificateService, logger)
	protected.Get("/certificates/mine", certificateHandler.Owned)
	protected.Get("/certificates/owner/:identity", certificateHandler.OwnedBy)
	protected.Get("/certificates/:id", certificateHandler.Get)
	protected.Post("/certificates/:id/transfer", certificateHandler.Transfer)
	protected.Post("/certificates/:id/redeem", certificateHandler.Redeem)

	// Market routes
	marketHandler := handlers.NewMarketHandler(marketService, logger)
	protected.Post("/market/offers", marketHandler.CreateOffer)
	protected.Get("/market/offers/mine", marketHandler.MyOffers)
	protected.Get("/market/offers/region/:region", marketHandler.OffersByRegion)
	protected.Get("/market/offers/:id", marketHandler.GetOffer)
	protected.Put("/market/offers/:id", marketHandler.UpdateOffer)
	protected.Delete("/market/offers/:id", marketHandler.CancelOffer)
	protected.Post("/market/offers/:id/accept", marketHandler.AcceptOffer)
	protected.Post("/market/trades", marketHandler.RecordTrade)
	protected.Get("/market/trades/mine", marketHandler.MyTrades)
	protected.Get("/market/trades/region/:region", marketHandler.TradesByRegion)
	protected.Get("/market/trades/:id", marketHandler.GetTrade)
	protected.Post("/market/trades/:id/complete", marketHandler.CompleteTrade)
	protected.Post("/market/trades/:id/cancel", marketHandler.CancelTrade)
	protected.Get("/market/metrics", marketHandler.Metrics)
	protected.Get("/market/metrics/:region", marketHandler.RegionMetrics)

	// Wallet routes
	walletHandler := handlers.NewWalletHandler(walletService, cardProcessor, logger)
	protected.Get("/wallet/balance", walletHandler.Balance)
	protected.Post("/wallet/deposit", walletHandler.Deposit)
	protected.Post("/wallet/transfer", walletHandler.Transfer)
	protected.Get("/wallet/transactions", walletHandler.Transactions)

	// Admin routes (platform owner operations; services re-check ownership
	// against the caller identity)
	adminHandler := handlers.NewAdminHandler(marketService, logger)
	admin := protected.Group("/admin", middleware.AdminRequired())
	admin.Post("/market/fee-rate", adminHandler.SetFeeRate)
	admin.Post("/market/fee-recipient", adminHandler.SetFeeRecipient)
	admin.Post("/market/withdraw", adminHandler.Withdraw)
	admin.Post("/metering/verifiers", meteringHandler.AddVerifier)
	admin.Delete("/metering/verifiers", meteringHandler.RemoveVerifier)

	// WebSocket market feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/market", websocket.New(func(c *websocket.Conn) {
		identity := c.Query("identity", "guest")
		wsHub.AddClient(c, identity)
	}))

	// 13. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 14. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

// resolveSecrets overrides config values with secrets from Vault. Missing
// secrets are logged and the configured value kept, so a partially populated
// Vault does not block startup.
func resolveSecrets(cfg *config.Config, logger *zap.Logger) {
	sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token)
	if err != nil {
		logger.Error("Failed to connect to Vault", zap.Error(err))
		return
	}

	if url, err := sm.GetDatabaseCredentials(); err == nil {
		cfg.Database.URL = url
	} else {
		logger.Warn("Database credentials not found in Vault", zap.Error(err))
	}
	if secret, err := sm.GetJWTSecret(); err == nil {
		cfg.JWT.Secret = secret
	} else {
		logger.Warn("JWT secret not found in Vault", zap.Error(err))
	}
	if key, err := sm.GetStripeAPIKey(); err == nil {
		cfg.Payment.Stripe.SecretKey = key
	} else {
		logger.Warn("Stripe API key not found in Vault", zap.Error(err))
	}
	if key, err := sm.GetSendGridAPIKey(); err == nil {
		cfg.Notification.Email.APIKey = key
	} else {
		logger.Warn("SendGrid API key not found in Vault", zap.Error(err))
	}
}

// startNotificationWorkers subscribes to ledger events and sends best-effort
// email notices to the accounts behind the affected identities. Identities
// without an API account are skipped silently.
func startNotificationWorkers(mq ports.MessageQueue, users ports.UserRepository,
	mailer ports.EmailService, logger *zap.Logger) {

	notify := func(identity string, send func(ctx context.Context, to string) error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		user, err := users.FindByIdentity(ctx, identity)
		if err != nil || user == nil {
			return
		}
		if err := send(ctx, user.Email); err != nil {
			logger.Warn("Failed to send notification",
				zap.String("identity", identity), zap.Error(err))
		}
	}

	mq.Subscribe("market.trade.accepted", func(data []byte) error {
		var event struct {
			TradeID    uint64 `json:"trade_id"`
			Seller     string `json:"seller"`
			Buyer      string `json:"buyer"`
			Energy     int64  `json:"energy"`
			TotalPrice int64  `json:"total_price"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			return err
		}
		trade := &domain.Trade{
			ID:           event.TradeID,
			Seller:       event.Seller,
			Buyer:        event.Buyer,
			EnergyAmount: event.Energy,
			TotalPrice:   event.TotalPrice,
		}
		for _, identity := range []string{event.Seller, event.Buyer} {
			notify(identity, func(ctx context.Context, to string) error {
				return mailer.SendSettlementNotice(ctx, to, trade)
			})
		}
		return nil
	})

	mq.Subscribe("certificate.minted", func(data []byte) error {
		var event struct {
			CertificateID uint64 `json:"certificate_id"`
			Owner         string `json:"owner"`
			Source        string `json:"source"`
			Location      string `json:"location"`
			EnergyKWh     int64  `json:"energy_kwh"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			return err
		}
		cert := &domain.Certificate{
			ID:           event.CertificateID,
			Owner:        event.Owner,
			EnergySource: event.Source,
			Location:     event.Location,
			EnergyAmount: event.EnergyKWh,
		}
		notify(event.Owner, func(ctx context.Context, to string) error {
			return mailer.SendCertificatesIssued(ctx, to, []*domain.Certificate{cert})
		})
		return nil
	})

	logger.Info("Notification workers started")
}
