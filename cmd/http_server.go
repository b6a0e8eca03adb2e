package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/emmanuelnurit/cawl-gateway/internal"
	"github.com/emmanuelnurit/cawl-gateway/internal/catalog"
	"github.com/emmanuelnurit/cawl-gateway/internal/core/events"
	"github.com/emmanuelnurit/cawl-gateway/internal/gateway"
	"github.com/emmanuelnurit/cawl-gateway/internal/order"
	orderPostgres "github.com/emmanuelnurit/cawl-gateway/internal/order/postgres"
	"github.com/emmanuelnurit/cawl-gateway/internal/payment"
	paymentPostgres "github.com/emmanuelnurit/cawl-gateway/internal/payment/postgres"
	"github.com/emmanuelnurit/cawl-gateway/internal/transport"
	"github.com/emmanuelnurit/cawl-gateway/internal/transport/rest"
	"github.com/emmanuelnurit/cawl-gateway/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle checkout, webhook and admin requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	GormDB         *gorm.DB
	Router         *chi.Mux
	PaymentHandler *payment.Handler
	WebhookHandler *payment.WebhookHandler
	AdminHandler   *payment.AdminHandler
	CatalogHandler *catalog.Handler
	Logger         *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, rest.RouterConfig{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AdminToken:     deps.Config.Server.AdminToken,
	}, deps.PaymentHandler, deps.WebhookHandler, deps.AdminHandler, deps.CatalogHandler, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Gateway.Environment, config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	eventBus := events.NewEventBus(log)
	registerAuditSubscribers(eventBus, log)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:    config.Gateway.APIURL(),
		MerchantID: config.Gateway.MerchantID,
		APIKey:     config.Gateway.APIKey,
		APISecret:  config.Gateway.APISecret,
		Timeout:    config.Gateway.RequestTimeout,
	}, log)

	transactionRepo := paymentPostgres.NewTransactionRepository(gormDB)
	orderRepo := orderPostgres.NewOrderRepository(gormDB)
	orderService := order.NewService(orderRepo, eventBus, log)

	verifier := payment.NewSignatureVerifier(
		config.Gateway.WebhookSecret,
		config.Gateway.IsProduction(),
		log,
	)

	paymentService := payment.NewPaymentService(
		gatewayClient,
		transactionRepo,
		orderService,
		verifier,
		eventBus,
		payment.ServiceConfig{
			ReturnURL: config.Server.BaseURL + "/api/v1/payment/return",
			Locale:    config.Gateway.Locale,
		},
		log,
	)

	catalogService := catalog.NewService(gatewayClient, initCatalogCache(config.Catalog, log), config.Catalog.CacheTTL, log)

	baseHandler := transport.NewBaseHandler(log)

	return &Dependencies{
		Config:         config,
		Logger:         log,
		DB:             db,
		GormDB:         gormDB,
		Router:         chi.NewRouter(),
		PaymentHandler: payment.NewHandler(baseHandler, paymentService, config.Server.StorefrontURL, log),
		WebhookHandler: payment.NewWebhookHandler(baseHandler, paymentService, log),
		AdminHandler:   payment.NewAdminHandler(baseHandler, paymentService, gatewayClient, config.Gateway, log),
		CatalogHandler: catalog.NewHandler(baseHandler, catalogService, log),
	}, nil
}

// initCatalogCache picks Redis when an address is configured, falling back
// to the in-process cache.
func initCatalogCache(cfg internal.CatalogConfig, log *slog.Logger) catalog.Cache {
	if cfg.RedisAddr == "" {
		return catalog.NewMemoryCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	log.Info("catalogue cache backed by redis", "addr", cfg.RedisAddr)
	return catalog.NewRedisCache(client)
}

// registerAuditSubscribers logs payment lifecycle events. The bus keeps the
// reconciler decoupled from whatever downstream consumers get added later.
func registerAuditSubscribers(eventBus *events.EventBus, log *slog.Logger) {
	eventBus.Subscribe(events.EventTypePaymentCaptured, func(ctx context.Context, event events.Event) error {
		log.Info("payment captured",
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	})

	eventBus.Subscribe(events.EventTypePaymentFailed, func(ctx context.Context, event events.Event) error {
		log.Warn("payment failed",
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	})

	eventBus.Subscribe(events.EventTypeOrderPaid, func(ctx context.Context, event events.Event) error {
		log.Info("order paid",
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	})
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
