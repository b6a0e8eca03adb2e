package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/emmanuelnurit/cawl-gateway/internal/core/events"
	"github.com/emmanuelnurit/cawl-gateway/internal/gateway"
	"github.com/emmanuelnurit/cawl-gateway/internal/order"
	orderPostgres "github.com/emmanuelnurit/cawl-gateway/internal/order/postgres"
	"github.com/emmanuelnurit/cawl-gateway/internal/payment"
	paymentPostgres "github.com/emmanuelnurit/cawl-gateway/internal/payment/postgres"
	"github.com/emmanuelnurit/cawl-gateway/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers for stale transaction reconciliation`,
}

// Reconciliation poller command
var reconcileWorkerCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Start the stale transaction reconciliation poller",
	Long:  `Sweep pending transactions whose webhook never arrived and reconcile them against the gateway`,
	Run: func(cmd *cobra.Command, args []string) {
		startReconcileWorker()
	},
}

var (
	pollIntervalFlag time.Duration
	staleAfterFlag   time.Duration
	maxWorkersFlag   int
)

func init() {
	reconcileWorkerCmd.Flags().DurationVar(&pollIntervalFlag, "interval", 0, "sweep interval (overrides config)")
	reconcileWorkerCmd.Flags().DurationVar(&staleAfterFlag, "stale-after", 0, "age before a pending transaction is swept (overrides config)")
	reconcileWorkerCmd.Flags().IntVar(&maxWorkersFlag, "workers", 0, "number of reconciliation workers (overrides config)")

	workerCmd.AddCommand(reconcileWorkerCmd)
}

func startReconcileWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Gateway.Environment, config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize gorm: %v\n", err)
		os.Exit(1)
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

	pollerConfig := payment.PollerConfig{
		PollInterval: config.Reconciler.PollInterval,
		StaleAfter:   config.Reconciler.StaleAfter,
		BatchSize:    config.Reconciler.BatchSize,
		MaxWorkers:   config.Reconciler.MaxWorkers,
	}
	if pollIntervalFlag > 0 {
		pollerConfig.PollInterval = pollIntervalFlag
	}
	if staleAfterFlag > 0 {
		pollerConfig.StaleAfter = staleAfterFlag
	}
	if maxWorkersFlag > 0 {
		pollerConfig.MaxWorkers = maxWorkersFlag
	}

	poller := payment.NewPoller(paymentService, pollerConfig, log)
	poller.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("reconciliation worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	log.Info("received signal, shutting down reconciliation worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		poller.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		log.Info("reconciliation worker shutdown complete")
	case <-ctx.Done():
		log.Warn("shutdown timeout reached, forcing exit")
	}
}
