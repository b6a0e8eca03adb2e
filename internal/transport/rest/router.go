package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/emmanuelnurit/cawl-gateway/internal/catalog"
	"github.com/emmanuelnurit/cawl-gateway/internal/payment"
	"github.com/emmanuelnurit/cawl-gateway/internal/transport/middleware"
	"github.com/emmanuelnurit/cawl-gateway/internal/transport/swagger"
)

type RouterConfig struct {
	AllowedOrigins string
	AdminToken     string
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, config RouterConfig, paymentHandler *payment.Handler, webhookHandler *payment.WebhookHandler, adminHandler *payment.AdminHandler, catalogHandler *catalog.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(config.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// OpenAPI document and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", swagger.Spec("./api/openapi.yml"))
	router.Handle("/swagger/*", swagger.UI())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if webhookHandler != nil {
			r.Post("/payment/webhook", webhookHandler.HandleWebhook)
		}

		if paymentHandler != nil {
			r.Post("/checkout/{orderID}/pay", paymentHandler.Pay)
			r.Get("/payment/return", paymentHandler.Return)
			r.Get("/payment/status/{hostedCheckoutID}", paymentHandler.Status)
		}

		if catalogHandler != nil {
			r.Get("/payment/products", catalogHandler.PaymentProducts)
			r.Get("/payment/methods", catalogHandler.Methods)
		}

		if adminHandler != nil {
			r.Route("/admin", func(ar chi.Router) {
				ar.Use(middleware.AdminToken(config.AdminToken, logger))

				ar.Post("/gateway/test", adminHandler.TestConnection)
				ar.Get("/gateway/config", adminHandler.ConfigSummary)
				ar.Get("/transactions", adminHandler.ListTransactions)
			})
		}
	})
}
