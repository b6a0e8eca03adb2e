package payment

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/emmanuelnurit/cawl-gateway/internal"
	"github.com/emmanuelnurit/cawl-gateway/internal/transport"
)

// ConnectionTester is the slice of the gateway client the admin surface
// needs for credential checks.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

type AdminHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
	tester         ConnectionTester
	gatewayConfig  internal.GatewayConfig
	logger         *slog.Logger
}

func NewAdminHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI, tester ConnectionTester, gatewayConfig internal.GatewayConfig, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:    baseHandler,
		paymentService: paymentService,
		tester:         tester,
		gatewayConfig:  gatewayConfig,
		logger:         logger,
	}
}

// TestConnection handles POST /api/v1/admin/gateway/test
func (h *AdminHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	result := map[string]interface{}{
		"environment": h.gatewayConfig.Environment,
		"endpoint":    h.gatewayConfig.APIURL(),
		"merchant_id": h.gatewayConfig.MerchantID,
	}

	if err := h.tester.TestConnection(r.Context()); err != nil {
		h.logger.Error("gateway connection test failed",
			"merchant_id", h.gatewayConfig.MerchantID,
			"error", err)
		result["success"] = false
		result["error"] = "connection test failed"
		h.WriteJSON(w, http.StatusBadGateway, result)
		return
	}

	h.logger.Info("gateway connection test succeeded",
		"merchant_id", h.gatewayConfig.MerchantID)
	result["success"] = true
	h.WriteJSON(w, http.StatusOK, result)
}

// ConfigSummary handles GET /api/v1/admin/gateway/config. Secrets are
// reported as configured flags only, never echoed.
func (h *AdminHandler) ConfigSummary(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":               h.gatewayConfig.Environment,
		"endpoint":                  h.gatewayConfig.APIURL(),
		"merchant_id":               h.gatewayConfig.MerchantID,
		"api_key_configured":        h.gatewayConfig.APIKey != "",
		"api_secret_configured":     h.gatewayConfig.APISecret != "",
		"webhook_secret_configured": h.gatewayConfig.WebhookSecret != "",
	})
}

// ListTransactions handles GET /api/v1/admin/transactions?order_id=N
func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	orderIDParam := r.URL.Query().Get("order_id")
	orderID, err := strconv.ParseInt(orderIDParam, 10, 64)
	if err != nil || orderID <= 0 {
		h.HandleError(w, internal.NewValidationError("order_id is required", internal.ErrCodeValidationFailed))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	views, err := h.paymentService.TransactionsForOrder(orderID, limit)
	if err != nil {
		h.logger.Error("transaction listing failed", "order_id", orderID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":     orderID,
		"transactions": views,
	})
}
