package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/emmanuelnurit/cawl-gateway/internal"
	"github.com/emmanuelnurit/cawl-gateway/internal/transport"
)

// ServiceAPI is the payment surface the HTTP layer depends on.
type ServiceAPI interface {
	CreateCheckout(ctx context.Context, orderID int64, methodCode string) (*CheckoutResult, error)
	ReconcileFromPoll(ctx context.Context, hostedCheckoutID string) (*PollResult, error)
	ReconcileFromWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*ReconcileResult, error)
	ConfirmPayment(ctx context.Context, orderID int64, transactionRef string) error
	TransactionsForOrder(orderID int64, limit int) ([]TransactionView, error)
}

type Handler struct {
	*transport.BaseHandler
	PaymentService ServiceAPI
	StorefrontURL  string
	Logger         *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI, storefrontURL string, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:    baseHandler,
		PaymentService: paymentService,
		StorefrontURL:  storefrontURL,
		Logger:         logger,
	}
}

// Pay handles POST /api/v1/checkout/{orderID}/pay
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		h.Logger.Error("Pay: invalid order ID", "order_id", chi.URLParam(r, "orderID"))
		h.HandleError(w, errors.NewValidationError("invalid order ID", errors.ErrCodeValidationFailed))
		return
	}

	var req CheckoutRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.Logger.Error("Pay: failed to parse request body", "error", err)
			h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
			return
		}
	}

	result, err := h.PaymentService.CreateCheckout(r.Context(), orderID, req.PaymentMethod)
	if err != nil {
		h.Logger.Error("Pay: checkout creation failed", "order_id", orderID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("Pay: checkout session created",
		"order_id", orderID,
		"hosted_checkout_id", result.HostedCheckoutID)

	h.WriteJSON(w, http.StatusCreated, result)
}

// Return handles GET /api/v1/payment/return, the browser coming back from
// the hosted payment page. It polls the outcome, confirms the order when the
// paid-predicate holds, then sends the customer to the storefront result
// page. The webhook may already have done all of this; both paths tolerate
// the other winning.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	hostedCheckoutID := r.URL.Query().Get("hostedCheckoutId")
	if hostedCheckoutID == "" {
		h.HandleError(w, errors.NewValidationError("hostedCheckoutId is required", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.PaymentService.ReconcileFromPoll(r.Context(), hostedCheckoutID)
	if err != nil {
		h.Logger.Error("Return: reconciliation failed",
			"hosted_checkout_id", hostedCheckoutID,
			"error", err)
		h.redirect(w, r, 0, false)
		return
	}

	if result.IsPaid && result.Found {
		if err := h.PaymentService.ConfirmPayment(r.Context(), result.OrderID, result.PaymentID); err != nil {
			h.Logger.Error("Return: order confirmation failed",
				"order_id", result.OrderID,
				"error", err)
			h.redirect(w, r, result.OrderID, false)
			return
		}
	}

	h.Logger.Info("Return: browser return processed",
		"hosted_checkout_id", hostedCheckoutID,
		"order_id", result.OrderID,
		"status", result.Status,
		"is_paid", result.IsPaid)

	h.redirect(w, r, result.OrderID, result.IsPaid)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, orderID int64, paid bool) {
	if h.StorefrontURL == "" {
		h.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"order_id": orderID,
			"is_paid":  paid,
		})
		return
	}

	target := fmt.Sprintf("%s/order/%d/failed", h.StorefrontURL, orderID)
	if paid {
		target = fmt.Sprintf("%s/order/%d/placed", h.StorefrontURL, orderID)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Status handles GET /api/v1/payment/status/{hostedCheckoutID}. Unlike the
// browser return it never confirms the order; it only refreshes and reports.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	hostedCheckoutID := chi.URLParam(r, "hostedCheckoutID")
	if hostedCheckoutID == "" {
		h.HandleError(w, errors.NewValidationError("hostedCheckoutID is required", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.PaymentService.ReconcileFromPoll(r.Context(), hostedCheckoutID)
	if err != nil {
		h.Logger.Error("Status: reconciliation failed",
			"hosted_checkout_id", hostedCheckoutID,
			"error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

const maxWebhookBody = 1 << 20

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
}
