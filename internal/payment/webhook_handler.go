package payment

import (
	"log/slog"
	"net/http"

	stderrors "errors"

	errors "github.com/emmanuelnurit/cawl-gateway/internal"
	"github.com/emmanuelnurit/cawl-gateway/internal/transport"
)

// SignatureHeader is the request header the gateway signs webhook bodies
// into.
const SignatureHeader = "X-GCS-Signature"

type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
	logger         *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    baseHandler,
		paymentService: paymentService,
		logger:         logger,
	}
}

// HandleWebhook handles POST /api/v1/payment/webhook. Trust failures answer
// 400 with a generic body; the detailed reason only goes to the log. A paid
// outcome triggers order confirmation before the 200 goes out, so the
// gateway retries delivery if confirmation could not be persisted.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := readBody(r)
	if err != nil {
		h.logger.Error("webhook body read failed", "error", err)
		h.WriteJSON(w, http.StatusBadRequest, &ReconcileResult{Success: false, Error: "Invalid payload"})
		return
	}

	signatureHeader := r.Header.Get(SignatureHeader)

	result, err := h.paymentService.ReconcileFromWebhook(r.Context(), rawBody, signatureHeader)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrInvalidSignature),
			stderrors.Is(err, errors.ErrMissingWebhookFields),
			stderrors.Is(err, errors.ErrTransactionNotFound):
			h.logger.Warn("webhook rejected", "error", err)
			h.WriteJSON(w, http.StatusBadRequest, result)
		default:
			h.logger.Error("webhook processing failed", "error", err)
			h.WriteJSON(w, http.StatusInternalServerError, &ReconcileResult{Success: false, Error: "Internal error"})
		}
		return
	}

	if result.IsPaid {
		if err := h.paymentService.ConfirmPayment(r.Context(), result.OrderID, result.TransactionRef); err != nil {
			h.logger.Error("webhook order confirmation failed",
				"order_id", result.OrderID,
				"error", err)
			h.WriteJSON(w, http.StatusInternalServerError, &ReconcileResult{Success: false, Error: "Internal error"})
			return
		}
	}

	h.logger.Info("webhook processed",
		"order_id", result.OrderID,
		"status", result.Status,
		"is_paid", result.IsPaid)

	h.WriteJSON(w, http.StatusOK, result)
}
