package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"

	errors "github.com/emmanuelnurit/cawl-gateway/internal"
	transactionDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/transaction"
	"github.com/emmanuelnurit/cawl-gateway/internal/core/events"
	"github.com/emmanuelnurit/cawl-gateway/internal/gateway"
)

// PollResult is the outcome of a poll-based reconciliation. Found reports
// whether a local transaction was updated; a status check for an unknown
// checkout id still returns the gateway's answer without persisting anything.
type PollResult struct {
	Status        string `json:"status"`
	RawStatus     string `json:"raw_status,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
	IsPaid        bool   `json:"is_paid"`
	Found         bool   `json:"-"`
	OrderID       int64  `json:"order_id,omitempty"`
	TransactionID int64  `json:"-"`
}

// ReconcileFromPoll fetches the checkout state from the gateway and projects
// it onto the local transaction. A gateway failure mutates nothing. The
// caller decides whether to confirm the order based on IsPaid.
func (s *PaymentService) ReconcileFromPoll(ctx context.Context, hostedCheckoutID string) (*PollResult, error) {
	checkoutStatus, err := s.gateway.GetHostedCheckoutStatus(ctx, hostedCheckoutID)
	if err != nil {
		s.logger.Error("checkout status fetch failed",
			"hosted_checkout_id", hostedCheckoutID,
			"error", err)
		return nil, errors.NewExternalError("Payment status unavailable", errors.ErrCodeGatewayUnavailable, err)
	}

	rawStatus := checkoutStatus.Status
	var paymentID, statusCode string
	if p := checkoutStatus.CreatedPaymentOutput; p != nil && p.Payment != nil {
		rawStatus = p.Payment.Status
		paymentID = p.Payment.ID
		if p.Payment.StatusOutput != nil {
			statusCode = p.Payment.StatusOutput.StatusCode.String()
		}
	}

	result := &PollResult{
		Status:    MapStatus(rawStatus),
		RawStatus: rawStatus,
		PaymentID: paymentID,
		IsPaid:    IsPaidStatus(rawStatus),
	}

	tx, err := s.repo.GetByHostedCheckoutID(hostedCheckoutID)
	if err != nil {
		if !stderrors.Is(err, errors.ErrTransactionNotFound) {
			s.logger.Error("transaction lookup failed",
				"hosted_checkout_id", hostedCheckoutID,
				"error", err)
			return nil, err
		}
		// Status checks may arrive for ids with no local record. Return the
		// gateway's answer without persisting.
		s.logger.Warn("no transaction for polled checkout id",
			"hosted_checkout_id", hostedCheckoutID,
			"raw_status", rawStatus)
		return result, nil
	}

	rawResponse, _ := json.Marshal(checkoutStatus)
	if err := s.applyOutcome(ctx, tx, rawStatus, statusCode, paymentID, rawResponse, "poll"); err != nil {
		return nil, err
	}

	result.Found = true
	result.OrderID = tx.OrderID
	result.TransactionID = tx.ID
	return result, nil
}

// ReconcileFromWebhook authenticates and applies a pushed notification. Any
// trust failure (signature, missing fields, unresolvable reference) rejects
// without mutation; the returned result carries only a generic error text.
func (s *PaymentService) ReconcileFromWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*ReconcileResult, error) {
	if err := s.verifier.Verify(rawBody, signatureHeader); err != nil {
		return &ReconcileResult{Success: false, Error: "Invalid signature"}, err
	}

	var payload gateway.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		s.logger.Warn("webhook payload is not valid JSON", "error", err)
		return &ReconcileResult{Success: false, Error: "Missing required fields"}, errors.ErrMissingWebhookFields
	}

	if payload.Payment == nil || payload.Payment.ID == "" || payload.Payment.Status == "" {
		s.logger.Warn("webhook payload missing payment fields")
		return &ReconcileResult{Success: false, Error: "Missing required fields"}, errors.ErrMissingWebhookFields
	}

	var merchantRef string
	if out := payload.Payment.PaymentOutput; out != nil && out.References != nil {
		merchantRef = out.References.MerchantReference
	}
	if merchantRef == "" {
		s.logger.Warn("webhook payload missing merchant reference",
			"payment_id", payload.Payment.ID)
		return &ReconcileResult{Success: false, Error: "Missing required fields"}, errors.ErrMissingWebhookFields
	}

	// The payment id is not known locally until this first notification, so
	// resolution goes merchant reference -> order -> latest transaction.
	ord, err := s.orders.GetByRef(merchantRef)
	if err != nil {
		if !stderrors.Is(err, errors.ErrOrderNotFound) {
			s.logger.Error("order lookup failed",
				"merchant_reference", merchantRef,
				"error", err)
			return nil, err
		}
		s.logger.Warn("webhook for unknown merchant reference",
			"merchant_reference", merchantRef,
			"payment_id", payload.Payment.ID)
		return &ReconcileResult{Success: false, Error: "Transaction not found"}, errors.ErrTransactionNotFound
	}

	tx, err := s.repo.GetLatestByOrderID(ord.ID)
	if err != nil {
		if !stderrors.Is(err, errors.ErrTransactionNotFound) {
			s.logger.Error("transaction lookup failed",
				"order_id", ord.ID,
				"error", err)
			return nil, err
		}
		s.logger.Warn("webhook for order without transactions",
			"order_id", ord.ID,
			"merchant_reference", merchantRef)
		return &ReconcileResult{Success: false, Error: "Transaction not found"}, errors.ErrTransactionNotFound
	}

	rawStatus := payload.Payment.Status
	var statusCode string
	if payload.Payment.StatusOutput != nil {
		statusCode = payload.Payment.StatusOutput.StatusCode.String()
	}

	if err := s.applyOutcome(ctx, tx, rawStatus, statusCode, payload.Payment.ID, rawBody, "webhook"); err != nil {
		return nil, err
	}

	return &ReconcileResult{
		Success:        true,
		OrderID:        ord.ID,
		Status:         MapStatus(rawStatus),
		IsPaid:         IsPaidStatus(rawStatus),
		TransactionRef: payload.Payment.ID,
	}, nil
}

// applyOutcome projects one gateway outcome onto a transaction. Status is
// last write wins: notifications are not guaranteed to be ordered and the
// gateway is the authority, so no transition guard is applied. Re-applying
// an identical outcome is a no-op in effect.
func (s *PaymentService) applyOutcome(ctx context.Context, tx *transactionDatamodel.Transaction, rawStatus, statusCode, transactionRef string, rawResponse json.RawMessage, source string) error {
	mapped := MapStatus(rawStatus)

	var statusCodePtr, refPtr *string
	if statusCode != "" {
		statusCodePtr = &statusCode
	}
	if transactionRef != "" {
		refPtr = &transactionRef
	}

	if err := s.repo.UpdateOutcome(tx.ID, mapped, statusCodePtr, refPtr, rawResponse); err != nil {
		s.logger.Error("failed to persist reconciliation outcome",
			"transaction_id", tx.ID,
			"order_id", tx.OrderID,
			"status", mapped,
			"source", source,
			"error", err)
		return err
	}

	s.logger.Info("transaction reconciled",
		"transaction_id", tx.ID,
		"order_id", tx.OrderID,
		"raw_status", rawStatus,
		"status", mapped,
		"transaction_ref", transactionRef,
		"source", source)

	if s.eventBus == nil {
		return nil
	}

	switch mapped {
	case transactionDatamodel.StatusRejected, transactionDatamodel.StatusCancelled:
		hostedCheckoutID := ""
		if tx.HostedCheckoutID != nil {
			hostedCheckoutID = *tx.HostedCheckoutID
		}
		event := events.NewPaymentFailedEvent(tx.ID, tx.OrderID, hostedCheckoutID, mapped, rawStatus)
		s.eventBus.Publish(ctx, event)
	default:
		if IsPaidStatus(rawStatus) {
			hostedCheckoutID := ""
			if tx.HostedCheckoutID != nil {
				hostedCheckoutID = *tx.HostedCheckoutID
			}
			event := events.NewPaymentCapturedEvent(tx.ID, tx.OrderID, hostedCheckoutID, transactionRef, tx.AmountCents, tx.Currency, source)
			s.eventBus.Publish(ctx, event)
		}
	}

	return nil
}

// ConfirmPayment drives the order to paid at most once. Both reconciliation
// paths call this after a paid outcome; the conditional transition in the
// order store is the concurrency guard, so racing confirmations cannot both
// win.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderID int64, transactionRef string) error {
	_, err := s.orders.MarkPaid(ctx, orderID, transactionRef)
	return err
}
