package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCaptured = "payment.captured"
	EventTypePaymentFailed   = "payment.failed"
	EventTypeOrderPaid       = "order.paid"
)

type PaymentCapturedEvent struct {
	BaseEvent
	TransactionID    int64  `json:"transaction_id"`
	OrderID          int64  `json:"order_id"`
	HostedCheckoutID string `json:"hosted_checkout_id"`
	TransactionRef   string `json:"transaction_ref"`
	AmountCents      int64  `json:"amount_cents"`
	Currency         string `json:"currency"`
	Source           string `json:"source"`
}

func NewPaymentCapturedEvent(transactionID, orderID int64, hostedCheckoutID, transactionRef string, amountCents int64, currency, source string) *PaymentCapturedEvent {
	return &PaymentCapturedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCaptured,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id":     transactionID,
				"order_id":           orderID,
				"hosted_checkout_id": hostedCheckoutID,
				"transaction_ref":    transactionRef,
				"amount_cents":       amountCents,
				"currency":           currency,
				"source":             source,
			},
		},
		TransactionID:    transactionID,
		OrderID:          orderID,
		HostedCheckoutID: hostedCheckoutID,
		TransactionRef:   transactionRef,
		AmountCents:      amountCents,
		Currency:         currency,
		Source:           source,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	TransactionID    int64  `json:"transaction_id"`
	OrderID          int64  `json:"order_id"`
	HostedCheckoutID string `json:"hosted_checkout_id"`
	Status           string `json:"status"`
	Reason           string `json:"reason"`
}

func NewPaymentFailedEvent(transactionID, orderID int64, hostedCheckoutID, status, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id":     transactionID,
				"order_id":           orderID,
				"hosted_checkout_id": hostedCheckoutID,
				"status":             status,
				"reason":             reason,
			},
		},
		TransactionID:    transactionID,
		OrderID:          orderID,
		HostedCheckoutID: hostedCheckoutID,
		Status:           status,
		Reason:           reason,
	}
}

type OrderPaidEvent struct {
	BaseEvent
	OrderID        int64  `json:"order_id"`
	OrderRef       string `json:"order_ref"`
	TransactionRef string `json:"transaction_ref"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
}

func NewOrderPaidEvent(orderID int64, orderRef, transactionRef string, amountCents int64, currency string) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderPaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":        orderID,
				"order_ref":       orderRef,
				"transaction_ref": transactionRef,
				"amount_cents":    amountCents,
				"currency":        currency,
			},
		},
		OrderID:        orderID,
		OrderRef:       orderRef,
		TransactionRef: transactionRef,
		AmountCents:    amountCents,
		Currency:       currency,
	}
}
