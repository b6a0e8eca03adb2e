package payment

import (
	"time"

	transactionDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/transaction"
)

// CheckoutRequest is the payload for starting a hosted checkout on an order.
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method,omitempty"`
}

// CheckoutResult is returned to the storefront so it can redirect the
// customer to the hosted payment page.
type CheckoutResult struct {
	TransactionID    int64  `json:"transaction_id"`
	HostedCheckoutID string `json:"hosted_checkout_id"`
	RedirectURL      string `json:"redirect_url"`
	ReturnMAC        string `json:"return_mac,omitempty"`
}

// ReconcileResult is the outcome of one reconciliation pass regardless of
// which path (browser return, webhook, background poll) triggered it.
type ReconcileResult struct {
	Success        bool   `json:"success"`
	OrderID        int64  `json:"order_id,omitempty"`
	Status         string `json:"status,omitempty"`
	IsPaid         bool   `json:"is_paid"`
	TransactionRef string `json:"transaction_ref,omitempty"`
	Error          string `json:"error,omitempty"`
}

// TransactionView is the admin-facing projection of a transaction.
type TransactionView struct {
	ID               int64     `json:"id"`
	OrderID          int64     `json:"order_id"`
	HostedCheckoutID string    `json:"hosted_checkout_id,omitempty"`
	TransactionRef   string    `json:"transaction_ref,omitempty"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	StatusCode       string    `json:"status_code,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewTransactionView(tx *transactionDatamodel.Transaction) TransactionView {
	view := TransactionView{
		ID:            tx.ID,
		OrderID:       tx.OrderID,
		PaymentMethod: tx.PaymentMethod,
		Amount:        tx.Amount(),
		Currency:      tx.Currency,
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}
	if tx.HostedCheckoutID != nil {
		view.HostedCheckoutID = *tx.HostedCheckoutID
	}
	if tx.TransactionRef != nil {
		view.TransactionRef = *tx.TransactionRef
	}
	if tx.StatusCode != nil {
		view.StatusCode = *tx.StatusCode
	}
	if tx.ErrorMessage != nil {
		view.ErrorMessage = *tx.ErrorMessage
	}
	return view
}
