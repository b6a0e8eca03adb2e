package transaction

import (
	"encoding/json"
	"time"
)

// Internal transaction statuses. Gateway statuses outside the mapping table
// are stored as their lower-cased raw value, so this list is not exhaustive.
const (
	StatusPending      = "pending"
	StatusAuthorized   = "authorized"
	StatusCaptured     = "captured"
	StatusCancelled    = "cancelled"
	StatusRejected     = "rejected"
	StatusRefunded     = "refunded"
	StatusChargebacked = "chargebacked"
	StatusError        = "error"
)

// Transaction is one hosted-checkout attempt for an order. Rows are created
// by the checkout service, mutated only by the reconciler, and never deleted.
type Transaction struct {
	ID               int64           `gorm:"primaryKey"`
	OrderID          int64           `gorm:"column:order_id;not null;index"`
	HostedCheckoutID *string         `gorm:"column:hosted_checkout_id;uniqueIndex"`
	TransactionRef   *string         `gorm:"column:transaction_ref"`
	PaymentMethod    string          `gorm:"column:payment_method"`
	AmountCents      int64           `gorm:"column:amount_cents;not null"`
	Currency         string          `gorm:"column:currency;not null"`
	Status           string          `gorm:"column:status;default:pending"`
	StatusCode       *string         `gorm:"column:status_code"`
	ErrorMessage     *string         `gorm:"column:error_message"`
	RawRequest       json.RawMessage `gorm:"column:raw_request;type:jsonb"`
	RawResponse      json.RawMessage `gorm:"column:raw_response;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Transaction) TableName() string {
	return "cawl_transactions"
}

// Amount returns the transaction amount in major currency units.
func (t *Transaction) Amount() float64 {
	return float64(t.AmountCents) / 100
}

// IsTerminal reports whether the internal status is one the gateway will not
// normally move away from. Refund and chargeback notifications can still
// overwrite a captured status later.
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusCaptured, StatusCancelled, StatusRejected, StatusRefunded, StatusChargebacked:
		return true
	}
	return false
}
