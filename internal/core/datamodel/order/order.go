package order

import "time"

// Order statuses owned by the platform. This service only ever requests the
// transition to StatusPaid; everything else belongs to the storefront.
const (
	StatusNew       = "new"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Order mirrors the platform's order row as far as payment needs it: amount
// snapshot, billing details for the hosted checkout, and the status column
// the reconciler transitions to paid.
type Order struct {
	ID                 int64      `gorm:"primaryKey"`
	Ref                string     `gorm:"column:ref;not null;uniqueIndex"`
	CustomerID         int64      `gorm:"column:customer_id"`
	CustomerEmail      string     `gorm:"column:customer_email"`
	BillingStreet      string     `gorm:"column:billing_street"`
	BillingCity        string     `gorm:"column:billing_city"`
	BillingZip         string     `gorm:"column:billing_zip"`
	BillingCountryCode string     `gorm:"column:billing_country_code"`
	AmountCents        int64      `gorm:"column:amount_cents;not null"`
	Currency           string     `gorm:"column:currency;not null"`
	Status             string     `gorm:"column:status;default:new"`
	TransactionRef     *string    `gorm:"column:transaction_ref"`
	CreatedAt          time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;default:now()"`
	PaidAt             *time.Time `gorm:"column:paid_at"`
}

func (Order) TableName() string {
	return "orders"
}
