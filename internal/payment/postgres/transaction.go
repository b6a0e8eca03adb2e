package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	errors "github.com/emmanuelnurit/cawl-gateway/internal"
	transactionDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/transaction"
	paymentpkg "github.com/emmanuelnurit/cawl-gateway/internal/payment"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) paymentpkg.TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(tx *transactionDatamodel.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *TransactionRepository) GetByID(id int64) (*transactionDatamodel.Transaction, error) {
	var tx transactionDatamodel.Transaction
	err := r.db.First(&tx, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) GetByHostedCheckoutID(hostedCheckoutID string) (*transactionDatamodel.Transaction, error) {
	var tx transactionDatamodel.Transaction
	err := r.db.Where("hosted_checkout_id = ?", hostedCheckoutID).First(&tx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// GetLatestByOrderID selects the active transaction for an order: the most
// recently created attempt wins when a customer retried payment.
func (r *TransactionRepository) GetLatestByOrderID(orderID int64) (*transactionDatamodel.Transaction, error) {
	var tx transactionDatamodel.Transaction
	err := r.db.Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&tx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) GetByOrderID(orderID int64, limit int) ([]*transactionDatamodel.Transaction, error) {
	var txs []*transactionDatamodel.Transaction
	err := r.db.Where("order_id = ?", orderID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

// GetStalePending returns pending transactions that have not been touched
// for the given number of minutes, oldest first, for the background sweep.
func (r *TransactionRepository) GetStalePending(olderThanMinutes, limit int) ([]*transactionDatamodel.Transaction, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanMinutes) * time.Minute)

	var txs []*transactionDatamodel.Transaction
	err := r.db.Where("status = ? AND updated_at < ? AND hosted_checkout_id IS NOT NULL",
		transactionDatamodel.StatusPending, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

// UpdateOutcome projects a reconciliation result onto a transaction row.
// Nil pointers leave the corresponding column untouched so a poll without a
// payment id does not erase a previously stored reference.
func (r *TransactionRepository) UpdateOutcome(id int64, status string, statusCode, transactionRef *string, rawResponse json.RawMessage) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if statusCode != nil {
		updates["status_code"] = *statusCode
	}
	if transactionRef != nil {
		updates["transaction_ref"] = *transactionRef
	}
	if rawResponse != nil {
		updates["raw_response"] = rawResponse
	}

	result := r.db.Model(&transactionDatamodel.Transaction{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("transaction %d not found", id)
	}
	return nil
}
