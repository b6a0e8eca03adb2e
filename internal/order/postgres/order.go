package postgres

import (
	"time"

	"gorm.io/gorm"

	orderDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/order"
	orderpkg "github.com/emmanuelnurit/cawl-gateway/internal/order"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) orderpkg.Repository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(id int64) (*orderDatamodel.Order, error) {
	var ord orderDatamodel.Order
	err := r.db.Where("id = ?", id).First(&ord).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, orderpkg.ErrOrderNotFound
		}
		return nil, err
	}
	return &ord, nil
}

func (r *OrderRepository) GetByRef(ref string) (*orderDatamodel.Order, error) {
	var ord orderDatamodel.Order
	err := r.db.Where("ref = ?", ref).First(&ord).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, orderpkg.ErrOrderNotFound
		}
		return nil, err
	}
	return &ord, nil
}

// MarkPaid performs the paid transition as a single conditional UPDATE so
// concurrent confirmations from the browser return and the webhook cannot
// both win. The row count tells the caller whether this call transitioned.
func (r *OrderRepository) MarkPaid(id int64, transactionRef string) (bool, error) {
	now := time.Now()

	result := r.db.Model(&orderDatamodel.Order{}).
		Where("id = ? AND status <> ?", id, orderDatamodel.StatusPaid).
		Updates(map[string]interface{}{
			"status":          orderDatamodel.StatusPaid,
			"transaction_ref": transactionRef,
			"paid_at":         now,
			"updated_at":      now,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
