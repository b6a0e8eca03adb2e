package order

import (
	"context"
	"log/slog"

	"github.com/emmanuelnurit/cawl-gateway/internal"
	"github.com/emmanuelnurit/cawl-gateway/internal/core/events"
	orderDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/order"
)

var ErrOrderNotFound = internal.ErrOrderNotFound

// Repository is the persistence contract for orders. MarkPaid must be a
// compare-and-set: it transitions to paid only when the order is not paid
// yet and reports whether this call performed the transition.
type Repository interface {
	GetByID(id int64) (*orderDatamodel.Order, error)
	GetByRef(ref string) (*orderDatamodel.Order, error)
	MarkPaid(id int64, transactionRef string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo     Repository
	eventBus EventPublisher
	logger   *slog.Logger
}

func NewService(repo Repository, eventBus EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *Service) GetByID(id int64) (*orderDatamodel.Order, error) {
	return s.repo.GetByID(id)
}

func (s *Service) GetByRef(ref string) (*orderDatamodel.Order, error) {
	return s.repo.GetByRef(ref)
}

// MarkPaid transitions an order to paid at most once. Re-delivered
// confirmations for an already paid order are a no-op, not an error.
func (s *Service) MarkPaid(ctx context.Context, orderID int64, transactionRef string) (bool, error) {
	transitioned, err := s.repo.MarkPaid(orderID, transactionRef)
	if err != nil {
		return false, err
	}

	if !transitioned {
		s.logger.Info("order already paid, skipping transition",
			"order_id", orderID,
			"transaction_ref", transactionRef)
		return false, nil
	}

	s.logger.Info("order marked as paid",
		"order_id", orderID,
		"transaction_ref", transactionRef)

	if s.eventBus != nil {
		ord, err := s.repo.GetByID(orderID)
		if err == nil {
			event := events.NewOrderPaidEvent(ord.ID, ord.Ref, transactionRef, ord.AmountCents, ord.Currency)
			if pubErr := s.eventBus.Publish(ctx, event); pubErr != nil {
				s.logger.Error("failed to publish order paid event",
					"order_id", orderID,
					"error", pubErr)
			}
		}
	}

	return true, nil
}
