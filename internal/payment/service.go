package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	errors "github.com/emmanuelnurit/cawl-gateway/internal"
	"github.com/emmanuelnurit/cawl-gateway/internal/catalog"
	"github.com/emmanuelnurit/cawl-gateway/internal/core/common/validation"
	"github.com/emmanuelnurit/cawl-gateway/internal/core/events"
	orderDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/order"
	transactionDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/transaction"
	"github.com/emmanuelnurit/cawl-gateway/internal/gateway"
)

// TransactionRepository is the persistence contract for checkout attempts.
type TransactionRepository interface {
	Create(tx *transactionDatamodel.Transaction) error
	GetByID(id int64) (*transactionDatamodel.Transaction, error)
	GetByHostedCheckoutID(hostedCheckoutID string) (*transactionDatamodel.Transaction, error)
	GetLatestByOrderID(orderID int64) (*transactionDatamodel.Transaction, error)
	GetByOrderID(orderID int64, limit int) ([]*transactionDatamodel.Transaction, error)
	GetStalePending(olderThanMinutes, limit int) ([]*transactionDatamodel.Transaction, error)
	UpdateOutcome(id int64, status string, statusCode, transactionRef *string, rawResponse json.RawMessage) error
}

// OrderAPI is the slice of the order service the payment flow needs: lookups
// plus the single-shot paid transition.
type OrderAPI interface {
	GetByID(id int64) (*orderDatamodel.Order, error)
	GetByRef(ref string) (*orderDatamodel.Order, error)
	MarkPaid(ctx context.Context, orderID int64, transactionRef string) (bool, error)
}

// GatewayAPI abstracts the hosted checkout client so tests can stub the
// remote gateway.
type GatewayAPI interface {
	CreateHostedCheckout(ctx context.Context, req *gateway.CreateHostedCheckoutRequest) (*gateway.CreateHostedCheckoutResponse, error)
	GetHostedCheckoutStatus(ctx context.Context, hostedCheckoutID string) (*gateway.HostedCheckoutStatus, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.Payment, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ServiceConfig struct {
	ReturnURL string
	Locale    string
}

// PaymentService drives the hosted checkout lifecycle: session creation and
// reconciliation of outcomes arriving from polls and webhooks.
type PaymentService struct {
	gateway  GatewayAPI
	repo     TransactionRepository
	orders   OrderAPI
	verifier *SignatureVerifier
	eventBus EventPublisher
	config   ServiceConfig
	logger   *slog.Logger
}

func NewPaymentService(gatewayClient GatewayAPI, repo TransactionRepository, orders OrderAPI, verifier *SignatureVerifier, eventBus EventPublisher, config ServiceConfig, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		gateway:  gatewayClient,
		repo:     repo,
		orders:   orders,
		verifier: verifier,
		eventBus: eventBus,
		config:   config,
		logger:   logger,
	}
}

func validateOrderForCheckout(ord *orderDatamodel.Order) error {
	v := validation.NewValidator()
	v.Field("amount", ord.AmountCents).MinInt(1, errors.ErrCodeInvalidAmount)
	v.Field("currency", ord.Currency).
		Required(errors.ErrCodeMissingCurrency).
		ExactLength(3, errors.ErrCodeMissingCurrency)
	v.Field("customer_email", ord.CustomerEmail).Required(errors.ErrCodeMissingCustomer)
	v.Field("billing_country_code", ord.BillingCountryCode).Required(errors.ErrCodeMissingAddress)

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// CreateCheckout registers a hosted checkout session for an order. Every
// attempt leaves a transaction row behind: pending when the session was
// created, error with the failure reason when the gateway call failed. The
// caller only ever sees a generic failure; the detailed reason goes to the
// audit row and the log.
func (s *PaymentService) CreateCheckout(ctx context.Context, orderID int64, methodCode string) (*CheckoutResult, error) {
	ord, err := s.orders.GetByID(orderID)
	if err != nil {
		s.logger.Error("checkout requested for unknown order", "order_id", orderID, "error", err)
		return nil, errors.ErrOrderNotFound
	}

	if err := validateOrderForCheckout(ord); err != nil {
		return nil, err
	}

	method := catalog.Resolve(methodCode)
	if methodCode != "" {
		if _, resolved := method.ProductID(); !resolved {
			// Unknown codes proceed without a product filter instead of
			// rejecting the checkout.
			s.logger.Warn("unknown payment method code, proceeding unfiltered",
				"order_id", orderID,
				"payment_method", methodCode)
		}
	}

	req := s.buildCheckoutRequest(ord, method)
	rawRequest, _ := json.Marshal(req)

	resp, err := s.gateway.CreateHostedCheckout(ctx, req)
	if err != nil {
		s.logger.Error("hosted checkout creation failed",
			"order_id", orderID,
			"error", err)

		errMsg := err.Error()
		tx := &transactionDatamodel.Transaction{
			OrderID:       ord.ID,
			PaymentMethod: method.Code(),
			AmountCents:   ord.AmountCents,
			Currency:      ord.Currency,
			Status:        transactionDatamodel.StatusError,
			ErrorMessage:  &errMsg,
			RawRequest:    rawRequest,
		}
		if createErr := s.repo.Create(tx); createErr != nil {
			s.logger.Error("failed to record error transaction",
				"order_id", orderID,
				"error", createErr)
		}

		return nil, errors.ErrCheckoutFailed
	}

	rawResponse, _ := json.Marshal(resp)
	tx := &transactionDatamodel.Transaction{
		OrderID:          ord.ID,
		HostedCheckoutID: &resp.HostedCheckoutID,
		PaymentMethod:    method.Code(),
		AmountCents:      ord.AmountCents,
		Currency:         ord.Currency,
		Status:           transactionDatamodel.StatusPending,
		RawRequest:       rawRequest,
		RawResponse:      rawResponse,
	}
	if err := s.repo.Create(tx); err != nil {
		s.logger.Error("failed to persist pending transaction",
			"order_id", orderID,
			"hosted_checkout_id", resp.HostedCheckoutID,
			"error", err)
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	s.logger.Info("checkout session created",
		"order_id", ord.ID,
		"transaction_id", tx.ID,
		"hosted_checkout_id", resp.HostedCheckoutID,
		"payment_method", method.Code())

	return &CheckoutResult{
		TransactionID:    tx.ID,
		HostedCheckoutID: resp.HostedCheckoutID,
		RedirectURL:      gateway.CheckoutURL(resp),
		ReturnMAC:        resp.ReturnMAC,
	}, nil
}

func (s *PaymentService) buildCheckoutRequest(ord *orderDatamodel.Order, method catalog.MethodRef) *gateway.CreateHostedCheckoutRequest {
	req := &gateway.CreateHostedCheckoutRequest{
		Order: gateway.OrderInput{
			AmountOfMoney: gateway.AmountOfMoney{
				Amount:       ord.AmountCents,
				CurrencyCode: ord.Currency,
			},
			Customer: &gateway.Customer{
				MerchantCustomerID: strconv.FormatInt(ord.CustomerID, 10),
				ContactDetails: &gateway.ContactDetails{
					EmailAddress: ord.CustomerEmail,
				},
				BillingAddress: &gateway.Address{
					Street:      ord.BillingStreet,
					City:        ord.BillingCity,
					Zip:         ord.BillingZip,
					CountryCode: ord.BillingCountryCode,
				},
				Locale: s.config.Locale,
			},
			References: &gateway.References{
				MerchantReference: ord.Ref,
			},
		},
		HostedCheckoutSpecificInput: &gateway.HostedCheckoutSpecificInput{
			Locale:    s.config.Locale,
			ReturnURL: fmt.Sprintf("%s?order_id=%d", s.config.ReturnURL, ord.ID),
		},
	}

	if productID, ok := method.ProductID(); ok {
		req.CardPaymentMethodSpecificInput = &gateway.CardPaymentMethodSpecificInput{
			PaymentProductID: productID,
		}
	}

	return req
}

// GetTransaction returns a single transaction by id.
func (s *PaymentService) GetTransaction(id int64) (*transactionDatamodel.Transaction, error) {
	return s.repo.GetByID(id)
}

// TransactionsForOrder lists the most recent checkout attempts for an order.
func (s *PaymentService) TransactionsForOrder(orderID int64, limit int) ([]TransactionView, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	txs, err := s.repo.GetByOrderID(orderID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, NewTransactionView(tx))
	}
	return views, nil
}
