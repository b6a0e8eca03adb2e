package payment_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emmanuelnurit/cawl-gateway/internal"
	orderDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/order"
	transactionDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/transaction"
	"github.com/emmanuelnurit/cawl-gateway/internal/gateway"
	paymentPkg "github.com/emmanuelnurit/cawl-gateway/internal/payment"
)

type mockTransactionRepository struct {
	mu           sync.Mutex
	transactions map[int64]*transactionDatamodel.Transaction
	nextID       int64

	createError error
	getError    error
	updateError error
	createCalls int
	updateCalls int
}

func newMockTransactionRepository() *mockTransactionRepository {
	return &mockTransactionRepository{
		transactions: make(map[int64]*transactionDatamodel.Transaction),
		nextID:       1,
	}
}

func (m *mockTransactionRepository) Create(tx *transactionDatamodel.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.createError != nil {
		return m.createError
	}
	tx.ID = m.nextID
	m.nextID++
	m.transactions[tx.ID] = tx
	return nil
}

func (m *mockTransactionRepository) GetByID(id int64) (*transactionDatamodel.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getError != nil {
		return nil, m.getError
	}
	tx, ok := m.transactions[id]
	if !ok {
		return nil, internal.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *mockTransactionRepository) GetByHostedCheckoutID(hostedCheckoutID string) (*transactionDatamodel.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getError != nil {
		return nil, m.getError
	}
	for _, tx := range m.transactions {
		if tx.HostedCheckoutID != nil && *tx.HostedCheckoutID == hostedCheckoutID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, internal.ErrTransactionNotFound
}

func (m *mockTransactionRepository) GetLatestByOrderID(orderID int64) (*transactionDatamodel.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getError != nil {
		return nil, m.getError
	}
	var latest *transactionDatamodel.Transaction
	for _, tx := range m.transactions {
		if tx.OrderID != orderID {
			continue
		}
		if latest == nil || tx.ID > latest.ID {
			latest = tx
		}
	}
	if latest == nil {
		return nil, internal.ErrTransactionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockTransactionRepository) GetByOrderID(orderID int64, limit int) ([]*transactionDatamodel.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getError != nil {
		return nil, m.getError
	}
	var out []*transactionDatamodel.Transaction
	for _, tx := range m.transactions {
		if tx.OrderID == orderID && len(out) < limit {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockTransactionRepository) GetStalePending(olderThanMinutes, limit int) ([]*transactionDatamodel.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*transactionDatamodel.Transaction
	for _, tx := range m.transactions {
		if tx.Status == transactionDatamodel.StatusPending && tx.HostedCheckoutID != nil && len(out) < limit {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockTransactionRepository) UpdateOutcome(id int64, status string, statusCode, transactionRef *string, rawResponse json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	if m.updateError != nil {
		return m.updateError
	}
	tx, ok := m.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %d not found", id)
	}
	tx.Status = status
	if statusCode != nil {
		tx.StatusCode = statusCode
	}
	if transactionRef != nil {
		tx.TransactionRef = transactionRef
	}
	if rawResponse != nil {
		tx.RawResponse = rawResponse
	}
	return nil
}

type mockOrderAPI struct {
	mu     sync.Mutex
	orders map[int64]*orderDatamodel.Order

	getError      error
	markPaidError error
	markPaidCalls int
	paidOrders    map[int64]string
}

func newMockOrderAPI(orders ...*orderDatamodel.Order) *mockOrderAPI {
	m := &mockOrderAPI{
		orders:     make(map[int64]*orderDatamodel.Order),
		paidOrders: make(map[int64]string),
	}
	for _, ord := range orders {
		m.orders[ord.ID] = ord
	}
	return m
}

func (m *mockOrderAPI) GetByID(id int64) (*orderDatamodel.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getError != nil {
		return nil, m.getError
	}
	ord, ok := m.orders[id]
	if !ok {
		return nil, internal.ErrOrderNotFound
	}
	cp := *ord
	return &cp, nil
}

func (m *mockOrderAPI) GetByRef(ref string) (*orderDatamodel.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getError != nil {
		return nil, m.getError
	}
	for _, ord := range m.orders {
		if ord.Ref == ref {
			cp := *ord
			return &cp, nil
		}
	}
	return nil, internal.ErrOrderNotFound
}

func (m *mockOrderAPI) MarkPaid(ctx context.Context, orderID int64, transactionRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markPaidCalls++
	if m.markPaidError != nil {
		return false, m.markPaidError
	}
	ord, ok := m.orders[orderID]
	if !ok {
		return false, internal.ErrOrderNotFound
	}
	if ord.Status == orderDatamodel.StatusPaid {
		return false, nil
	}
	ord.Status = orderDatamodel.StatusPaid
	m.paidOrders[orderID] = transactionRef
	return true, nil
}

type mockGatewayAPI struct {
	createResponse *gateway.CreateHostedCheckoutResponse
	createError    error
	checkoutStatus *gateway.HostedCheckoutStatus
	statusError    error
	paymentStatus  *gateway.Payment
	paymentError   error

	createCalls int
	lastRequest *gateway.CreateHostedCheckoutRequest
}

func (m *mockGatewayAPI) CreateHostedCheckout(ctx context.Context, req *gateway.CreateHostedCheckoutRequest) (*gateway.CreateHostedCheckoutResponse, error) {
	m.createCalls++
	m.lastRequest = req
	if m.createError != nil {
		return nil, m.createError
	}
	return m.createResponse, nil
}

func (m *mockGatewayAPI) GetHostedCheckoutStatus(ctx context.Context, hostedCheckoutID string) (*gateway.HostedCheckoutStatus, error) {
	if m.statusError != nil {
		return nil, m.statusError
	}
	return m.checkoutStatus, nil
}

func (m *mockGatewayAPI) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	if m.paymentError != nil {
		return nil, m.paymentError
	}
	return m.paymentStatus, nil
}

func testOrder() *orderDatamodel.Order {
	return &orderDatamodel.Order{
		ID:                 42,
		Ref:                "REF-42",
		CustomerID:         7,
		CustomerEmail:      "alice@example.com",
		BillingStreet:      "1 Rue de la Paix",
		BillingCity:        "Paris",
		BillingZip:         "75002",
		BillingCountryCode: "FR",
		AmountCents:        5000,
		Currency:           "EUR",
		Status:             orderDatamodel.StatusNew,
	}
}

var _ = Describe("PaymentService", func() {
	var (
		repo       *mockTransactionRepository
		orders     *mockOrderAPI
		gatewayAPI *mockGatewayAPI
		service    *paymentPkg.PaymentService
		verifier   *paymentPkg.SignatureVerifier
		ctx        context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockTransactionRepository()
		orders = newMockOrderAPI(testOrder())
		gatewayAPI = &mockGatewayAPI{
			createResponse: &gateway.CreateHostedCheckoutResponse{
				HostedCheckoutID: "hc-abc-123",
				RedirectURL:      "https://payment.example.test/checkout/hc-abc-123",
				ReturnMAC:        "mac-1",
			},
		}
		verifier = paymentPkg.NewSignatureVerifier("whsec_test", false, slog.Default())
		service = paymentPkg.NewPaymentService(gatewayAPI, repo, orders, verifier, nil, paymentPkg.ServiceConfig{
			ReturnURL: "https://shop.example.test/api/v1/payment/return",
			Locale:    "fr_FR",
		}, slog.Default())
	})

	Describe("CreateCheckout", func() {
		It("should create a session and persist a pending transaction", func() {
			result, err := service.CreateCheckout(ctx, 42, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.HostedCheckoutID).To(Equal("hc-abc-123"))
			Expect(result.RedirectURL).To(Equal("https://payment.example.test/checkout/hc-abc-123"))
			Expect(result.ReturnMAC).To(Equal("mac-1"))

			tx, err := repo.GetByID(result.TransactionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(tx.Status).To(Equal(transactionDatamodel.StatusPending))
			Expect(tx.OrderID).To(Equal(int64(42)))
			Expect(tx.AmountCents).To(Equal(int64(5000)))
			Expect(tx.Amount()).To(Equal(50.00))
			Expect(tx.Currency).To(Equal("EUR"))
			Expect(*tx.HostedCheckoutID).To(Equal("hc-abc-123"))
			Expect(tx.RawRequest).NotTo(BeEmpty())
			Expect(tx.RawResponse).NotTo(BeEmpty())
		})

		It("should carry the order details and merchant reference to the gateway", func() {
			_, err := service.CreateCheckout(ctx, 42, "paypal")
			Expect(err).NotTo(HaveOccurred())

			req := gatewayAPI.lastRequest
			Expect(req.Order.AmountOfMoney.Amount).To(Equal(int64(5000)))
			Expect(req.Order.AmountOfMoney.CurrencyCode).To(Equal("EUR"))
			Expect(req.Order.References.MerchantReference).To(Equal("REF-42"))
			Expect(req.Order.Customer.ContactDetails.EmailAddress).To(Equal("alice@example.com"))
			Expect(req.Order.Customer.BillingAddress.CountryCode).To(Equal("FR"))
			Expect(req.HostedCheckoutSpecificInput.ReturnURL).To(Equal("https://shop.example.test/api/v1/payment/return?order_id=42"))
			Expect(req.CardPaymentMethodSpecificInput).NotTo(BeNil())
			Expect(req.CardPaymentMethodSpecificInput.PaymentProductID).To(Equal(int32(840)))
		})

		It("should not set a product filter when no method is requested", func() {
			_, err := service.CreateCheckout(ctx, 42, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(gatewayAPI.lastRequest.CardPaymentMethodSpecificInput).To(BeNil())
		})

		It("should proceed unfiltered on an unknown method code", func() {
			result, err := service.CreateCheckout(ctx, 42, "mysterypay")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.HostedCheckoutID).To(Equal("hc-abc-123"))
			Expect(gatewayAPI.lastRequest.CardPaymentMethodSpecificInput).To(BeNil())
		})

		It("should return not found for an unknown order", func() {
			_, err := service.CreateCheckout(ctx, 999, "")
			Expect(err).To(MatchError(internal.ErrOrderNotFound))
			Expect(gatewayAPI.createCalls).To(Equal(0))
		})

		It("should reject an order with a non-positive amount", func() {
			ord := testOrder()
			ord.ID = 43
			ord.AmountCents = 0
			orders.orders[43] = ord

			_, err := service.CreateCheckout(ctx, 43, "")
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(gatewayAPI.createCalls).To(Equal(0))
		})

		It("should reject an order with a missing currency", func() {
			ord := testOrder()
			ord.ID = 44
			ord.Currency = ""
			orders.orders[44] = ord

			_, err := service.CreateCheckout(ctx, 44, "")
			Expect(err).To(HaveOccurred())
			Expect(gatewayAPI.createCalls).To(Equal(0))
		})

		It("should record an error transaction when the gateway call fails", func() {
			gatewayAPI.createError = fmt.Errorf("gateway timeout")

			_, err := service.CreateCheckout(ctx, 42, "visa")
			Expect(err).To(MatchError(internal.ErrCheckoutFailed))

			Expect(repo.createCalls).To(Equal(1))
			txs, _ := repo.GetByOrderID(42, 10)
			Expect(txs).To(HaveLen(1))
			Expect(txs[0].Status).To(Equal(transactionDatamodel.StatusError))
			Expect(*txs[0].ErrorMessage).To(ContainSubstring("gateway timeout"))
			Expect(txs[0].HostedCheckoutID).To(BeNil())
		})
	})

	Describe("TransactionsForOrder", func() {
		It("should clamp pathological limits to the default", func() {
			for i := 0; i < 3; i++ {
				result, err := service.CreateCheckout(ctx, 42, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(result).NotTo(BeNil())
			}

			views, err := service.TransactionsForOrder(42, -5)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(3))
		})
	})
})
