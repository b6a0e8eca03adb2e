package payment_test

import (
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	orderDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/order"
	transactionDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/transaction"
	"github.com/emmanuelnurit/cawl-gateway/internal/gateway"
	paymentPkg "github.com/emmanuelnurit/cawl-gateway/internal/payment"
)

var _ = Describe("Poller", func() {
	var (
		repo       *mockTransactionRepository
		orders     *mockOrderAPI
		gatewayAPI *mockGatewayAPI
		service    *paymentPkg.PaymentService
		poller     *paymentPkg.Poller
	)

	BeforeEach(func() {
		repo = newMockTransactionRepository()
		orders = newMockOrderAPI(testOrder())
		gatewayAPI = &mockGatewayAPI{
			checkoutStatus: &gateway.HostedCheckoutStatus{
				Status: "PAYMENT_CREATED",
				CreatedPaymentOutput: &gateway.CreatedPaymentOutput{
					Payment: &gateway.Payment{ID: "P1", Status: "CAPTURED"},
				},
			},
		}
		verifier := paymentPkg.NewSignatureVerifier("whsec_test", false, slog.Default())
		service = paymentPkg.NewPaymentService(gatewayAPI, repo, orders, verifier, nil, paymentPkg.ServiceConfig{
			ReturnURL: "https://shop.example.test/api/v1/payment/return",
			Locale:    "fr_FR",
		}, slog.Default())

		poller = paymentPkg.NewPoller(service, paymentPkg.PollerConfig{
			PollInterval: 10 * time.Millisecond,
			StaleAfter:   time.Millisecond,
			BatchSize:    10,
			MaxWorkers:   2,
		}, slog.Default())
	})

	AfterEach(func() {
		poller.Shutdown()
	})

	It("should sweep a stale pending transaction and confirm the paid order", func() {
		checkoutID := "hc-stale-1"
		Expect(repo.Create(&transactionDatamodel.Transaction{
			OrderID:          42,
			HostedCheckoutID: &checkoutID,
			AmountCents:      5000,
			Currency:         "EUR",
			Status:           transactionDatamodel.StatusPending,
		})).To(Succeed())

		poller.Start()

		Eventually(func() string {
			ord, err := orders.GetByID(42)
			if err != nil {
				return ""
			}
			return ord.Status
		}, time.Second, 10*time.Millisecond).Should(Equal(orderDatamodel.StatusPaid))

		Eventually(func() string {
			tx, err := repo.GetByHostedCheckoutID("hc-stale-1")
			if err != nil {
				return ""
			}
			return tx.Status
		}, time.Second, 10*time.Millisecond).Should(Equal(transactionDatamodel.StatusCaptured))
	})

	It("should leave unpaid outcomes alone", func() {
		gatewayAPI.checkoutStatus.CreatedPaymentOutput.Payment.Status = "REJECTED"

		checkoutID := "hc-stale-2"
		Expect(repo.Create(&transactionDatamodel.Transaction{
			OrderID:          42,
			HostedCheckoutID: &checkoutID,
			AmountCents:      5000,
			Currency:         "EUR",
			Status:           transactionDatamodel.StatusPending,
		})).To(Succeed())

		poller.Start()

		Eventually(func() string {
			tx, err := repo.GetByHostedCheckoutID("hc-stale-2")
			if err != nil {
				return ""
			}
			return tx.Status
		}, time.Second, 10*time.Millisecond).Should(Equal(transactionDatamodel.StatusRejected))

		ord, _ := orders.GetByID(42)
		Expect(ord.Status).To(Equal(orderDatamodel.StatusNew))
	})

	It("should shut down cleanly even when called immediately after Start", func() {
		// Shutdown waits on goroutines registered in Start; repeated
		// tight cycles surface any late registration under the race
		// detector.
		for i := 0; i < 200; i++ {
			p := paymentPkg.NewPoller(service, paymentPkg.PollerConfig{
				PollInterval: 10 * time.Millisecond,
				StaleAfter:   time.Millisecond,
				BatchSize:    10,
				MaxWorkers:   2,
			}, slog.Default())

			p.Start()
			p.Shutdown()
		}
	})
})
