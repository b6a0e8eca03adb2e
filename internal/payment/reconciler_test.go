package payment_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emmanuelnurit/cawl-gateway/internal"
	orderDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/order"
	transactionDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/transaction"
	"github.com/emmanuelnurit/cawl-gateway/internal/gateway"
	paymentPkg "github.com/emmanuelnurit/cawl-gateway/internal/payment"
)

func capturedWebhookBody(paymentID, merchantRef string) []byte {
	body, _ := json.Marshal(map[string]any{
		"type": "payment.captured",
		"payment": map[string]any{
			"id":     paymentID,
			"status": "CAPTURED",
			"statusOutput": map[string]any{
				"statusCode": 9,
			},
			"paymentOutput": map[string]any{
				"references": map[string]any{
					"merchantReference": merchantRef,
				},
			},
		},
	})
	return body
}

var _ = Describe("Reconciliation", func() {
	var (
		repo       *mockTransactionRepository
		orders     *mockOrderAPI
		gatewayAPI *mockGatewayAPI
		service    *paymentPkg.PaymentService
		verifier   *paymentPkg.SignatureVerifier
		ctx        context.Context
		secret     string
		pendingTx  *transactionDatamodel.Transaction
	)

	BeforeEach(func() {
		ctx = context.Background()
		secret = "whsec_test"
		repo = newMockTransactionRepository()
		orders = newMockOrderAPI(testOrder())
		gatewayAPI = &mockGatewayAPI{}
		verifier = paymentPkg.NewSignatureVerifier(secret, true, slog.Default())
		service = paymentPkg.NewPaymentService(gatewayAPI, repo, orders, verifier, nil, paymentPkg.ServiceConfig{
			ReturnURL: "https://shop.example.test/api/v1/payment/return",
			Locale:    "fr_FR",
		}, slog.Default())

		checkoutID := "hc-abc-123"
		pendingTx = &transactionDatamodel.Transaction{
			OrderID:          42,
			HostedCheckoutID: &checkoutID,
			AmountCents:      5000,
			Currency:         "EUR",
			Status:           transactionDatamodel.StatusPending,
		}
		Expect(repo.Create(pendingTx)).To(Succeed())
	})

	Describe("ReconcileFromWebhook", func() {
		It("should apply a signed captured notification to the latest transaction", func() {
			body := capturedWebhookBody("P1", "REF-42")

			result, err := service.ReconcileFromWebhook(ctx, body, signBody(secret, body))

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.OrderID).To(Equal(int64(42)))
			Expect(result.Status).To(Equal(transactionDatamodel.StatusCaptured))
			Expect(result.IsPaid).To(BeTrue())
			Expect(result.TransactionRef).To(Equal("P1"))

			tx, _ := repo.GetByID(pendingTx.ID)
			Expect(tx.Status).To(Equal(transactionDatamodel.StatusCaptured))
			Expect(*tx.TransactionRef).To(Equal("P1"))
			Expect(*tx.StatusCode).To(Equal("9"))
		})

		It("should reject an unsigned notification without touching the transaction", func() {
			body := capturedWebhookBody("P1", "REF-42")

			result, err := service.ReconcileFromWebhook(ctx, body, "")

			Expect(err).To(MatchError(internal.ErrInvalidSignature))
			Expect(result.Success).To(BeFalse())
			Expect(result.Error).To(Equal("Invalid signature"))

			tx, _ := repo.GetByID(pendingTx.ID)
			Expect(tx.Status).To(Equal(transactionDatamodel.StatusPending))
			Expect(repo.updateCalls).To(Equal(0))
		})

		It("should reject a payload without a merchant reference", func() {
			body, _ := json.Marshal(map[string]any{
				"type": "payment.captured",
				"payment": map[string]any{
					"id":     "P1",
					"status": "CAPTURED",
				},
			})

			result, err := service.ReconcileFromWebhook(ctx, body, signBody(secret, body))

			Expect(err).To(MatchError(internal.ErrMissingWebhookFields))
			Expect(result.Error).To(Equal("Missing required fields"))
			Expect(repo.updateCalls).To(Equal(0))
		})

		It("should reject a payload without a payment id or status", func() {
			body, _ := json.Marshal(map[string]any{
				"type":    "payment.captured",
				"payment": map[string]any{"status": "CAPTURED"},
			})

			result, err := service.ReconcileFromWebhook(ctx, body, signBody(secret, body))

			Expect(err).To(MatchError(internal.ErrMissingWebhookFields))
			Expect(result.Error).To(Equal("Missing required fields"))
		})

		It("should reject a body that is not JSON", func() {
			body := []byte("definitely not json")

			result, err := service.ReconcileFromWebhook(ctx, body, signBody(secret, body))

			Expect(err).To(MatchError(internal.ErrMissingWebhookFields))
			Expect(result.Error).To(Equal("Missing required fields"))
		})

		It("should report transaction not found for an unknown merchant reference", func() {
			body := capturedWebhookBody("P1", "REF-DOES-NOT-EXIST")

			result, err := service.ReconcileFromWebhook(ctx, body, signBody(secret, body))

			Expect(err).To(MatchError(internal.ErrTransactionNotFound))
			Expect(result.Error).To(Equal("Transaction not found"))
			Expect(repo.updateCalls).To(Equal(0))
		})

		It("should propagate a storage failure instead of reporting transaction not found", func() {
			orders.getError = fmt.Errorf("connection reset by peer")
			body := capturedWebhookBody("P1", "REF-42")

			result, err := service.ReconcileFromWebhook(ctx, body, signBody(secret, body))

			Expect(result).To(BeNil())
			Expect(err).To(MatchError(orders.getError))
			Expect(repo.updateCalls).To(Equal(0))
		})

		It("should resolve to the most recent transaction of the order", func() {
			checkoutID := "hc-later-456"
			later := &transactionDatamodel.Transaction{
				OrderID:          42,
				HostedCheckoutID: &checkoutID,
				AmountCents:      5000,
				Currency:         "EUR",
				Status:           transactionDatamodel.StatusPending,
			}
			Expect(repo.Create(later)).To(Succeed())

			body := capturedWebhookBody("P2", "REF-42")
			result, err := service.ReconcileFromWebhook(ctx, body, signBody(secret, body))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())

			updated, _ := repo.GetByID(later.ID)
			Expect(updated.Status).To(Equal(transactionDatamodel.StatusCaptured))
			first, _ := repo.GetByID(pendingTx.ID)
			Expect(first.Status).To(Equal(transactionDatamodel.StatusPending))
		})

		It("should stay idempotent when the same notification is delivered twice", func() {
			body := capturedWebhookBody("P1", "REF-42")

			for i := 0; i < 2; i++ {
				result, err := service.ReconcileFromWebhook(ctx, body, signBody(secret, body))
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Success).To(BeTrue())
				Expect(service.ConfirmPayment(ctx, result.OrderID, result.TransactionRef)).To(Succeed())
			}

			tx, _ := repo.GetByID(pendingTx.ID)
			Expect(tx.Status).To(Equal(transactionDatamodel.StatusCaptured))
			Expect(orders.paidOrders[42]).To(Equal("P1"))
			ord, _ := orders.GetByID(42)
			Expect(ord.Status).To(Equal(orderDatamodel.StatusPaid))
			Expect(orders.markPaidCalls).To(Equal(2))
		})
	})

	Describe("ReconcileFromPoll", func() {
		BeforeEach(func() {
			gatewayAPI.checkoutStatus = &gateway.HostedCheckoutStatus{
				Status: "PAYMENT_CREATED",
				CreatedPaymentOutput: &gateway.CreatedPaymentOutput{
					Payment: &gateway.Payment{
						ID:     "P1",
						Status: "CAPTURED",
						StatusOutput: &gateway.StatusOutput{
							StatusCode: json.Number("9"),
						},
					},
				},
			}
		})

		It("should project the payment status onto the local transaction", func() {
			result, err := service.ReconcileFromPoll(ctx, "hc-abc-123")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Found).To(BeTrue())
			Expect(result.Status).To(Equal(transactionDatamodel.StatusCaptured))
			Expect(result.RawStatus).To(Equal("CAPTURED"))
			Expect(result.IsPaid).To(BeTrue())
			Expect(result.OrderID).To(Equal(int64(42)))
			Expect(result.PaymentID).To(Equal("P1"))

			tx, _ := repo.GetByID(pendingTx.ID)
			Expect(tx.Status).To(Equal(transactionDatamodel.StatusCaptured))
			Expect(*tx.TransactionRef).To(Equal("P1"))
		})

		It("should fall back to the checkout status when no payment was created yet", func() {
			gatewayAPI.checkoutStatus = &gateway.HostedCheckoutStatus{Status: "IN_PROGRESS"}

			result, err := service.ReconcileFromPoll(ctx, "hc-abc-123")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Status).To(Equal(transactionDatamodel.StatusPending))
			Expect(result.IsPaid).To(BeFalse())
			Expect(result.PaymentID).To(BeEmpty())
		})

		It("should return the gateway answer without persisting for an unknown checkout id", func() {
			result, err := service.ReconcileFromPoll(ctx, "hc-unknown-999")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Found).To(BeFalse())
			Expect(result.Status).To(Equal(transactionDatamodel.StatusCaptured))
			Expect(result.OrderID).To(BeZero())
			Expect(repo.updateCalls).To(Equal(0))
		})

		It("should surface a transaction lookup failure instead of skipping persistence", func() {
			repo.getError = fmt.Errorf("connection reset by peer")

			result, err := service.ReconcileFromPoll(ctx, "hc-abc-123")

			Expect(result).To(BeNil())
			Expect(err).To(MatchError(repo.getError))
			Expect(repo.updateCalls).To(Equal(0))
		})

		It("should mutate nothing when the gateway is unreachable", func() {
			gatewayAPI.statusError = fmt.Errorf("connection refused")

			result, err := service.ReconcileFromPoll(ctx, "hc-abc-123")

			Expect(result).To(BeNil())
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeGatewayUnavailable))

			tx, _ := repo.GetByID(pendingTx.ID)
			Expect(tx.Status).To(Equal(transactionDatamodel.StatusPending))
		})
	})

	Describe("ConfirmPayment", func() {
		It("should mark the order paid exactly once across racing confirmations", func() {
			Expect(service.ConfirmPayment(ctx, 42, "P1")).To(Succeed())
			Expect(service.ConfirmPayment(ctx, 42, "P1")).To(Succeed())

			ord, _ := orders.GetByID(42)
			Expect(ord.Status).To(Equal(orderDatamodel.StatusPaid))
			Expect(orders.paidOrders[42]).To(Equal("P1"))
			Expect(orders.markPaidCalls).To(Equal(2))
		})
	})
})
