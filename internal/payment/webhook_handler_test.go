package payment_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	orderDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/order"
	transactionDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/transaction"
	paymentPkg "github.com/emmanuelnurit/cawl-gateway/internal/payment"
	"github.com/emmanuelnurit/cawl-gateway/internal/transport"
)

var _ = Describe("WebhookHandler", func() {
	var (
		repo    *mockTransactionRepository
		orders  *mockOrderAPI
		service *paymentPkg.PaymentService
		handler *paymentPkg.WebhookHandler
		secret  string
	)

	postWebhook := func(body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/webhook", strings.NewReader(string(body)))
		if signature != "" {
			req.Header.Set(paymentPkg.SignatureHeader, signature)
		}
		recorder := httptest.NewRecorder()
		handler.HandleWebhook(recorder, req)
		return recorder
	}

	BeforeEach(func() {
		secret = "whsec_test"
		repo = newMockTransactionRepository()
		orders = newMockOrderAPI(testOrder())
		verifier := paymentPkg.NewSignatureVerifier(secret, true, slog.Default())
		service = paymentPkg.NewPaymentService(&mockGatewayAPI{}, repo, orders, verifier, nil, paymentPkg.ServiceConfig{
			ReturnURL: "https://shop.example.test/api/v1/payment/return",
			Locale:    "fr_FR",
		}, slog.Default())
		handler = paymentPkg.NewWebhookHandler(transport.NewBaseHandler(slog.Default()), service, slog.Default())

		checkoutID := "hc-abc-123"
		Expect(repo.Create(&transactionDatamodel.Transaction{
			OrderID:          42,
			HostedCheckoutID: &checkoutID,
			AmountCents:      5000,
			Currency:         "EUR",
			Status:           transactionDatamodel.StatusPending,
		})).To(Succeed())
	})

	It("should answer 200 and confirm the order for a signed captured notification", func() {
		body := capturedWebhookBody("P1", "REF-42")
		recorder := postWebhook(body, signBody(secret, body))

		Expect(recorder.Code).To(Equal(http.StatusOK))

		var result paymentPkg.ReconcileResult
		Expect(json.Unmarshal(recorder.Body.Bytes(), &result)).To(Succeed())
		Expect(result.Success).To(BeTrue())
		Expect(result.OrderID).To(Equal(int64(42)))
		Expect(result.Status).To(Equal(transactionDatamodel.StatusCaptured))
		Expect(result.IsPaid).To(BeTrue())
		Expect(result.TransactionRef).To(Equal("P1"))

		ord, _ := orders.GetByID(42)
		Expect(ord.Status).To(Equal(orderDatamodel.StatusPaid))
	})

	It("should answer 400 with a generic body for a bad signature", func() {
		body := capturedWebhookBody("P1", "REF-42")
		recorder := postWebhook(body, "bogus-signature")

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))

		var result paymentPkg.ReconcileResult
		Expect(json.Unmarshal(recorder.Body.Bytes(), &result)).To(Succeed())
		Expect(result.Success).To(BeFalse())
		Expect(result.Error).To(Equal("Invalid signature"))

		ord, _ := orders.GetByID(42)
		Expect(ord.Status).To(Equal(orderDatamodel.StatusNew))
	})

	It("should answer 400 for a missing signature header", func() {
		body := capturedWebhookBody("P1", "REF-42")
		recorder := postWebhook(body, "")

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		Expect(recorder.Body.String()).To(ContainSubstring("Invalid signature"))
	})

	It("should answer 400 for a payload missing required fields", func() {
		body, _ := json.Marshal(map[string]any{"type": "payment.captured"})
		recorder := postWebhook(body, signBody(secret, body))

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		Expect(recorder.Body.String()).To(ContainSubstring("Missing required fields"))
	})

	It("should answer 400 for an unresolvable merchant reference", func() {
		body := capturedWebhookBody("P1", "REF-UNKNOWN")
		recorder := postWebhook(body, signBody(secret, body))

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		Expect(recorder.Body.String()).To(ContainSubstring("Transaction not found"))
	})

	It("should answer 500 when confirmation cannot be persisted so delivery is retried", func() {
		orders.markPaidError = context.DeadlineExceeded

		body := capturedWebhookBody("P1", "REF-42")
		recorder := postWebhook(body, signBody(secret, body))

		Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
		Expect(recorder.Body.String()).To(ContainSubstring("Internal error"))
	})

	It("should not confirm the order for a non-paid outcome", func() {
		body, _ := json.Marshal(map[string]any{
			"type": "payment.rejected",
			"payment": map[string]any{
				"id":     "P1",
				"status": "REJECTED",
				"paymentOutput": map[string]any{
					"references": map[string]any{"merchantReference": "REF-42"},
				},
			},
		})
		recorder := postWebhook(body, signBody(secret, body))

		Expect(recorder.Code).To(Equal(http.StatusOK))

		var result paymentPkg.ReconcileResult
		Expect(json.Unmarshal(recorder.Body.Bytes(), &result)).To(Succeed())
		Expect(result.IsPaid).To(BeFalse())
		Expect(result.Status).To(Equal(transactionDatamodel.StatusRejected))

		ord, _ := orders.GetByID(42)
		Expect(ord.Status).To(Equal(orderDatamodel.StatusNew))
		Expect(orders.markPaidCalls).To(Equal(0))
	})
})
