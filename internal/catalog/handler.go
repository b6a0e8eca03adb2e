package catalog

import (
	"log/slog"
	"net/http"

	"github.com/emmanuelnurit/cawl-gateway/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
	logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
		logger:      logger,
	}
}

// PaymentProducts handles GET /api/v1/payment/products. The list is
// cosmetic; an empty array is a valid answer when the gateway is down.
func (h *Handler) PaymentProducts(w http.ResponseWriter, r *http.Request) {
	countryCode := r.URL.Query().Get("country")
	if countryCode == "" {
		countryCode = "FR"
	}
	currencyCode := r.URL.Query().Get("currency")
	if currencyCode == "" {
		currencyCode = "EUR"
	}

	products := h.service.PaymentProducts(r.Context(), countryCode, currencyCode)
	if products == nil {
		products = []Product{}
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"country":  countryCode,
		"currency": currencyCode,
		"products": products,
	})
}

// Methods handles GET /api/v1/payment/methods, the built-in method table
// used by storefront configuration screens.
func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	methods := Methods(category)
	if methods == nil {
		methods = []Method{}
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"methods": methods,
	})
}
