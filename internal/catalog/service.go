package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/emmanuelnurit/cawl-gateway/internal/gateway"
)

// ProductsAPI is the slice of the gateway client the catalogue needs.
type ProductsAPI interface {
	GetPaymentProducts(ctx context.Context, countryCode, currencyCode string) (*gateway.PaymentProductsResponse, error)
}

// Service fetches the merchant's enabled payment products for display,
// caching results per country and currency. The catalogue never sits on the
// payment-critical path: any failure yields an empty list.
type Service struct {
	api    ProductsAPI
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewService(api ProductsAPI, cache Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		api:    api,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

type Product struct {
	ID      int32  `json:"id"`
	Name    string `json:"name"`
	Method  string `json:"method"`
	LogoURL string `json:"logo_url,omitempty"`
}

func (s *Service) PaymentProducts(ctx context.Context, countryCode, currencyCode string) []Product {
	key := fmt.Sprintf("cawl:products:%s:%s", countryCode, currencyCode)

	if cached, ok := s.cache.Get(ctx, key); ok {
		var products []Product
		if err := json.Unmarshal(cached, &products); err == nil {
			return products
		}
		s.logger.Warn("discarding corrupt catalogue cache entry", "key", key)
	}

	resp, err := s.api.GetPaymentProducts(ctx, countryCode, currencyCode)
	if err != nil {
		s.logger.Warn("payment products fetch failed, returning empty catalogue",
			"country", countryCode,
			"currency", currencyCode,
			"error", err)
		return nil
	}

	products := make([]Product, 0, len(resp.PaymentProducts))
	for _, p := range resp.PaymentProducts {
		name := p.DisplayHints.Label
		if name == "" {
			name = ProductName(p.ID)
		}
		products = append(products, Product{
			ID:      p.ID,
			Name:    name,
			Method:  p.PaymentMethod,
			LogoURL: p.DisplayHints.LogoURL,
		})
	}

	if data, err := json.Marshal(products); err == nil {
		s.cache.Set(ctx, key, data, s.ttl)
	}

	return products
}
