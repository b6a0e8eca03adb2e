package middleware

import (
	"net/http"

	"github.com/emmanuelnurit/cawl-gateway/pkg/logger"

	"github.com/google/uuid"
)

// RequestID assigns a trace id to every request and echoes it back, so a
// failed checkout can be correlated across the storefront, this service and
// the gateway's webhook redeliveries. Callers may supply their own id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.WithTrace(r.Context(), traceID)
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
