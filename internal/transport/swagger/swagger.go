package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// UI serves the Swagger browser pointed at the gateway's OpenAPI document.
func UI() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}

// Spec serves the raw OpenAPI document the UI loads.
func Spec(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, path)
	}
}
