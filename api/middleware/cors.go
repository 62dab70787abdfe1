package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:4200",
}

// CORS applies the allowed-origin policy. The frontend URL is always allowed.
func CORS(origins []string, frontendURL string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins)+1)
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = append(allowed, defaultCORSOrigins...)
	}
	if f := strings.TrimRight(strings.TrimSpace(frontendURL), "/"); f != "" {
		allowed = append(allowed, f)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id", "Stripe-Signature"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
