package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/easyshop-backend/api/responses"
	pkgAuth "github.com/angelmondragon/easyshop-backend/pkg/auth"
	"github.com/angelmondragon/easyshop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the principal.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			principal, err := Authenticate(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithPrincipal(ctx, principal.EntityID.String(), principal.Role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate turns a raw access token into a principal.
func Authenticate(cfg config.JWTConfig, token string) (Principal, error) {
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	entityID, err := claims.EntityID()
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token subject")
	}
	return Principal{EntityID: entityID, Role: claims.Role, Name: claims.Name}, nil
}

// BearerToken reads the Authorization header, tolerating a missing scheme.
func BearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
