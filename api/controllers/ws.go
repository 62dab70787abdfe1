package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/easyshop-backend/api/middleware"
	"github.com/angelmondragon/easyshop-backend/api/responses"
	"github.com/angelmondragon/easyshop-backend/internal/presence"
	"github.com/angelmondragon/easyshop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

type SocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, principal presence.Principal) error
}

// PresenceSocket authenticates before upgrading. Browsers cannot set headers
// on websocket requests, so the token may come from the query string.
func PresenceSocket(hub SocketServer, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "presence hub unavailable"))
			return
		}
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			token = middleware.BearerToken(r)
		}
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		principal, err := middleware.Authenticate(cfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPrincipal(ctx, principal.EntityID.String(), principal.Role.String())
		}
		// Serve blocks until the socket closes. Upgrade failures have already
		// been answered by the upgrader.
		if err := hub.Serve(w, r.WithContext(ctx), presence.Principal{
			EntityID: principal.EntityID.String(),
			Role:     principal.Role,
		}); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "presence socket ended")
		}
	}
}
