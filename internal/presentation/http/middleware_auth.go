package httppresentation

import (
	"context"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
)

const (
	cookieJWT  = "jwt"
	bearerAuth = "Bearer "
)

// withIdentity resolves the caller from the bearer token or the jwt cookie.
// Missing or rejected tokens leave the request as Guest; each use case
// decides whether Guest is acceptable.
func (h *Handler) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var who identity.Identity = identity.Guest{}

		if token := tokenFromRequest(r); token != "" && h.svc.Auth != nil {
			resolved, err := h.svc.Auth.Authenticate(ctx, token)
			if err != nil {
				logctx.FromOr(ctx, h.log).Debug("http_token_rejected", observability.F("error", err.Error()))
			} else {
				who = resolved
			}
		}

		ctx = identity.WithIdentity(ctx, who)
		if p, err := identity.RequireUser(who); err == nil {
			ctx, _ = logctx.Enrich(ctx, h.log, observability.F("user_id", p.ID))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminOnly rejects non-admin callers before the request body is read.
// The catalog service repeats the check.
func (h *Handler) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := identity.RequireAdmin(callerFrom(r.Context())); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		next(w, r)
	}
}

func tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); len(auth) > len(bearerAuth) && strings.EqualFold(auth[:len(bearerAuth)], bearerAuth) {
		return strings.TrimSpace(auth[len(bearerAuth):])
	}
	if c, err := r.Cookie(cookieJWT); err == nil {
		return c.Value
	}
	return ""
}

func callerFrom(ctx context.Context) identity.Identity {
	return identity.FromContext(ctx)
}
