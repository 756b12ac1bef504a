package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	appAuth "github.com/Zhima-Mochi/minishop-storefront/internal/application/auth"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/checkout"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
)

const internalErrorMessage = "internal server error"

// statusFor maps an application error class to its HTTP status.
func statusFor(err error) int {
	var validation *application.ValidationError
	switch {
	case errors.As(err, &validation), errors.Is(err, application.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, appAuth.ErrInvalidCredentials), errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrNotAvailable),
		errors.Is(err, application.ErrInsufficientStock),
		errors.Is(err, application.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage is the text placed in the error body. Internal failures are
// opaque unless the handler runs in development mode.
func (h *Handler) clientMessage(status int, err error) string {
	var validation *application.ValidationError
	var stock *application.InsufficientStockError
	switch {
	case errors.As(err, &validation):
		return validation.Msg
	case errors.As(err, &stock):
		return stock.Error()
	case errors.Is(err, appAuth.ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, identity.ErrUnauthenticated):
		return "not authorized"
	case errors.Is(err, identity.ErrForbidden):
		return "not authorized as admin"
	case errors.Is(err, checkout.ErrInvalidSignature):
		return "webhook error: invalid signature"
	case status == http.StatusNotFound:
		return lastSegment(err.Error())
	case status == http.StatusBadRequest:
		return lastSegment(err.Error())
	case status == http.StatusBadGateway:
		if h.opts.Development {
			return err.Error()
		}
		return "upstream service unavailable"
	}
	if h.opts.Development {
		return err.Error()
	}
	return internalErrorMessage
}

// lastSegment drops the "package: " prefixes that wrapping adds.
func lastSegment(msg string) string {
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logctx.FromOr(r.Context(), h.log).Error("http_request_failed",
			observability.F("route", routeFromContext(r.Context())),
			observability.F("status", status),
			observability.F("error", err.Error()),
		)
	}
	writeError(w, status, h.clientMessage(status, err))
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return application.Invalidf("invalid request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
