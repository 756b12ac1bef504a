package httppresentation

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	appAuth "github.com/Zhima-Mochi/minishop-storefront/internal/application/auth"
	appCart "github.com/Zhima-Mochi/minishop-storefront/internal/application/cart"
	appCatalog "github.com/Zhima-Mochi/minishop-storefront/internal/application/catalog"
	appCheckout "github.com/Zhima-Mochi/minishop-storefront/internal/application/checkout"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"

	defaultMaxUploadBytes  = 32 << 20
	defaultMaxWebhookBytes = 1 << 20
)

// Services groups the application entry points the router dispatches to.
type Services struct {
	Auth           *appAuth.Service
	Catalog        *appCatalog.Service
	Cart           *appCart.Service
	CreateCheckout *appCheckout.CreateSessionUseCase
	Webhook        *appCheckout.HandleWebhookUseCase
}

type Options struct {
	// Development exposes internal error details in 500 responses.
	Development bool
	// CookieSecure marks the jwt cookie Secure and SameSite=None.
	CookieSecure    bool
	TokenTTL        time.Duration
	MaxUploadBytes  int64
	MaxWebhookBytes int64
}

type Handler struct {
	svc  Services
	opts Options
	log  observability.Logger
	tel  observability.Observability
}

func NewHandler(svc Services, opts Options, logger observability.Logger, tel observability.Observability) *Handler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = observability.NopLogger()
	}
	if tel == nil {
		tel = observability.Nop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MaxWebhookBytes <= 0 {
		opts.MaxWebhookBytes = defaultMaxWebhookBytes
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	return &Handler{
		svc:  svc,
		opts: opts,
		log:  baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:  tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	h.muxHandle(mux, http.MethodPost, "/api/auth/register", h.handleRegister)
	h.muxHandle(mux, http.MethodPost, "/api/auth/login", h.handleLogin)

	h.muxHandle(mux, http.MethodGet, "/api/products", h.handleListProducts)
	h.muxHandle(mux, http.MethodPost, "/api/products", h.adminOnly(h.handleCreateProduct))
	h.muxHandle(mux, http.MethodGet, "/api/products/export", h.adminOnly(h.handleExportProducts))
	h.muxHandle(mux, http.MethodGet, "/api/products/{slug}", h.handleGetProduct)
	h.muxHandle(mux, http.MethodPut, "/api/products/{id}", h.adminOnly(h.handleUpdateProduct))
	h.muxHandle(mux, http.MethodDelete, "/api/products/{id}", h.adminOnly(h.handleDeleteProduct))

	h.muxHandle(mux, http.MethodGet, "/api/cart", h.handleGetCart)
	h.muxHandle(mux, http.MethodPost, "/api/cart", h.handleAddToCart)
	h.muxHandle(mux, http.MethodDelete, "/api/cart", h.handleClearCart)
	h.muxHandle(mux, http.MethodPut, "/api/cart/{itemId}", h.handleUpdateCartItem)
	h.muxHandle(mux, http.MethodDelete, "/api/cart/{itemId}", h.handleRemoveCartItem)

	h.muxHandle(mux, http.MethodPost, "/api/checkout/create-checkout-session", h.handleCreateCheckoutSession)
	h.muxHandle(mux, http.MethodPost, "/api/checkout/webhook", h.handleWebhook)

	return mux
}

// muxHandle registers a method-qualified pattern. The pattern doubles as the
// low-cardinality route label for metrics, spans and access logs.
func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	pattern := method + " " + route
	// Trace → Request Logger → Identity → Access Log → Metrics → Handler
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			},
			func(r *http.Request) string {
				return r.Header.Get(headerTenantID)
			},
		)(
			h.withIdentity(
				h.withAccessLog(
					h.withHTTPMetrics(handler),
				),
			),
		),
	)
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), pattern)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("storefront.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := route
		if spanName == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}
		if template == "unknown" || template == "" {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r.WithContext(ctxWithSpan))
		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
// DO NOT new metrics inside the middleware.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	requests := h.tel.Metrics().Counter(observability.MHTTPRequests)
	durations := h.tel.Metrics().Histogram(observability.MHTTPRequestDuration)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		route := routeFromContext(r.Context())
		status := strconv.Itoa(lrw.status)
		requests.Add(1, observability.L("method", r.Method), observability.L("route", route), observability.L("status", status))
		durations.Observe(time.Since(start).Seconds(), observability.L("method", r.Method), observability.L("route", route), observability.L("status", status))
	})
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
