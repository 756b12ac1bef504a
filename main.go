package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appAuth "github.com/Zhima-Mochi/minishop-storefront/internal/application/auth"
	appCart "github.com/Zhima-Mochi/minishop-storefront/internal/application/cart"
	appCatalog "github.com/Zhima-Mochi/minishop-storefront/internal/application/catalog"
	appCheckout "github.com/Zhima-Mochi/minishop-storefront/internal/application/checkout"
	"github.com/Zhima-Mochi/minishop-storefront/internal/config"
	domcart "github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	domcatalog "github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	domcheckout "github.com/Zhima-Mochi/minishop-storefront/internal/domain/checkout"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/media"
	domuser "github.com/Zhima-Mochi/minishop-storefront/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/export"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/redisledger"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/s3"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/security"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/stripe"
	"github.com/Zhima-Mochi/minishop-storefront/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-storefront/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-storefront/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// stores bundles the persistence adapters selected by configuration.
type stores struct {
	products domcatalog.Repository
	carts    domcart.Repository
	users    domuser.Repository
	ledger   domcheckout.Ledger
	images   media.ImageStore
	// media serves in-memory uploads; nil when images live in S3.
	media http.Handler

	closers []func() error
}

func (s *stores) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.Service.Name,
		Env:     cfg.Service.Env,
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
		Env:         cfg.Service.Env,
		Exporter:    cfg.Telemetry.Exporter,
	})
	if err != nil {
		systemLogger.Fatal("telemetry_setup_failed", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tel := infraobs.New(
		oteltrace.New(cfg.Service.Name),
		zaplogger.New(baseLogger),
		prometrics.Instruments(prometrics.New(registry, "", "")),
	)
	logger := tel.Logger()

	st, err := openStores(ctx, cfg)
	if err != nil {
		systemLogger.Fatal("storage_setup_failed", zap.Error(err))
	}
	systemLogger.Info("storage_ready",
		zap.String("driver", cfg.Store.Driver),
		zap.Bool("redis_ledger", cfg.Redis.Addr != ""),
		zap.Bool("s3_media", cfg.Media.Bucket != ""),
	)

	ids := id.NewGenerator()
	tokens, err := security.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		systemLogger.Fatal("token_issuer_setup_failed", zap.Error(err))
	}
	provider := stripe.NewClient(stripe.Config{
		SecretKey: cfg.Stripe.SecretKey,
		BaseURL:   cfg.Stripe.BaseURL,
		Timeout:   cfg.Stripe.Timeout,
		Logger:    baseLogger.Named("stripe"),
	})
	verifier := stripe.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)

	// In-memory event bus; the catalog worker consumes post-checkout events.
	bus := outbox.NewBus(logger, outbox.Options{})
	bus.Start(ctx)

	catalogWorker := appCatalog.NewWorker(workerpresentation.Instrument(bus, logger, "catalog"), tel)
	catalogWorker.Start()

	services := httppresentation.Services{
		Auth: appAuth.NewService(st.users, security.BcryptHasher{}, tokens, st.images, ids,
			appAuth.Options{AdminEmail: cfg.Auth.AdminEmail}, tel),
		Catalog: appCatalog.NewService(st.products, st.images, export.NewXLSXExporter(), ids, tel),
		Cart:    appCart.NewService(st.carts, st.products, ids, tel),
		CreateCheckout: appCheckout.NewCreateSessionUseCase(st.carts, st.products, provider,
			appCheckout.Options{FrontendURL: cfg.Checkout.FrontendURL, Currency: cfg.Checkout.Currency}, tel),
		Webhook: appCheckout.NewHandleWebhookUseCase(verifier, st.ledger, st.carts, st.products, bus, tel),
	}

	dev := cfg.IsDevelopment()
	handler := httppresentation.NewHandler(services, httppresentation.Options{
		Development:    dev,
		CookieSecure:   !dev,
		TokenTTL:       cfg.Auth.TokenTTL,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
	}, logger, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	if st.media != nil {
		mux.Handle("/media/", http.StripPrefix("/media/", st.media))
	}
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: mux,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.Service.Env),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}

	bus.Stop(shutdownCtx)
	if err := st.close(); err != nil {
		systemLogger.Error("storage_close_error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		systemLogger.Error("telemetry_shutdown_error", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	st := &stores{}

	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, postgres.Config{DSN: cfg.Store.DatabaseURL})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() error { return postgres.Close(db) })
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = st.close()
			return nil, err
		}
		st.products = postgres.NewProductRepository(db)
		st.carts = postgres.NewCartRepository(db)
		st.users = postgres.NewUserRepository(db)
	default:
		st.products = memory.NewProductRepository()
		st.carts = memory.NewCartRepository()
		st.users = memory.NewUserRepository()
	}

	if cfg.Redis.Addr != "" {
		client, err := redisledger.Connect(ctx, redisledger.ClientOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = st.close()
			return nil, err
		}
		st.closers = append(st.closers, client.Close)
		st.ledger = redisledger.NewLedger(client, redisledger.LedgerConfig{
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
	} else {
		st.ledger = memory.NewLedger()
	}

	if cfg.Media.Bucket != "" {
		images, err := s3.New(ctx, s3.Config{
			Bucket: cfg.Media.Bucket,
			Region: cfg.Media.Region,
			Prefix: cfg.Media.Prefix,
		}, id.NewGenerator().NewID)
		if err != nil {
			_ = st.close()
			return nil, err
		}
		st.images = images
	} else {
		images := memory.NewImageStore(cfg.Media.BaseURL)
		st.images = images
		st.media = images
	}

	return st, nil
}
