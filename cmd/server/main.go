package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/norahq/nora/internal/auth"
	"github.com/norahq/nora/internal/config"
	"github.com/norahq/nora/internal/middleware"
	"github.com/norahq/nora/internal/observability/metrics"
	"github.com/norahq/nora/internal/observability/tracing"
	"github.com/norahq/nora/internal/service"
	"github.com/norahq/nora/internal/storage/backend"
	"github.com/norahq/nora/pkg/api"
	"github.com/norahq/nora/pkg/logging"
)

const serviceName = "nora"

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting nora", "environment", cfg.Environment, "backend", cfg.Store.Backend)

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, logger, serviceName, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("Failed to shut down tracing", "error", err)
		}
	}()

	rawStore, err := backend.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	store := metrics.InstrumentStore(tracing.TraceStore(rawStore, cfg.Store.Backend), cfg.Store.Backend, logger)
	defer store.Close()

	users := auth.NewStoreUsers(store)
	authenticator := auth.NewPasswordAuthenticator(users)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// Auth runs first so the logging interceptor sees the user id.
	opts := []connect.HandlerOption{
		connect.WithInterceptors(
			middleware.RequireAuth(jwtManager, api.PublicProcedures...),
			middleware.LoggingInterceptor(logger),
		),
	}

	mux := http.NewServeMux()
	services := []service.Registrar{
		service.NewAuthService(authenticator, users, jwtManager, logger),
		service.NewContactService(store, logger),
		service.NewInvoiceService(store, logger),
		service.NewExpenseService(store, logger),
		service.NewTimeService(store, logger),
		service.NewCalendarService(store, logger),
	}
	for _, svc := range services {
		svc.Register(mux, opts...)
	}
	service.RegisterHealth(mux, store, cfg.Store.Backend, logger)
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = metrics.HTTPMetricsMiddleware(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.CORS(cfg.CORSAllowedOrigins)(handler)
	handler = otelhttp.NewHandler(handler, serviceName)

	// h2c serves HTTP/2 without TLS, which gRPC clients need.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
