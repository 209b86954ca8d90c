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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/roomiesplit/internal/auth"
	"github.com/mmynk/roomiesplit/internal/config"
	"github.com/mmynk/roomiesplit/internal/ledger"
	"github.com/mmynk/roomiesplit/internal/middleware"
	"github.com/mmynk/roomiesplit/internal/service"
	"github.com/mmynk/roomiesplit/internal/storage"
	"github.com/mmynk/roomiesplit/internal/storage/badgerstore"
	"github.com/mmynk/roomiesplit/internal/storage/sqlite"
	"github.com/mmynk/roomiesplit/pkg/api"
	"github.com/mmynk/roomiesplit/pkg/logging"
)

func main() {
	os.Exit(serve())
}

// serve runs the server and returns the process exit code. Deferred cleanup
// runs before main exits.
func serve() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	logger := logging.Setup(cfg.LogLevel)

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "storage", cfg.Storage, "error", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, store, logger); err != nil {
		slog.Error("Server failed", "error", err)
		return 1
	}
	return 0
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageBadger:
		store, err := badgerstore.Open(cfg.BadgerDir)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "storage", cfg.Storage, "dir", cfg.BadgerDir)
		return store, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "storage", cfg.Storage, "database", cfg.DBPath)
		return store, nil
	}
}

func run(ctx context.Context, cfg *config.Config, store storage.Store, logger *slog.Logger) error {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)

	registry := ledger.NewRegistry(store, cfg.MaxMembers)
	ledgerSvc := service.NewLedgerService(registry, ledger.NewLedger(store))
	authSvc := service.NewAuthService(auth.NewSignatureAuthenticator(cfg.LoginSkew), jwtManager, logger)

	mux := http.NewServeMux()

	// Register Connect services
	mux.Handle(api.NewLedgerServiceHandler(ledgerSvc, connect.WithInterceptors(
		metrics.Interceptor(),
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(),
	)))
	mux.Handle(api.NewAuthServiceHandler(authSvc, connect.WithInterceptors(
		metrics.Interceptor(),
		middleware.OptionalAuth(jwtManager),
		middleware.LoggingInterceptor(),
	)))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(middleware.HTTPLogging(middleware.CORS(mux)), &http2.Server{})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting",
			"address", server.Addr,
			"max_members", registry.MaxMembers(),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
