// Command bookshelf-server serves the book catalog over HTTP.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/config"
	"github.com/and161185/bookshelf/internal/migrate"
	"github.com/and161185/bookshelf/internal/repository"
	"github.com/and161185/bookshelf/internal/repository/memory"
	"github.com/and161185/bookshelf/internal/repository/postgres"
	grpcserver "github.com/and161185/bookshelf/internal/server/grpc"
	httpserver "github.com/and161185/bookshelf/internal/server/http"
	"github.com/and161185/bookshelf/internal/service"
	"github.com/and161185/bookshelf/internal/session"
	"github.com/and161185/bookshelf/internal/view"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

type store struct {
	users repository.UserRepository
	books repository.BookRepository
	ping  grpcserver.Pinger
	close func()
}

// openStore runs migrations and connects to PostgreSQL, or falls back to the
// in-memory store when no DSN is configured.
func openStore(ctx context.Context, dsn string, logger *zap.Logger) (*store, error) {
	if dsn == "" {
		logger.Warn("no database DSN, using in-memory store")
		m := memory.New()
		return &store{users: m.Users(), books: m.Books(), ping: m, close: func() {}}, nil
	}

	if err := migrate.Up(ctx, dsn); err != nil {
		return nil, err
	}
	db, err := postgres.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &store{
		users: postgres.NewUserRepo(db),
		books: postgres.NewBookRepo(db),
		ping:  db,
		close: db.Close,
	}, nil
}

// main loads configuration, opens the store and serves HTTP plus the gRPC health endpoint.
func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	var logger *zap.Logger
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTPAddr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer st.close()

	sessions, err := session.NewManager([]byte(cfg.SessionSecret), cfg.SessionTTL)
	if err != nil {
		logger.Fatal("session manager", zap.Error(err))
	}
	pages, err := view.New()
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}

	// Services
	authSvc := service.NewAuthService(st.users)
	catalogSvc := service.NewCatalogService(st.books)

	h := httpserver.NewHandler(authSvc, catalogSvc, sessions, pages, logger, cfg.SecureCookies)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpserver.NewRouter(h, cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening (HTTP)", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Health
	health := grpcserver.NewHealth(st.ping, logger)
	go health.Run(ctx, cfg.ProbeInterval)
	gs := grpcserver.New(health, logger)
	if cfg.HealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.HealthAddr)
		if err != nil {
			logger.Fatal("listen", zap.Error(err))
		}
		go func() {
			logger.Info("listening (gRPC health)", zap.String("addr", cfg.HealthAddr))
			errCh <- gs.Serve(lis)
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	// graceful shutdown
	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		gs.Stop()
	}

	logger.Info("shutdown complete")
}
