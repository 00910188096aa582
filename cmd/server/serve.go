package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/api"
	"github.com/nhanzalone1/echo-app-sub000/internal/auth"
	"github.com/nhanzalone1/echo-app-sub000/internal/config"
	"github.com/nhanzalone1/echo-app-sub000/internal/mode"
	"github.com/nhanzalone1/echo-app-sub000/internal/session"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

const shutdownGrace = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger, err := internal.BuildLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorf("storage: close: %v", err)
		}
	}()

	if cfg.Env == "development" {
		if err := seedDemoUser(ctx, store, cfg.AuthToken); err != nil {
			return fmt.Errorf("seed demo user: %w", err)
		}
	}

	state, err := storage.NewFileStateStore(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("state dir: %w", err)
	}

	sessions := session.NewManager(session.Options{
		Profiles:       store,
		Missions:       store,
		State:          state,
		Clock:          mode.SystemClock{Location: cfg.Location()},
		Logger:         logger,
		TickInterval:   cfg.TickInterval,
		ArchiveTimeout: cfg.ArchiveTimeout,
		TapThreshold:   cfg.TapThreshold,
		TapWindow:      cfg.TapWindow,
	})

	var provider auth.Provider
	if cfg.Env == "development" {
		provider = auth.NewLocalAuthProvider(store, logger)
	} else {
		provider = auth.NewRemoteAuthProvider(cfg.AuthServiceURL, logger)
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewApp(logger, store, sessions), auth.AuthMiddleware(provider, cfg))

	// Open SSE streams end when the server starts shutting down.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server running on %s (storage=%s, env=%s)", cfg.ListenAddr, cfg.DBType, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace+cfg.ArchiveTimeout)
		defer cancel()
		srvErr := srv.Shutdown(shutdownCtx)
		return errors.Join(srvErr, sessions.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

// openStore opens the configured backend and applies the schema where the
// backend has one.
func openStore(ctx context.Context, cfg *config.Config, logger internal.Logger) (storage.Store, error) {
	if cfg.DBType == "file" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
	}
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	if m, ok := store.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return store, nil
}

type migrator interface {
	Migrate(ctx context.Context) error
}

func seedDemoUser(ctx context.Context, users storage.UserRepository, token string) error {
	_, err := users.GetUserByToken(ctx, token)
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return users.SaveUser(ctx, &internal.User{ID: "u1", Token: token, Name: "Demo User"})
}
