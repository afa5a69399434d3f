package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/familyhub/internal/backup"
	"github.com/dukerupert/familyhub/internal/bootstrap"
	"github.com/dukerupert/familyhub/internal/config"
	"github.com/dukerupert/familyhub/internal/logging"
	"github.com/dukerupert/familyhub/internal/middleware"
	"github.com/dukerupert/familyhub/internal/push"
	"github.com/dukerupert/familyhub/internal/server"
	"github.com/dukerupert/familyhub/internal/session"
	"github.com/dukerupert/familyhub/internal/state"
	ws "github.com/dukerupert/familyhub/internal/websocket"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter()
	deps := server.Deps{Limiter: limiter, Logger: logger}

	// Missing store parameters put the server in configuration-error mode:
	// it still serves, but every API call answers 503 naming them.
	if missing := cfg.Missing(); len(missing) > 0 {
		logger.Error("hub is not configured", "missing", missing)
		deps.Missing = missing
		serve(ctx, cfg, server.New(deps), logger)
		return
	}

	hubID, err := bootstrap.HubID(cfg)
	if err != nil {
		logger.Error("failed to load hub id", "error", err)
		os.Exit(1)
	}
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, hubID, logger)
	if err != nil {
		logger.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	hub := ws.NewHub(logger.With("component", "websocket"))
	deps.Hub = hub

	appOpts := []state.Option{
		state.WithHub(hub),
		state.WithSessionOptions(session.WithCheckInterval(cfg.AutoLockCheckInterval)),
	}

	var scheduler *push.Scheduler
	if cfg.VAPID.Enabled() {
		pushLogger := logger.With("component", "push")
		svc := push.NewService(cfg.VAPID.PublicKey, cfg.VAPID.PrivateKey, cfg.VAPID.Subscriber)
		scheduler = push.NewScheduler(svc, store, pushLogger, push.WithLead(cfg.ReminderLead))
		appOpts = append(appOpts, state.WithNotifier(push.NewNotifier(svc, store, pushLogger)))
		deps.Push = svc
		deps.Subscriptions = push.NewSubscriptions(store)
	} else {
		logger.Info("push notifications disabled: VAPID keys not set")
	}

	app := state.New(store, logger, appOpts...)
	deps.App = app

	backupMgr := backup.NewManager(backup.S3Config{
		Endpoint:  cfg.S3.Endpoint,
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	}, store, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"inProgress": s.InProgress,
				"error":      s.Error,
			},
		})
	}, logger, backup.WithSchedule(backup.Schedule{
		Passphrase:    cfg.BackupPassphrase,
		Hour:          cfg.BackupHour,
		RetentionDays: cfg.BackupRetentionDays,
	}))
	deps.Backup = backupMgr

	app.Start(ctx)
	defer app.Stop()

	readyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := app.WaitReady(readyCtx); err != nil {
		logger.Warn("collections not loaded yet, serving anyway", "error", err)
	}
	cancel()

	if scheduler != nil {
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}
	backupMgr.Start(ctx)
	defer backupMgr.Stop()
	limiter.Start(ctx, 10*time.Minute)
	defer limiter.Stop()

	serve(ctx, cfg, server.New(deps), logger)
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, cfg *config.Config, srv *server.Server, logger *slog.Logger) {
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("familyhub starting", "addr", cfg.Addr(), "backend", cfg.Backend)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
