package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/billbatista/zensplit/api"
	"github.com/billbatista/zensplit/config"
	"github.com/billbatista/zensplit/eventlogger"
	"github.com/billbatista/zensplit/ledger"
	"github.com/billbatista/zensplit/logging"
	"github.com/billbatista/zensplit/migrations"
	"github.com/billbatista/zensplit/otp"
	"github.com/billbatista/zensplit/payment"
	"github.com/billbatista/zensplit/session"
	"github.com/billbatista/zensplit/user"
	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		printErrorAndExit("loading config", err)
	}
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		printErrorAndExit("pinging database", err)
	}

	if cfg.Database.RunMigrations {
		if err := migrations.Up(ctx, db); err != nil {
			printErrorAndExit("running migrations", err)
		}
	}

	eventStore := eventlogger.NewSqlEventLogger(db)
	worker := eventlogger.NewWorker(eventStore, cfg.Events.BufferSize, logger)
	worker.Start()
	defer worker.Shutdown()

	userRepo := user.NewRepository(db)
	sessionRepo := session.NewRepository(db, cfg.Auth.SessionTTL)
	paymentRepo := payment.NewRepository(db)

	ledgerService := ledger.NewService(ledger.NewRepository(db), paymentRepo, logger)
	paymentService := payment.NewService(paymentRepo, userRepo, ledgerService, logger)

	otpStore := otp.NewStore(cfg.Auth.OTPTTL,
		otp.WithLength(cfg.Auth.OTPLength),
		otp.WithMaxAttempts(cfg.Auth.OTPAttempts),
		otp.WithLogger(logger),
	)
	go otpStore.Run(ctx, cfg.Auth.OTPSweepInt)
	go sweepSessions(ctx, sessionRepo, cfg.Auth.OTPSweepInt, logger)

	handlers := api.NewHandlers(api.Dependencies{
		Logger:        logger,
		DB:            db,
		Users:         userRepo,
		Sessions:      sessionRepo,
		OTP:           otpStore,
		OTPSender:     otp.LogSender{Logger: logger},
		Ledgers:       ledgerService,
		Payments:      paymentService,
		Events:        worker,
		History:       eventStore,
		EventStats:    worker,
		SecureCookies: cfg.HTTP.SecureCookies,
	})
	srv := api.NewServer(logger, cfg.HTTP, api.NewRouter(handlers, sessionRepo))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// sweepSessions removes expired sessions until ctx is done.
func sweepSessions(ctx context.Context, sessions session.Repository, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Error("failed to delete expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("deleted expired sessions", "count", n)
			}
		}
	}
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
