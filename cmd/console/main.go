package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"churchadmin/internal/amqp"
	"churchadmin/internal/cli"
	"churchadmin/internal/form"
	apphttp "churchadmin/internal/http"
	"churchadmin/internal/log"
)

func main() {
	cfg := cli.MustLoadConfig()
	logger, closer := cli.SetupLogger(cfg, log.ComponentApp)
	defer closer.Close()

	ctx := context.Background()
	res, err := cli.InitBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	// Spreadsheet exports are queued for the worker. Without a broker the
	// console still serves XLSX downloads.
	var reports apphttp.ReportPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		reports = client
		logger.Info("Report exports enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP_URL not set, spreadsheet exports disabled")
	}

	opts := apphttp.DefaultOptions()
	opts.Addr = ":" + cfg.Port
	opts.SessionTTL = cfg.SessionTTL
	opts.FormTTL = cfg.FormTTL
	opts.CacheTTL = cfg.CacheTTL
	opts.CacheSize = cfg.CacheSize
	opts.RateLimitPerMinute = cfg.RateLimitPerMinute
	opts.SecureCookies = cfg.SecureCookies
	opts.Timings = form.Timings{
		ReenableAfter:     cfg.FormReenableDelay,
		AuthRedirectAfter: cfg.FormAuthRedirectDelay,
		ResetAfter:        cfg.FormResetDelay,
		NavigateAfter:     cfg.FormNavigateDelay,
		CloseDialogAfter:  cfg.FormDialogCloseDelay,
	}

	srv, err := apphttp.NewServer(opts, res.Backend, reports, logger)
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting console", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
