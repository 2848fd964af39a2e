package main

import (
	"context"
	"errors"
	"os"
	"time"

	"churchadmin/internal/amqp"
	"churchadmin/internal/cli"
	"churchadmin/internal/log"
	"churchadmin/internal/report"
	"churchadmin/internal/sheets"
	gsheet "churchadmin/internal/sheets/google"
	memsheet "churchadmin/internal/sheets/memory"
	"churchadmin/internal/worker"
)

func main() {
	cfg := cli.MustLoadConfig()
	logger, closer := cli.SetupLogger(cfg, log.ComponentWorker)
	defer closer.Close()

	logger.Info("Starting console-worker")

	res, err := cli.InitBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	var tabs sheets.TabWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger.WithComponent(log.ComponentSheets).Slog())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		tabs = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		tabs = memsheet.New()
		logger.Warn("Google Sheets not configured, exports are kept in memory")
	}

	reports := worker.NewReportWorker(res.Backend, report.NewTabExporter(tabs), report.DefaultPageSize,
		logger.WithComponent(log.ComponentWorker).Slog())

	// Every job runs with a fresh token so a long-lived worker never holds
	// an expired one.
	authed := func(ctx context.Context) (context.Context, error) {
		return cli.Authenticate(ctx, cfg, res.Backend)
	}
	handle := func(ctx context.Context, msg *amqp.ReportRequest) error {
		ctx, err := authed(ctx)
		if err != nil {
			return err
		}
		return reports.Handle(ctx, msg)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	sched, err := worker.NewScheduler(cfg.ReportCron, reports, func() context.Context {
		runCtx, err := authed(ctx)
		if err != nil {
			logger.Error("Nightly export login failed", log.FieldError, err)
			return ctx
		}
		return runCtx
	}, logger.WithComponent(log.ComponentWorker).Slog())
	if err != nil {
		logger.Error("Invalid report schedule", log.FieldError, err, "cron", cfg.ReportCron)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()
	logger.Info("Nightly export scheduled", "cron", cfg.ReportCron)

	if cfg.AMQPURL == "" {
		logger.Info("AMQP_URL not set, only the nightly export runs")
		cli.WaitForShutdown(ctx, done)
		return
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.ConsumeReports(ctx, handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		return
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
