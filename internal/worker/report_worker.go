// Package worker runs report exports off the request path: jobs arrive over
// AMQP and a nightly schedule exports the offering ledgers.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"churchadmin/internal/amqp"
	"churchadmin/internal/core"
	"churchadmin/internal/metrics"
	"churchadmin/internal/report"
)

// ReportWorker exports the records matched by a ReportRequest to the
// configured spreadsheet.
type ReportWorker struct {
	repo     report.Searcher
	exporter report.Exporter
	pageSize int
	logger   *slog.Logger
}

func NewReportWorker(repo report.Searcher, exporter report.Exporter, pageSize int, logger *slog.Logger) *ReportWorker {
	if pageSize <= 0 {
		pageSize = report.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWorker{
		repo:     repo,
		exporter: exporter,
		pageSize: pageSize,
		logger:   logger.With("component", "worker"),
	}
}

// Handle processes one report request. It satisfies amqp.Handler.
func (w *ReportWorker) Handle(ctx context.Context, msg *amqp.ReportRequest) error {
	start := time.Now()
	w.logger.InfoContext(ctx, "Processing report request",
		"id", msg.ID,
		"kind", msg.Kind,
		"requested_by", msg.RequestedBy)

	ref, rows, err := w.export(ctx, msg.Kind, msg.Query())
	if err != nil {
		metrics.RecordReportExport(string(msg.Kind), "sheets", "error")
		return fmt.Errorf("report %s: %w", msg.ID, err)
	}
	metrics.RecordReportExport(string(msg.Kind), "sheets", "success")

	w.logger.InfoContext(ctx, "Report exported",
		"id", msg.ID,
		"kind", msg.Kind,
		"rows", rows,
		"range", ref,
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (w *ReportWorker) export(ctx context.Context, kind core.Kind, q core.SearchQuery) (string, int, error) {
	sheet, err := report.Collect(ctx, w.repo, kind, q, w.pageSize)
	if err != nil {
		return "", 0, err
	}
	ref, err := w.exporter.Export(ctx, sheet)
	if err != nil {
		return "", 0, err
	}
	return ref, len(sheet.Rows), nil
}
