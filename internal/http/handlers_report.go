package http

import (
	"bytes"
	"net/http"
	"strconv"

	"churchadmin/internal/amqp"
	"churchadmin/internal/log"
	"churchadmin/internal/metrics"
	"churchadmin/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleReportXLSX downloads the records matching the list search as a
// workbook.
func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	sheet, err := report.Collect(r.Context(), cachedSearcher{s}, kind, searchQueryFrom(r.URL.Query()), report.DefaultPageSize)
	if err != nil {
		metrics.RecordReportExport(string(kind), "xlsx", "error")
		s.backendFailed(w, r, err, log.OpExport)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteSheetXLSX(&buf, sheet); err != nil {
		metrics.RecordReportExport(string(kind), "xlsx", "error")
		log.FromContext(r.Context()).WithComponent(log.ComponentReport).ErrorContext(r.Context(),
			"Workbook generation failed", log.FieldError, err)
		InternalServerError("The report could not be generated").Write(w)
		return
	}
	metrics.RecordReportExport(string(kind), "xlsx", "success")

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(sheet)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleReportSheets queues a spreadsheet export for the worker.
func (s *Server) handleReportSheets(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	if s.reports == nil {
		NewHTMXResponse().
			Status(http.StatusServiceUnavailable).
			TriggerWarningNotification("Spreadsheet exports are not configured.").
			NoSwap().
			Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	q := searchQueryFrom(r.Form)
	msg := amqp.NewReportRequest(kind, sessionFrom(r).Email)
	msg.Status = q.Status
	msg.Term = q.Term
	msg.Filters = q.Filters

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentReport)
	if err := s.reports.PublishReport(r.Context(), msg); err != nil {
		logger.ErrorContext(r.Context(), "Report request not queued", "report_id", msg.ID, log.FieldError, err)
		NewHTMXResponse().
			Status(http.StatusBadGateway).
			TriggerErrorNotification("The export could not be queued. Try again later.").
			NoSwap().
			Write(w)
		return
	}
	logger.InfoContext(r.Context(), "Report request queued", "report_id", msg.ID)
	NewHTMXResponse().
		Status(http.StatusAccepted).
		TriggerSuccessNotification(kind.Plural() + " export queued. The spreadsheet updates in a few minutes.").
		NoSwap().
		Write(w)
}
