package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	reportingdomain "github.com/timelens/timelens/internal/reporting/domain"
)

// ReportService builds reports and delivers the report email.
type ReportService interface {
	BuildReport(ctx context.Context, userID uuid.UUID, start, end time.Time) (*reportingdomain.Report, error)
}

// ReportRenderer renders the email body for previews.
type ReportRenderer interface {
	Render(report *reportingdomain.Report) (string, error)
}

// ReportSender sends the report email on demand.
type ReportSender interface {
	SendReport(ctx context.Context, userID uuid.UUID) error
}

// ReportHandler serves the report endpoints.
type ReportHandler struct {
	reports  ReportService
	renderer ReportRenderer
	sender   ReportSender
	logger   *slog.Logger
}

// NewReportHandler creates the report handler.
func NewReportHandler(reports ReportService, renderer ReportRenderer, sender ReportSender, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{reports: reports, renderer: renderer, sender: sender, logger: logger}
}

// Get returns the report for the requested range. Both start and end
// are required.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reports.BuildReport(r.Context(), userID, start, end)
	if err != nil {
		h.logger.Error("building report failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not build report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Preview renders the trailing-week report email body as HTML.
func (h *ReportHandler) Preview(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	report, ok := h.buildTrailingWeek(w, r, userID)
	if !ok {
		return
	}

	html, err := h.renderer.Render(report)
	if err != nil {
		h.logger.Error("rendering report failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not render report")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// Send emails the trailing-week report to the user now.
func (h *ReportHandler) Send(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	if err := h.sender.SendReport(r.Context(), userID); err != nil {
		h.logger.Error("sending report failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not send report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *ReportHandler) buildTrailingWeek(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*reportingdomain.Report, bool) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)

	report, err := h.reports.BuildReport(r.Context(), userID, start, end)
	if err != nil {
		h.logger.Error("building report failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not build report")
		return nil, false
	}
	return report, true
}
