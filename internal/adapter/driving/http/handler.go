// Package httphandler is the HTTP driving adapter serving the report API and
// stored HTML reports.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/relnotesgen/internal/application"
	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ReportGenerator runs a report generation. *application.ReportService
// satisfies it.
type ReportGenerator interface {
	Generate(ctx context.Context, req application.RangeRequest) (*application.GeneratedReport, error)
}

var _ ReportGenerator = (*application.ReportService)(nil)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	store     driven.ReportStore
	generator ReportGenerator
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(store driven.ReportStore, generator ReportGenerator, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		generator: generator,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/reports", h.ListReports)
	mux.HandleFunc("POST /api/v1/reports", h.GenerateReport)
	mux.HandleFunc("GET /api/v1/reports/{id}", h.GetReport)
	mux.HandleFunc("GET /reports/{id}", h.GetReportHTML)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListReports returns summaries of the most recent report runs. With a
// version query parameter it returns at most the latest run of that version.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	if version := r.URL.Query().Get("version"); version != "" {
		h.latestByVersion(w, r, version)
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list reports", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ReportSummaryResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toSummaryResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) latestByVersion(w http.ResponseWriter, r *http.Request, version string) {
	rec, err := h.store.GetLatestByVersion(r.Context(), version)
	if errors.Is(err, driven.ErrReportNotFound) {
		writeJSON(w, http.StatusOK, []ReportSummaryResponse{})
		return
	}
	if err != nil {
		h.logger.Error("failed to get latest report", "version", version, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, []ReportSummaryResponse{toSummaryResponse(*rec)})
}

// GenerateReport runs a report generation for the JSON range in the body.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req application.RangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.generator.Generate(r.Context(), req)
	switch {
	case errors.Is(err, application.ErrInvalidRange), errors.Is(err, application.ErrPublishingDisabled):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, driven.ErrNoCommits):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to generate report", "error", err)
		writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}

	notes := report.Notes
	resp := ReportSummaryResponse{
		ID:          report.ID,
		Version:     notes.ReleaseVersion,
		Branch:      notes.Branch,
		FromRef:     notes.FromRef,
		ToRef:       notes.ToRef,
		CommitCount: notes.CommitCount,
		IssueCount:  notes.ValidIssueCount(),
		HasErrors:   notes.HasErrors(),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		HTMLURL:     htmlURL(report.ID),
	}

	w.Header().Set("Location", "/api/v1/reports/"+strconv.FormatInt(report.ID, 10))
	writeJSON(w, http.StatusCreated, resp)
}

// GetReport returns a stored report including the full release notes model.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, driven.ErrReportNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get report", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ReportDetailResponse{
		ReportSummaryResponse: toSummaryResponse(*rec),
		Notes:                 rec.Notes,
	})
}

// GetReportHTML serves the rendered HTML of a stored report.
func (h *Handler) GetReportHTML(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, driven.ErrReportNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("failed to get report html", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.HTML)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return 0, false
	}
	return id, true
}

func htmlURL(id int64) string {
	return "/reports/" + strconv.FormatInt(id, 10)
}
