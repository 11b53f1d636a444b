package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ReportSummaryResponse is the JSON representation of one report run.
type ReportSummaryResponse struct {
	ID          int64  `json:"id"`
	Version     string `json:"version"`
	Branch      string `json:"branch"`
	FromRef     string `json:"from_ref"`
	ToRef       string `json:"to_ref"`
	CommitCount int    `json:"commit_count"`
	IssueCount  int    `json:"issue_count"`
	HasErrors   bool   `json:"has_errors"`
	CreatedAt   string `json:"created_at"`
	HTMLURL     string `json:"html_url"`
}

// ReportDetailResponse adds the full release notes to a summary.
type ReportDetailResponse struct {
	ReportSummaryResponse
	Notes *model.ReleaseNotes `json:"notes"`
}

func toSummaryResponse(rec model.ReportRecord) ReportSummaryResponse {
	return ReportSummaryResponse{
		ID:          rec.ID,
		Version:     rec.Version,
		Branch:      rec.Branch,
		FromRef:     rec.FromRef,
		ToRef:       rec.ToRef,
		CommitCount: rec.CommitCount,
		IssueCount:  rec.IssueCount,
		HasErrors:   rec.HasErrors,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
		HTMLURL:     htmlURL(rec.ID),
	}
}
