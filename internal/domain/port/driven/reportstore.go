package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

// ErrReportNotFound is returned when no stored report matches the lookup.
var ErrReportNotFound = errors.New("report not found")

// ReportStore defines the driven port for report run history.
type ReportStore interface {
	// Save persists the record and returns its assigned id.
	Save(ctx context.Context, record model.ReportRecord) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.ReportRecord, error)
	GetLatestByVersion(ctx context.Context, version string) (*model.ReportRecord, error)
	// ListRecent returns summaries (without notes or HTML), newest first.
	ListRecent(ctx context.Context, limit int) ([]model.ReportRecord, error)
}
