package driven

import (
	"context"
	"io"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

// ReportRenderer defines the driven port that turns assembled release notes
// into a document.
type ReportRenderer interface {
	Render(ctx context.Context, w io.Writer, notes *model.ReleaseNotes) error
}
