// Package render implements the ReportRenderer port as a standalone HTML page.
package render

import (
	"context"
	"fmt"
	"io"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReportRenderer = (*HTMLRenderer)(nil)

// HTMLRenderer renders release notes as a self-contained HTML document.
type HTMLRenderer struct{}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

// Render writes the HTML document for notes to w.
func (r *HTMLRenderer) Render(ctx context.Context, w io.Writer, notes *model.ReleaseNotes) error {
	if notes == nil {
		return fmt.Errorf("render: nil release notes")
	}
	if err := pageComponent(notes).Render(ctx, w); err != nil {
		return fmt.Errorf("render release notes %s: %w", notes.ReleaseVersion, err)
	}
	return nil
}
