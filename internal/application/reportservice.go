// Package application contains use-case orchestration services.
package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

// ErrInvalidRange is returned when a RangeRequest mixes or omits boundaries.
var ErrInvalidRange = errors.New("invalid release range")

// ErrPublishingDisabled is returned when publishing is requested but no
// publisher is configured.
var ErrPublishingDisabled = errors.New("report publishing is not configured")

// RangeRequest selects the commits a report covers. Tags and commits are
// mutually exclusive; with neither set the latest release is used.
type RangeRequest struct {
	FromTag      string `json:"from_tag,omitempty"`
	ToTag        string `json:"to_tag,omitempty"`
	FromCommit   string `json:"from_commit,omitempty"`
	ToCommit     string `json:"to_commit,omitempty"`
	ClientFacing bool   `json:"client_facing,omitempty"`
	Publish      bool   `json:"publish,omitempty"`
}

// Validate checks the boundary combination.
func (r RangeRequest) Validate() error {
	byTags := r.FromTag != "" || r.ToTag != ""
	byCommits := r.FromCommit != "" || r.ToCommit != ""

	switch {
	case byTags && byCommits:
		return fmt.Errorf("%w: tags and commits cannot be combined", ErrInvalidRange)
	case r.ToTag != "" && r.FromTag == "":
		return fmt.Errorf("%w: to tag %q given without a from tag", ErrInvalidRange, r.ToTag)
	case r.ToCommit != "" && r.FromCommit == "":
		return fmt.Errorf("%w: to commit %q given without a from commit", ErrInvalidRange, r.ToCommit)
	}
	return nil
}

// GeneratedReport is the result of one report run.
type GeneratedReport struct {
	ID       int64
	FileName string
	Notes    *model.ReleaseNotes
	HTML     []byte
}

// ReportServiceOptions configures a ReportService.
type ReportServiceOptions struct {
	// ReleaseVersion overrides the version derived from the commit range.
	ReleaseVersion string
	// PublishPath is the repository directory reports are published to.
	PublishPath string
}

// ReportService runs the end-to-end report use case: read the release range,
// assemble the model, render, persist and optionally publish.
type ReportService struct {
	vcs       driven.VersionControl
	assembler *ModelAssembler
	renderer  driven.ReportRenderer
	store     driven.ReportStore
	publisher driven.ReportPublisher
	opts      ReportServiceOptions
}

// NewReportService creates a ReportService. publisher may be nil, in which
// case publishing requests fail with ErrPublishingDisabled.
func NewReportService(
	vcs driven.VersionControl,
	assembler *ModelAssembler,
	renderer driven.ReportRenderer,
	store driven.ReportStore,
	publisher driven.ReportPublisher,
	opts ReportServiceOptions,
) *ReportService {
	return &ReportService{
		vcs:       vcs,
		assembler: assembler,
		renderer:  renderer,
		store:     store,
		publisher: publisher,
		opts:      opts,
	}
}

// Generate builds, stores and optionally publishes the report for req.
func (s *ReportService) Generate(ctx context.Context, req RangeRequest) (*GeneratedReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Publish && s.publisher == nil {
		return nil, ErrPublishingDisabled
	}

	release, err := s.readRelease(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.opts.ReleaseVersion != "" {
		release.Version = s.opts.ReleaseVersion
	}

	slog.Info("assembling release notes",
		"version", release.Version,
		"branch", release.Branch,
		"from", release.FromRef,
		"to", release.ToRef,
		"commits", len(release.Commits),
	)

	notes, err := s.assembler.Assemble(ctx, *release, AssembleOptions{ClientFacing: req.ClientFacing})
	if err != nil {
		return nil, fmt.Errorf("assemble release notes: %w", err)
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(ctx, &buf, notes); err != nil {
		return nil, fmt.Errorf("render release notes: %w", err)
	}

	record := model.ReportRecord{
		Version:     notes.ReleaseVersion,
		Branch:      notes.Branch,
		FromRef:     notes.FromRef,
		ToRef:       notes.ToRef,
		CommitCount: notes.CommitCount,
		IssueCount:  notes.ValidIssueCount(),
		HasErrors:   notes.HasErrors(),
		Notes:       notes,
		HTML:        buf.Bytes(),
	}
	id, err := s.store.Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	fileName := ReportFileName(notes.ReleaseVersion)
	if req.Publish {
		target := path.Join(s.opts.PublishPath, fileName)
		message := fmt.Sprintf("Add release notes for %s", notes.ReleaseVersion)
		if err := s.publisher.Publish(ctx, target, buf.Bytes(), message); err != nil {
			return nil, fmt.Errorf("publish report to %s: %w", target, err)
		}
		slog.Info("release notes published", "path", target)
	}

	slog.Info("release notes generated",
		"id", id,
		"version", notes.ReleaseVersion,
		"issues", record.IssueCount,
		"has_errors", record.HasErrors,
	)

	return &GeneratedReport{
		ID:       id,
		FileName: fileName,
		Notes:    notes,
		HTML:     buf.Bytes(),
	}, nil
}

func (s *ReportService) readRelease(ctx context.Context, req RangeRequest) (*model.Release, error) {
	var (
		release *model.Release
		err     error
	)
	switch {
	case req.FromTag != "":
		release, err = s.vcs.ReadByTags(ctx, req.FromTag, req.ToTag)
	case req.FromCommit != "":
		release, err = s.vcs.ReadByCommits(ctx, req.FromCommit, req.ToCommit)
	default:
		release, err = s.vcs.ReadLatestRelease(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("read release range: %w", err)
	}
	return release, nil
}

// ReportFileName returns the report file name for a release version, with
// dots replaced by underscores.
func ReportFileName(version string) string {
	return strings.ReplaceAll(version, ".", "_") + ".html"
}
