package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReportStore = (*ReportRepo)(nil)

// ReportRepo is the SQLite implementation of the ReportStore port interface.
type ReportRepo struct {
	db *DB
}

// NewReportRepo creates a new ReportRepo backed by the given DB.
func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

const summaryColumns = `id, version, branch, from_ref, to_ref, commit_count, issue_count, has_errors, created_at`

// Save inserts a report run and returns its id. The release notes are stored
// as JSON next to the rendered HTML.
func (r *ReportRepo) Save(ctx context.Context, record model.ReportRecord) (int64, error) {
	const query = `INSERT INTO reports
		(version, branch, from_ref, to_ref, commit_count, issue_count, has_errors, model_json, html, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if record.Notes == nil {
		return 0, fmt.Errorf("save report %s: missing release notes", record.Version)
	}

	modelJSON, err := json.Marshal(record.Notes)
	if err != nil {
		return 0, fmt.Errorf("encode release notes %s: %w", record.Version, err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	html := record.HTML
	if html == nil {
		html = []byte{}
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		record.Version,
		record.Branch,
		record.FromRef,
		record.ToRef,
		record.CommitCount,
		record.IssueCount,
		record.HasErrors,
		string(modelJSON),
		html,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("save report %s: %w", record.Version, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read report id: %w", err)
	}

	return id, nil
}

// GetByID returns the full report with the given id.
func (r *ReportRepo) GetByID(ctx context.Context, id int64) (*model.ReportRecord, error) {
	const query = `SELECT ` + summaryColumns + `, model_json, html FROM reports WHERE id = ?`

	record, err := scanFullReport(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get report %d: %w", id, driven.ErrReportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report %d: %w", id, err)
	}

	return record, nil
}

// GetLatestByVersion returns the most recent report generated for version.
func (r *ReportRepo) GetLatestByVersion(ctx context.Context, version string) (*model.ReportRecord, error) {
	const query = `SELECT ` + summaryColumns + `, model_json, html FROM reports
		WHERE version = ? ORDER BY id DESC LIMIT 1`

	record, err := scanFullReport(r.db.Reader.QueryRowContext(ctx, query, version))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get latest report %s: %w", version, driven.ErrReportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest report %s: %w", version, err)
	}

	return record, nil
}

// ListRecent returns up to limit report summaries, newest first.
func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]model.ReportRecord, error) {
	const query = `SELECT ` + summaryColumns + ` FROM reports ORDER BY id DESC LIMIT ?`

	if limit <= 0 {
		return []model.ReportRecord{}, nil
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	records := []model.ReportRecord{}
	for rows.Next() {
		var record model.ReportRecord
		if err := scanSummary(rows, &record); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}

	return records, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(s scanner, record *model.ReportRecord, extra ...any) error {
	var createdAt string
	dest := append([]any{
		&record.ID,
		&record.Version,
		&record.Branch,
		&record.FromRef,
		&record.ToRef,
		&record.CommitCount,
		&record.IssueCount,
		&record.HasErrors,
		&createdAt,
	}, extra...)

	if err := s.Scan(dest...); err != nil {
		return err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	record.CreatedAt = t

	return nil
}

func scanFullReport(s scanner) (*model.ReportRecord, error) {
	var record model.ReportRecord
	var modelJSON string

	if err := scanSummary(s, &record, &modelJSON, &record.HTML); err != nil {
		return nil, err
	}

	var notes model.ReleaseNotes
	if err := json.Unmarshal([]byte(modelJSON), &notes); err != nil {
		return nil, fmt.Errorf("decode release notes: %w", err)
	}
	record.Notes = &notes

	return &record, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
