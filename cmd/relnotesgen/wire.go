package main

import (
	"context"
	"fmt"
	"log/slog"

	githubadapter "github.com/ericfisherdev/relnotesgen/internal/adapter/driven/github"
	"github.com/ericfisherdev/relnotesgen/internal/adapter/driven/jira"
	"github.com/ericfisherdev/relnotesgen/internal/adapter/driven/render"
	sqliteadapter "github.com/ericfisherdev/relnotesgen/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/relnotesgen/internal/application"
	"github.com/ericfisherdev/relnotesgen/internal/config"
	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

// app holds the wired adapters and services shared by all commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteadapter.DB
	store   *sqliteadapter.ReportRepo
	service *application.ReportService
}

// newApp loads configuration and wires every adapter into a ReportService.
// The caller must call close.
func newApp(ctx context.Context) (*app, error) {
	// 1. Load configuration (fail fast on invalid settings).
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(level)
	logger.Info("config loaded",
		"tracker_url", cfg.Tracker.URL,
		"repo", cfg.RepoFullName(),
		"branch", cfg.Git.Branch,
		"db_path", cfg.Storage.DBPath,
	)

	// 2. Open database (dual reader/writer with WAL mode) and migrate.
	db, err := sqliteadapter.NewDB(ctx, cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("database ready", "path", db.Path())

	// 3. Tracker client.
	httpClient, err := jira.NewHTTPClient(ctx, jira.AuthConfig{
		Type:         cfg.Tracker.AuthType,
		Username:     cfg.Tracker.Username,
		APIToken:     cfg.Tracker.APIToken,
		ClientID:     cfg.Tracker.ClientID,
		ClientSecret: cfg.Tracker.ClientSecret,
		TokenURL:     cfg.Tracker.TokenURL,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tracker client: %w", err)
	}
	tracker := jira.NewClient(cfg.Tracker.URL, httpClient)

	// 4. Version control client, also used as the publisher.
	ghClient, err := githubadapter.NewClient(cfg.Git.Token, cfg.RepoFullName(), cfg.Git.Branch)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create github client: %w", err)
	}

	// 5. Core services.
	parser, err := application.NewCommitMessageParser(application.ParserPatterns{
		IssueKey:    cfg.Parser.IssuePattern,
		DefectID:    cfg.Parser.DefectPattern,
		PullRequest: cfg.Parser.PullRequestPattern,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	assembler := application.NewModelAssembler(
		tracker,
		parser,
		application.NewIssueCategorizer(cfg.TypeOrder(), cfg.PriorityOrder()),
		application.NewIssueValidator(cfg.Tracker.FixVersions, cfg.Tracker.CompletedStatuses),
		application.AssemblerConfig{
			TrackerURL:         cfg.Tracker.URL,
			FixVersions:        cfg.Tracker.FixVersions,
			KnownIssuesJQL:     cfg.Tracker.KnownIssues,
			LabelsToSkip:       cfg.Tracker.LabelsToSkip,
			ClientFacingFields: cfg.Tracker.ClientFacingFields,
			Fields: application.FieldNames{
				DefectID:      cfg.Tracker.DefectIDField,
				RequirementID: cfg.Tracker.RequirementIDField,
				FixedIn:       cfg.Tracker.FixedInField,
				ReleaseNotes:  cfg.Tracker.ReleaseNotesField,
				Impact:        cfg.Tracker.ImpactField,
				Details:       cfg.Tracker.DetailsField,
			},
		},
	)

	// Publishing writes to the repository and needs a token.
	var publisher driven.ReportPublisher
	if cfg.Git.Token != "" {
		publisher = ghClient
	} else {
		logger.Debug("no git token configured, publishing disabled")
	}

	store := sqliteadapter.NewReportRepo(db)
	service := application.NewReportService(
		ghClient,
		assembler,
		render.NewHTMLRenderer(),
		store,
		publisher,
		application.ReportServiceOptions{
			ReleaseVersion: cfg.Report.ReleaseVersion,
			PublishPath:    cfg.Git.PublishPath,
		},
	)

	return &app{cfg: cfg, logger: logger, db: db, store: store, service: service}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}
