// Package config loads application configuration from a TOML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the application configuration.
type Config struct {
	Tracker TrackerConfig `toml:"tracker"`
	Parser  ParserConfig  `toml:"parser"`
	Report  ReportConfig  `toml:"report"`
	Git     GitConfig     `toml:"git"`
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// TrackerConfig configures the issue tracker connection and the queries and
// fields used to build the report.
type TrackerConfig struct {
	URL          string `toml:"url"`
	AuthType     string `toml:"auth_type"` // token, bearer or oauth2.
	Username     string `toml:"username"`
	APIToken     string `toml:"api_token"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`

	FixVersions        []string `toml:"fix_versions"`
	KnownIssues        string   `toml:"known_issues"` // JQL.
	CompletedStatuses  []string `toml:"completed_statuses"`
	LabelsToSkip       []string `toml:"labels_to_skip"`
	ClientFacingFields []string `toml:"client_facing_fields"`

	DefectIDField      string `toml:"defect_id_field"`
	RequirementIDField string `toml:"requirement_id_field"`
	FixedInField       string `toml:"fixed_in_field"`
	ReleaseNotesField  string `toml:"release_notes_field"`
	ImpactField        string `toml:"impact_field"`
	DetailsField       string `toml:"details_field"`
}

// ParserConfig holds the commit message patterns.
type ParserConfig struct {
	IssuePattern       string `toml:"issue_pattern"`
	DefectPattern      string `toml:"defect_pattern"`
	PullRequestPattern string `toml:"pull_request_pattern"`
}

// ReportConfig controls report ordering and output.
type ReportConfig struct {
	TypeOrder      string `toml:"type_order"`     // Comma separated.
	PriorityOrder  string `toml:"priority_order"` // Comma separated.
	Directory      string `toml:"directory"`
	ReleaseVersion string `toml:"release_version"`
}

// GitConfig identifies the repository the commits are read from.
type GitConfig struct {
	Owner       string `toml:"owner"`
	Repo        string `toml:"repo"`
	Token       string `toml:"token"`
	Branch      string `toml:"branch"`
	PublishPath string `toml:"publish_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// StorageConfig configures the report history database.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			AuthType:           "token",
			CompletedStatuses:  []string{"Done", "Closed", "Resolved"},
			DefectIDField:      "Defect_Id",
			RequirementIDField: "Requirement VA ID",
			FixedInField:       "FixedInFlowWebVersion",
			ReleaseNotesField:  "Release Notes",
			ImpactField:        "Impact",
			DetailsField:       "Details of change",
		},
		Parser: ParserConfig{
			DefectPattern:      `defect[_ ]?\d+`,
			PullRequestPattern: `Merge pull request #\d+`,
		},
		Report: ReportConfig{
			PriorityOrder: "Highest,High,Medium,Low,Lowest",
		},
		Git: GitConfig{
			PublishPath: "release-notes",
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8080",
		},
		Storage: StorageConfig{
			DBPath: "relnotesgen.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path over the defaults, applies RELNOTES_*
// environment overrides and validates the result. An empty path skips the
// file and relies on defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"RELNOTES_TRACKER_URL", &cfg.Tracker.URL},
		{"RELNOTES_TRACKER_USERNAME", &cfg.Tracker.Username},
		{"RELNOTES_TRACKER_TOKEN", &cfg.Tracker.APIToken},
		{"RELNOTES_TRACKER_CLIENT_SECRET", &cfg.Tracker.ClientSecret},
		{"RELNOTES_GITHUB_TOKEN", &cfg.Git.Token},
		{"RELNOTES_LISTEN_ADDR", &cfg.Server.ListenAddr},
		{"RELNOTES_DB_PATH", &cfg.Storage.DBPath},
		{"RELNOTES_LOG_LEVEL", &cfg.Logging.Level},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.target = v
		}
	}
}

// Validate checks required settings and value formats.
func (c *Config) Validate() error {
	var errs []error

	if c.Tracker.URL == "" {
		errs = append(errs, errors.New("tracker url is required"))
	}
	switch c.Tracker.AuthType {
	case "token", "bearer":
	case "oauth2":
		if c.Tracker.ClientID == "" || c.Tracker.ClientSecret == "" {
			errs = append(errs, errors.New("tracker oauth2 auth requires client_id and client_secret"))
		}
	default:
		errs = append(errs, fmt.Errorf("tracker auth_type %q must be token, bearer or oauth2", c.Tracker.AuthType))
	}

	if c.Parser.IssuePattern == "" {
		errs = append(errs, errors.New("parser issue_pattern is required"))
	}
	patterns := []struct{ name, pattern string }{
		{"issue_pattern", c.Parser.IssuePattern},
		{"defect_pattern", c.Parser.DefectPattern},
		{"pull_request_pattern", c.Parser.PullRequestPattern},
	}
	for _, p := range patterns {
		if _, err := regexp.Compile(p.pattern); err != nil {
			errs = append(errs, fmt.Errorf("parser %s: %w", p.name, err))
		}
	}

	if c.Git.Owner == "" || c.Git.Repo == "" {
		errs = append(errs, errors.New("git owner and repo are required"))
	}
	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage db_path is required"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RepoFullName returns the repository as "owner/repo".
func (c *Config) RepoFullName() string {
	return c.Git.Owner + "/" + c.Git.Repo
}

// TypeOrder returns the configured issue type ordering.
func (c *Config) TypeOrder() []string {
	return SplitList(c.Report.TypeOrder)
}

// PriorityOrder returns the configured priority ordering.
func (c *Config) PriorityOrder() []string {
	return SplitList(c.Report.PriorityOrder)
}

// SplitList splits a comma separated value, trimming entries and dropping
// empty ones. The result is never nil.
func SplitList(v string) []string {
	items := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}
