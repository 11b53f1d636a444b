package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

// FieldNames are the tracker custom field names the report reads.
type FieldNames struct {
	DefectID      string
	RequirementID string
	FixedIn       string
	ReleaseNotes  string
	Impact        string
	Details       string
}

// DefaultFieldNames returns the field names used when none are configured.
func DefaultFieldNames() FieldNames {
	return FieldNames{
		DefectID:      "Defect_Id",
		RequirementID: "Requirement VA ID",
		FixedIn:       "FixedInFlowWebVersion",
		ReleaseNotes:  "Release Notes",
		Impact:        "Impact",
		Details:       "Details of change",
	}
}

// AssemblerConfig carries the tracker-related settings of a report run.
type AssemblerConfig struct {
	TrackerURL         string
	FixVersions        []string
	KnownIssuesJQL     string
	LabelsToSkip       []string
	ClientFacingFields []string
	Fields             FieldNames
}

// AssembleOptions are the per-run switches of Assemble.
type AssembleOptions struct {
	// ClientFacing keeps only issues with a value in one of the configured
	// client facing fields.
	ClientFacing bool
}

// ModelAssembler correlates parsed commits with tracker issues and builds the
// validated report model.
type ModelAssembler struct {
	tracker      driven.IssueTracker
	parser       *CommitMessageParser
	categorizer  *IssueCategorizer
	validator    *IssueValidator
	cfg          AssemblerConfig
	labelsToSkip map[string]struct{}
}

// NewModelAssembler creates a ModelAssembler with all required dependencies.
func NewModelAssembler(
	tracker driven.IssueTracker,
	parser *CommitMessageParser,
	categorizer *IssueCategorizer,
	validator *IssueValidator,
	cfg AssemblerConfig,
) *ModelAssembler {
	skip := make(map[string]struct{}, len(cfg.LabelsToSkip))
	for _, label := range cfg.LabelsToSkip {
		skip[label] = struct{}{}
	}
	return &ModelAssembler{
		tracker:      tracker,
		parser:       parser,
		categorizer:  categorizer,
		validator:    validator,
		cfg:          cfg,
		labelsToSkip: skip,
	}
}

// Assemble builds the report model for the release. Tracker query failures
// are recorded in the model's error map; only a malformed tracker response
// aborts assembly.
func (a *ModelAssembler) Assemble(ctx context.Context, release model.Release, opts AssembleOptions) (*model.ReleaseNotes, error) {
	parsed := make([]model.ParsedCommit, 0, len(release.Commits))
	for _, c := range release.Commits {
		parsed = append(parsed, a.parser.Parse(c))
	}

	pullRequests := pullRequestsByKey(parsed)
	keys := issueKeys(parsed)

	results, err := a.queryTracker(ctx, keys)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]model.Issue, len(results.byFixVersion)+len(results.byKeys))
	maps.Copy(merged, results.byFixVersion)
	maps.Copy(merged, results.byKeys)

	merged = a.withoutSkippedLabels(merged)
	known := a.withoutSkippedLabels(results.known)

	candidates := make([]model.Issue, 0, len(merged))
	for _, key := range slices.Sorted(maps.Keys(merged)) {
		issue := merged[key]
		if issue.IsSubtask {
			continue
		}
		if opts.ClientFacing && !a.isClientFacing(issue) {
			slog.Debug("dropping issue without client facing fields", "key", key)
			continue
		}
		candidates = append(candidates, issue)
	}

	notes := &model.ReleaseNotes{
		IssuesByCategory: make(map[string][]model.ReportIssue),
		ReleaseVersion:   release.Version,
		FromRef:          release.FromRef,
		ToRef:            release.ToRef,
		CommitCount:      len(release.Commits),
		Branch:           release.Branch,
		FixVersions:      slices.Clone(a.cfg.FixVersions),
		Errors:           results.errors,
	}
	if notes.FixVersions == nil {
		notes.FixVersions = []string{}
	}

	var invalidFixVersion, invalidState []model.ReportIssue
	for _, category := range a.categorizer.ByType(candidates) {
		valid := []model.ReportIssue{}
		for _, issue := range category.Issues {
			ri := a.toReportIssue(issue, pullRequests[issue.Key])

			fixOK := a.validator.FixVersionValid(&ri)
			stateOK := a.validator.StateValid(&ri)
			slog.Debug("issue validated", "key", ri.Key, "fix_version_ok", fixOK, "state_ok", stateOK)

			if !fixOK {
				invalidFixVersion = append(invalidFixVersion, ri)
			}
			if !stateOK {
				invalidState = append(invalidState, ri)
			}
			if fixOK && stateOK {
				valid = append(valid, ri)
			}
		}
		notes.CategoryNames = append(notes.CategoryNames, category.Name)
		notes.IssuesByCategory[category.Name] = valid
	}

	notes.CategoryNames = append(notes.CategoryNames,
		model.SearchInvalidFixVersion.Title(),
		model.SearchInvalidState.Title(),
	)
	if len(invalidFixVersion) > 0 {
		notes.IssuesByCategory[model.SearchInvalidFixVersion.Title()] = invalidFixVersion
	}
	if len(invalidState) > 0 {
		notes.IssuesByCategory[model.SearchInvalidState.Title()] = invalidState
	}

	notes.KnownIssues = []model.ReportIssue{}
	for _, key := range slices.Sorted(maps.Keys(known)) {
		if _, fixed := merged[key]; fixed {
			slog.Info("dropping known issue fixed in this release", "key", key)
			continue
		}
		notes.KnownIssues = append(notes.KnownIssues, a.toReportIssue(known[key], nil))
	}

	notes.CommitsWithDefects = commitsWithDefects(parsed)

	defects := make(map[string]struct{})
	validKeys := make(map[string]struct{})
	for _, name := range notes.ValidCategoryNames() {
		for _, ri := range notes.IssuesByCategory[name] {
			validKeys[ri.Key] = struct{}{}
			for _, id := range ri.DefectIDs {
				defects[model.NormalizeDefectID(id)] = struct{}{}
			}
		}
	}
	notes.DefectIDs = sortedSet(defects)
	notes.IssueKeys = sortedSet(validKeys)

	if len(notes.IssueKeys) > 0 {
		notes.AllIssuesURL = a.searchURL("id in (" + strings.Join(notes.IssueKeys, ", ") + ")")
	}
	if a.cfg.KnownIssuesJQL != "" {
		notes.KnownIssuesURL = a.searchURL(a.cfg.KnownIssuesJQL)
	}

	return notes, nil
}

// trackerResults holds the outcome of the three tracker queries.
type trackerResults struct {
	byKeys       map[string]model.Issue
	byFixVersion map[string]model.Issue
	known        map[string]model.Issue
	errors       map[model.SearchType]string
}

// queryTracker runs the three tracker queries concurrently. Each query writes
// only its own slot; a failed query leaves an empty result and an error
// message behind. Only malformed data from the key query, which expands
// subtask parents, aborts.
func (a *ModelAssembler) queryTracker(ctx context.Context, keys []string) (trackerResults, error) {
	type slot struct {
		issues map[string]model.Issue
		errMsg string
	}
	queries := []func(context.Context) (map[string]model.Issue, error){
		func(ctx context.Context) (map[string]model.Issue, error) {
			return a.tracker.IssuesByKeys(ctx, keys)
		},
		func(ctx context.Context) (map[string]model.Issue, error) {
			return a.tracker.IssuesByFixVersions(ctx, a.cfg.FixVersions)
		},
		func(ctx context.Context) (map[string]model.Issue, error) {
			return a.tracker.IssuesByQuery(ctx, a.cfg.KnownIssuesJQL)
		},
	}
	slots := make([]slot, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		searchType := model.QuerySearchTypes[i]
		g.Go(func() error {
			issues, err := query(gctx)
			if err != nil {
				if searchType == model.SearchGeneric && errors.Is(err, driven.ErrMalformedIssue) {
					return fmt.Errorf("%s query: %w", searchType, err)
				}
				slog.Warn("tracker query failed", "query", searchType, "error", err)
				slots[i] = slot{issues: map[string]model.Issue{}, errMsg: err.Error()}
				return nil
			}
			if issues == nil {
				issues = map[string]model.Issue{}
			}
			slots[i] = slot{issues: issues}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return trackerResults{}, err
	}

	results := trackerResults{
		byKeys:       slots[0].issues,
		byFixVersion: slots[1].issues,
		known:        slots[2].issues,
		errors:       make(map[model.SearchType]string, len(slots)),
	}
	for i, s := range slots {
		results.errors[model.QuerySearchTypes[i]] = s.errMsg
	}
	return results, nil
}

func (a *ModelAssembler) withoutSkippedLabels(issues map[string]model.Issue) map[string]model.Issue {
	kept := make(map[string]model.Issue, len(issues))
	for key, issue := range issues {
		if label, skip := issue.FirstLabelIn(a.labelsToSkip); skip {
			slog.Info("skipping issue by label", "key", key, "label", label)
			continue
		}
		kept[key] = issue
	}
	return kept
}

func (a *ModelAssembler) isClientFacing(issue model.Issue) bool {
	for _, field := range a.cfg.ClientFacingFields {
		if issue.HasField(field) {
			return true
		}
	}
	return false
}

func (a *ModelAssembler) toReportIssue(issue model.Issue, pullRequestIDs []string) model.ReportIssue {
	field := func(name string) string {
		v, _ := issue.FieldValue(name)
		return v
	}

	f := a.cfg.Fields
	id := model.JoinNonEmpty(" ", field(f.DefectID), field(f.RequirementID))
	labels := slices.Clone(issue.Labels)
	if labels == nil {
		labels = []string{}
	}

	return model.ReportIssue{
		Key:             issue.Key,
		Summary:         issue.Summary,
		TypeName:        issue.TypeName,
		Priority:        issue.Priority,
		Labels:          labels,
		ID:              id,
		URL:             a.issueURL(issue.Key),
		FixedInVersion:  field(f.FixedIn),
		ReleaseNotes:    field(f.ReleaseNotes),
		Impact:          field(f.Impact),
		DetailsOfChange: field(f.Details),
		FixVersions:     strings.Join(issue.FixVersions, ", "),
		DefectIDs:       model.SplitDefectIDs(id),
		PullRequestIDs:  model.JoinPullRequestIDs(pullRequestIDs),
		Status:          issue.Status,
		IsStatusOK:      a.validator.IsCompletedStatus(issue.Status),
	}
}

func (a *ModelAssembler) issueURL(key string) string {
	return strings.TrimSuffix(a.cfg.TrackerURL, "/") + "/browse/" + key
}

var jqlEscaper = strings.NewReplacer(",", "%2C", " ", "%20", `"`, "%22")

func (a *ModelAssembler) searchURL(jql string) string {
	return strings.TrimSuffix(a.cfg.TrackerURL, "/") + "/issues/?jql=" + jqlEscaper.Replace(jql)
}

// pullRequestsByKey maps each issue key to the distinct pull request ids of
// the merge commits referencing it.
func pullRequestsByKey(parsed []model.ParsedCommit) map[string][]string {
	byKey := make(map[string][]string)
	for _, pc := range parsed {
		if !pc.HasPullRequest() {
			continue
		}
		for _, key := range pc.JiraKeys {
			if !slices.Contains(byKey[key], pc.PullRequestID) {
				byKey[key] = append(byKey[key], pc.PullRequestID)
			}
		}
	}
	return byKey
}

func issueKeys(parsed []model.ParsedCommit) []string {
	set := make(map[string]struct{})
	for _, pc := range parsed {
		for _, key := range pc.JiraKeys {
			set[key] = struct{}{}
		}
	}
	return sortedSet(set)
}

// sortedSet returns the members of set in ascending order, never nil.
func sortedSet(set map[string]struct{}) []string {
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	slices.Sort(members)
	return members
}

func commitsWithDefects(parsed []model.ParsedCommit) []model.ReportCommit {
	commits := []model.ReportCommit{}
	for _, pc := range parsed {
		if len(pc.DefectIDs) == 0 {
			continue
		}
		commits = append(commits, model.ReportCommit{
			ID:        pc.Commit.ID,
			Message:   pc.Commit.Message,
			Author:    pc.Commit.Author,
			DefectIDs: slices.Clone(pc.DefectIDs),
			JiraIDs:   slices.Clone(pc.JiraKeys),
		})
	}
	return commits
}
