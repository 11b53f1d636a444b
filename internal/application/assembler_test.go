package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/relnotesgen/internal/application"
	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockIssueTracker struct {
	mu          sync.Mutex
	byKeys      func(keys []string) (map[string]model.Issue, error)
	byVersions  func(versions []string) (map[string]model.Issue, error)
	byQuery     func(jql string) (map[string]model.Issue, error)
	keysQueried []string
}

func (m *mockIssueTracker) IssuesByKeys(_ context.Context, keys []string) (map[string]model.Issue, error) {
	m.mu.Lock()
	m.keysQueried = keys
	m.mu.Unlock()
	if m.byKeys == nil {
		return map[string]model.Issue{}, nil
	}
	return m.byKeys(keys)
}

func (m *mockIssueTracker) IssuesByFixVersions(_ context.Context, versions []string) (map[string]model.Issue, error) {
	if m.byVersions == nil {
		return map[string]model.Issue{}, nil
	}
	return m.byVersions(versions)
}

func (m *mockIssueTracker) IssuesByQuery(_ context.Context, jql string) (map[string]model.Issue, error) {
	if m.byQuery == nil {
		return map[string]model.Issue{}, nil
	}
	return m.byQuery(jql)
}

var _ driven.IssueTracker = (*mockIssueTracker)(nil)

// --- Helpers ---

func issuesOf(issues ...model.Issue) map[string]model.Issue {
	m := make(map[string]model.Issue, len(issues))
	for _, i := range issues {
		m[i.Key] = i
	}
	return m
}

func doneBug(key string) model.Issue {
	return model.Issue{
		Key:         key,
		TypeName:    "Bug",
		Status:      "Done",
		Priority:    "High",
		FixVersions: []string{"1.0"},
	}
}

func mergeCommit(id string, pr int, body string) model.Commit {
	return model.Commit{
		ID:      id,
		Message: fmt.Sprintf("Merge pull request #%d in PROJ/repo\n%s", pr, body),
		Author:  "dev",
	}
}

func newTestAssembler(t *testing.T, tracker driven.IssueTracker, cfg application.AssemblerConfig) *application.ModelAssembler {
	t.Helper()
	if cfg.TrackerURL == "" {
		cfg.TrackerURL = "https://jira.example.com"
	}
	if cfg.Fields == (application.FieldNames{}) {
		cfg.Fields = application.DefaultFieldNames()
	}
	return application.NewModelAssembler(
		tracker,
		newTestParser(t),
		application.NewIssueCategorizer([]string{"Story", "Bug"}, nil),
		application.NewIssueValidator(cfg.FixVersions, []string{"Done"}),
		cfg,
	)
}

func reportKeys(issues []model.ReportIssue) []string {
	keys := make([]string, 0, len(issues))
	for _, i := range issues {
		keys = append(keys, i.Key)
	}
	return keys
}

// --- Tests ---

func TestModelAssembler_Assemble_CorrelatesCommitsAndIssues(t *testing.T) {
	bug := doneBug("HA-4935")
	bug.Fields = map[string]any{
		"Defect_Id":         "DEFECT_12, defect_7",
		"Requirement VA ID": "",
		"Release Notes":     "Fixed the login page",
	}
	tracker := &mockIssueTracker{
		byKeys: func(keys []string) (map[string]model.Issue, error) {
			return issuesOf(bug), nil
		},
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{FixVersions: []string{"1.0"}})

	notes, err := a.Assemble(context.Background(), model.Release{
		Version: "1.0",
		Branch:  "master",
		FromRef: "v0.9",
		ToRef:   "v1.0",
		Commits: []model.Commit{
			mergeCommit("c1", 12, "HA-4935: fix"),
			mergeCommit("c2", 14, "HA-4935: follow-up Defect_12"),
			{ID: "c3", Message: "HA-9999 direct push"},
		},
	}, application.AssembleOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"HA-4935"}, tracker.keysQueried)
	assert.Equal(t, []string{"Bug", "InvalidFixVersion", "InvalidState"}, notes.CategoryNames)

	bugs := notes.Issues("Bug")
	require.Len(t, bugs, 1)
	assert.Equal(t, "12 14", bugs[0].PullRequestIDs)
	assert.Equal(t, "https://jira.example.com/browse/HA-4935", bugs[0].URL)
	assert.Equal(t, "DEFECT_12, defect_7", bugs[0].ID)
	assert.Equal(t, []string{"DEFECT_12", "defect_7"}, bugs[0].DefectIDs)
	assert.Equal(t, "Fixed the login page", bugs[0].ReleaseNotes)
	assert.True(t, bugs[0].IsStatusOK)

	assert.Equal(t, []string{"Defect_12", "Defect_7"}, notes.DefectIDs)
	assert.Equal(t, []string{"HA-4935"}, notes.IssueKeys)
	assert.Equal(t, "https://jira.example.com/issues/?jql=id%20in%20(HA-4935)", notes.AllIssuesURL)

	require.Len(t, notes.CommitsWithDefects, 1)
	assert.Equal(t, "c2", notes.CommitsWithDefects[0].ID)
	assert.Equal(t, []string{"HA-4935"}, notes.CommitsWithDefects[0].JiraIDs)

	assert.Equal(t, 3, notes.CommitCount)
	assert.Equal(t, "master", notes.Branch)
	assert.Equal(t, "v0.9", notes.FromRef)
	assert.Equal(t, "v1.0", notes.ToRef)
	assert.False(t, notes.HasErrors())
	for _, st := range model.QuerySearchTypes {
		msg, ok := notes.Errors[st]
		assert.True(t, ok, "error entry for %s", st)
		assert.Empty(t, msg)
	}
}

func TestModelAssembler_Assemble_KeyQueryWinsOnCollision(t *testing.T) {
	fromVersion := doneBug("HA-10")
	fromVersion.Summary = "from fix version"
	fromKeys := doneBug("HA-10")
	fromKeys.Summary = "from keys"

	tracker := &mockIssueTracker{
		byKeys:     func([]string) (map[string]model.Issue, error) { return issuesOf(fromKeys), nil },
		byVersions: func([]string) (map[string]model.Issue, error) { return issuesOf(fromVersion), nil },
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{FixVersions: []string{"1.0"}})

	notes, err := a.Assemble(context.Background(), model.Release{
		Commits: []model.Commit{mergeCommit("c1", 1, "HA-10")},
	}, application.AssembleOptions{})
	require.NoError(t, err)

	bugs := notes.Issues("Bug")
	require.Len(t, bugs, 1)
	assert.Equal(t, "from keys", bugs[0].Summary)
}

func TestModelAssembler_Assemble_FailedQueryIsRecorded(t *testing.T) {
	tracker := &mockIssueTracker{
		byKeys: func([]string) (map[string]model.Issue, error) {
			return nil, errors.New("connection refused")
		},
		byVersions: func([]string) (map[string]model.Issue, error) {
			return issuesOf(doneBug("HA-20")), nil
		},
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{FixVersions: []string{"1.0"}})

	notes, err := a.Assemble(context.Background(), model.Release{
		Commits: []model.Commit{mergeCommit("c1", 1, "HA-10")},
	}, application.AssembleOptions{})
	require.NoError(t, err)

	assert.Equal(t, "connection refused", notes.Errors[model.SearchGeneric])
	assert.Empty(t, notes.Errors[model.SearchFixVersion])
	assert.True(t, notes.HasErrors())
	assert.Equal(t, []string{"HA-20"}, reportKeys(notes.Issues("Bug")))
}

func TestModelAssembler_Assemble_MalformedIssueAborts(t *testing.T) {
	tracker := &mockIssueTracker{
		byKeys: func([]string) (map[string]model.Issue, error) {
			return nil, fmt.Errorf("subtask HA-3: %w", driven.ErrMalformedIssue)
		},
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{})

	_, err := a.Assemble(context.Background(), model.Release{
		Commits: []model.Commit{mergeCommit("c1", 1, "HA-3")},
	}, application.AssembleOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrMalformedIssue)
}

func TestModelAssembler_Assemble_MalformedFixVersionResultIsRecorded(t *testing.T) {
	tracker := &mockIssueTracker{
		byKeys: func([]string) (map[string]model.Issue, error) {
			return issuesOf(doneBug("HA-3")), nil
		},
		byVersions: func([]string) (map[string]model.Issue, error) {
			return nil, fmt.Errorf("subtask HA-9: %w", driven.ErrMalformedIssue)
		},
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{FixVersions: []string{"1.0"}})

	notes, err := a.Assemble(context.Background(), model.Release{
		Commits: []model.Commit{mergeCommit("c1", 1, "HA-3")},
	}, application.AssembleOptions{})
	require.NoError(t, err)
	require.NotNil(t, notes)

	assert.Contains(t, notes.Errors[model.SearchFixVersion], "HA-9")
	assert.Equal(t, []string{"HA-3"}, reportKeys(notes.Issues("Bug")))
}

func TestModelAssembler_Assemble_InvalidBuckets(t *testing.T) {
	wrongBoth := model.Issue{Key: "HA-30", TypeName: "Bug", Status: "Open", FixVersions: []string{"2.0"}}
	wrongState := model.Issue{Key: "HA-31", TypeName: "Bug", Status: "Open", FixVersions: []string{"1.0"}}
	good := doneBug("HA-32")

	tracker := &mockIssueTracker{
		byKeys: func([]string) (map[string]model.Issue, error) {
			return issuesOf(wrongBoth, wrongState, good), nil
		},
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{FixVersions: []string{"1.0"}})

	notes, err := a.Assemble(context.Background(), model.Release{
		Commits: []model.Commit{mergeCommit("c1", 1, "HA-30 HA-31 HA-32")},
	}, application.AssembleOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"HA-32"}, reportKeys(notes.Issues("Bug")))
	assert.Equal(t, []string{"HA-30"}, reportKeys(notes.Issues("InvalidFixVersion")))
	assert.Equal(t, []string{"HA-30", "HA-31"}, reportKeys(notes.Issues("InvalidState")))
	assert.Equal(t, []string{"HA-32"}, notes.IssueKeys)
	assert.Equal(t, 1, notes.ValidIssueCount())
}

func TestModelAssembler_Assemble_InvalidBucketsOmittedWhenEmpty(t *testing.T) {
	tracker := &mockIssueTracker{
		byKeys: func([]string) (map[string]model.Issue, error) { return issuesOf(doneBug("HA-40")), nil },
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{})

	notes, err := a.Assemble(context.Background(), model.Release{
		Commits: []model.Commit{mergeCommit("c1", 1, "HA-40")},
	}, application.AssembleOptions{})
	require.NoError(t, err)

	assert.NotContains(t, notes.IssuesByCategory, "InvalidFixVersion")
	assert.NotContains(t, notes.IssuesByCategory, "InvalidState")
	assert.Contains(t, notes.CategoryNames, "InvalidFixVersion")
	assert.Contains(t, notes.CategoryNames, "InvalidState")
}

func TestModelAssembler_Assemble_SkipLabelsAndSubtasks(t *testing.T) {
	skipped := doneBug("HA-50")
	skipped.Labels = []string{"internal", "noreleasenotes"}
	subtask := doneBug("HA-51")
	subtask.IsSubtask = true
	subtask.ParentKey = "HA-52"
	parent := doneBug("HA-52")
	parent.TypeName = "Story"

	skippedKnown := doneBug("HA-60")
	skippedKnown.Labels = []string{"noreleasenotes"}

	tracker := &mockIssueTracker{
		byKeys: func([]string) (map[string]model.Issue, error) {
			return issuesOf(skipped, subtask, parent), nil
		},
		byQuery: func(string) (map[string]model.Issue, error) {
			return issuesOf(skippedKnown), nil
		},
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{
		LabelsToSkip:   []string{"noreleasenotes"},
		KnownIssuesJQL: "project = HA",
	})

	notes, err := a.Assemble(context.Background(), model.Release{
		Commits: []model.Commit{mergeCommit("c1", 1, "HA-50 HA-51")},
	}, application.AssembleOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Story", "InvalidFixVersion", "InvalidState"}, notes.CategoryNames)
	assert.Equal(t, []string{"HA-52"}, reportKeys(notes.Issues("Story")))
	assert.Empty(t, notes.KnownIssues)
}

func TestModelAssembler_Assemble_KnownIssuesReconciled(t *testing.T) {
	fixed := doneBug("HA-70")
	open := model.Issue{Key: "HA-71", TypeName: "Bug", Status: "Open"}

	tracker := &mockIssueTracker{
		byKeys: func([]string) (map[string]model.Issue, error) { return issuesOf(fixed), nil },
		byQuery: func(jql string) (map[string]model.Issue, error) {
			assert.Equal(t, `project = HA AND fixVersion = "1.0"`, jql)
			return issuesOf(fixed, open), nil
		},
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{
		KnownIssuesJQL: `project = HA AND fixVersion = "1.0"`,
	})

	notes, err := a.Assemble(context.Background(), model.Release{
		Commits: []model.Commit{mergeCommit("c1", 1, "HA-70")},
	}, application.AssembleOptions{})
	require.NoError(t, err)

	require.Len(t, notes.KnownIssues, 1)
	assert.Equal(t, "HA-71", notes.KnownIssues[0].Key)
	assert.Empty(t, notes.KnownIssues[0].PullRequestIDs)
	assert.False(t, notes.KnownIssues[0].IsStatusOK)
	assert.Equal(t,
		"https://jira.example.com/issues/?jql=project%20=%20HA%20AND%20fixVersion%20=%20%221.0%22",
		notes.KnownIssuesURL)
}

func TestModelAssembler_Assemble_ClientFacingFilter(t *testing.T) {
	facing := doneBug("HA-80")
	facing.Fields = map[string]any{"Release Notes": "Visible to clients"}
	internal := doneBug("HA-81")
	internal.Fields = map[string]any{"Release Notes": nil}
	blank := doneBug("HA-82")
	blank.Fields = map[string]any{"Release Notes": ""}

	tracker := &mockIssueTracker{
		byKeys: func([]string) (map[string]model.Issue, error) { return issuesOf(facing, internal, blank), nil },
	}
	a := newTestAssembler(t, tracker, application.AssemblerConfig{
		ClientFacingFields: []string{"Release Notes"},
	})
	release := model.Release{Commits: []model.Commit{mergeCommit("c1", 1, "HA-80 HA-81 HA-82")}}

	// A present but blank value still marks the issue client facing.
	notes, err := a.Assemble(context.Background(), release, application.AssembleOptions{ClientFacing: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"HA-80", "HA-82"}, reportKeys(notes.Issues("Bug")))

	notes, err = a.Assemble(context.Background(), release, application.AssembleOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"HA-80", "HA-81", "HA-82"}, reportKeys(notes.Issues("Bug")))
}

func TestModelAssembler_Assemble_NoCommits(t *testing.T) {
	a := newTestAssembler(t, &mockIssueTracker{}, application.AssemblerConfig{})

	notes, err := a.Assemble(context.Background(), model.Release{}, application.AssembleOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"InvalidFixVersion", "InvalidState"}, notes.CategoryNames)
	assert.Empty(t, notes.AllIssuesURL)
	assert.Empty(t, notes.KnownIssuesURL)
	assert.NotNil(t, notes.DefectIDs)
	assert.NotNil(t, notes.KnownIssues)
	assert.NotNil(t, notes.CommitsWithDefects)
	assert.Zero(t, notes.CommitCount)
}
