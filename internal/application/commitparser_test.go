package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/relnotesgen/internal/application"
	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

const testIssuePattern = `((HA)|(CP))-\d\d+`

func newTestParser(t *testing.T) *application.CommitMessageParser {
	t.Helper()
	p, err := application.NewCommitMessageParser(application.ParserPatterns{
		IssueKey: testIssuePattern,
		DefectID: `defect[_ ]?\d+`,
	})
	require.NoError(t, err)
	return p
}

func TestCommitMessageParser_MergeCommit(t *testing.T) {
	p := newTestParser(t)

	parsed := p.Parse(model.Commit{
		ID:      "abc123",
		Message: "Merge pull request #12 in X\nHA-4935: fix",
		Author:  "dev",
	})

	assert.Equal(t, []string{"HA-4935"}, parsed.JiraKeys)
	assert.Equal(t, "12", parsed.PullRequestID)
	assert.Empty(t, parsed.DefectIDs)
	assert.True(t, parsed.HasPullRequest())
	assert.Equal(t, "abc123", parsed.Commit.ID)
}

func TestCommitMessageParser_IgnoresNonMergeCommits(t *testing.T) {
	p := newTestParser(t)

	msg := "HA-4935: fix DEFECT_77, see Merge pull request #12"
	assert.Empty(t, p.JiraKeys(msg))
	assert.Empty(t, p.DefectIDs(msg))
	assert.Empty(t, p.PullRequestID(msg))
	assert.NotNil(t, p.JiraKeys(msg))
}

func TestCommitMessageParser_EmptyMessage(t *testing.T) {
	p := newTestParser(t)

	parsed := p.Parse(model.Commit{})
	assert.Empty(t, parsed.JiraKeys)
	assert.Empty(t, parsed.DefectIDs)
	assert.Empty(t, parsed.PullRequestID)
	assert.False(t, parsed.HasPullRequest())
}

func TestCommitMessageParser_JiraKeysDeduplicated(t *testing.T) {
	p := newTestParser(t)

	msg := "Merge pull request #765 in PROJ/repo from feature/HA-9779 to master\n" +
		"* commit 'abc':\n  CP-45 HA-1 fix\n  HA-9779 follow-up\n  CP-45 again"
	assert.Equal(t, []string{"HA-9779", "CP-45"}, p.JiraKeys(msg))
}

func TestCommitMessageParser_DefectIDsCaseInsensitive(t *testing.T) {
	p := newTestParser(t)

	msg := "Merge pull request #3 in X\nFixes Defect_123 and DEFECT 9 and defect123, Defect_123"
	assert.Equal(t, []string{"Defect_123", "DEFECT 9", "defect123"}, p.DefectIDs(msg))
}

func TestCommitMessageParser_PullRequestRequiresSingleMatch(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{name: "single", message: "Merge pull request #4821 in X", want: "4821"},
		{name: "none", message: "Merge pull request from fork", want: ""},
		{name: "two", message: "Merge pull request #1 in X\nMerge pull request #2 in Y", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.PullRequestID(tt.message))
		})
	}
}

func TestNewCommitMessageParser_Errors(t *testing.T) {
	_, err := application.NewCommitMessageParser(application.ParserPatterns{})
	require.Error(t, err)

	_, err = application.NewCommitMessageParser(application.ParserPatterns{IssueKey: "("})
	require.Error(t, err)

	_, err = application.NewCommitMessageParser(application.ParserPatterns{IssueKey: `X-\d+`, DefectID: "["})
	require.Error(t, err)
}

func TestCommitMessageParser_NoDefectPattern(t *testing.T) {
	p, err := application.NewCommitMessageParser(application.ParserPatterns{IssueKey: `X-\d+`})
	require.NoError(t, err)

	assert.Empty(t, p.DefectIDs("Merge pull request #1 in X\ndefect_1"))
	assert.Equal(t, []string{"X-1"}, p.JiraKeys("Merge pull request #1 in X\nX-1"))
}
