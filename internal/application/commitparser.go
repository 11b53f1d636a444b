package application

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

// DefaultPullRequestPattern matches the merge commit subject written by the
// hosting service when a pull request is merged.
const DefaultPullRequestPattern = `Merge pull request #\d+`

const (
	mergeCommitPrefix = "Merge pull request"
	pullRequestPrefix = "Merge pull request #"
)

// ParserPatterns holds the regular expressions used to extract identifiers
// from commit messages.
type ParserPatterns struct {
	IssueKey    string
	DefectID    string // Matched case-insensitively. Empty disables defect extraction.
	PullRequest string // Defaults to DefaultPullRequestPattern.
}

// CommitMessageParser extracts issue keys, defect ids and the pull request id
// from commit messages. Only merge commits are inspected: any message that does
// not start with "Merge pull request" yields no identifiers.
type CommitMessageParser struct {
	issueKeyPattern    *regexp.Regexp
	defectIDPattern    *regexp.Regexp
	pullRequestPattern *regexp.Regexp
}

// NewCommitMessageParser compiles the given patterns.
func NewCommitMessageParser(patterns ParserPatterns) (*CommitMessageParser, error) {
	if patterns.IssueKey == "" {
		return nil, fmt.Errorf("issue key pattern is required")
	}

	issueKey, err := regexp.Compile(patterns.IssueKey)
	if err != nil {
		return nil, fmt.Errorf("compile issue key pattern %q: %w", patterns.IssueKey, err)
	}

	var defectID *regexp.Regexp
	if patterns.DefectID != "" {
		defectID, err = regexp.Compile("(?i)" + patterns.DefectID)
		if err != nil {
			return nil, fmt.Errorf("compile defect id pattern %q: %w", patterns.DefectID, err)
		}
	}

	prPattern := patterns.PullRequest
	if prPattern == "" {
		prPattern = DefaultPullRequestPattern
	}
	pullRequest, err := regexp.Compile(prPattern)
	if err != nil {
		return nil, fmt.Errorf("compile pull request pattern %q: %w", prPattern, err)
	}

	return &CommitMessageParser{
		issueKeyPattern:    issueKey,
		defectIDPattern:    defectID,
		pullRequestPattern: pullRequest,
	}, nil
}

// Parse extracts all identifiers from the commit message.
func (p *CommitMessageParser) Parse(commit model.Commit) model.ParsedCommit {
	return model.ParsedCommit{
		Commit:        commit,
		JiraKeys:      p.JiraKeys(commit.Message),
		DefectIDs:     p.DefectIDs(commit.Message),
		PullRequestID: p.PullRequestID(commit.Message),
	}
}

// JiraKeys returns the distinct issue keys in the message, in order of first
// appearance.
func (p *CommitMessageParser) JiraKeys(message string) []string {
	return matchAll(p.issueKeyPattern, message)
}

// DefectIDs returns the distinct defect ids in the message.
func (p *CommitMessageParser) DefectIDs(message string) []string {
	return matchAll(p.defectIDPattern, message)
}

// PullRequestID returns the numeric pull request id, or "" unless the message
// matches the pull request pattern exactly once.
func (p *CommitMessageParser) PullRequestID(message string) string {
	matches := matchAll(p.pullRequestPattern, message)
	if len(matches) != 1 {
		return ""
	}
	return strings.Replace(matches[0], pullRequestPrefix, "", 1)
}

func matchAll(re *regexp.Regexp, text string) []string {
	if re == nil || !strings.HasPrefix(text, mergeCommitPrefix) {
		return []string{}
	}

	found := re.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(found))
	matches := make([]string, 0, len(found))
	for _, m := range found {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		matches = append(matches, m)
	}
	return matches
}
