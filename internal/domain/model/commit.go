package model

// Commit is a single version-control commit inside a release window.
type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Author  string `json:"author"`
}

// ParsedCommit pairs a Commit with the identifiers extracted from its message.
// It is built once by the commit message parser and never mutated.
type ParsedCommit struct {
	Commit        Commit
	JiraKeys      []string
	DefectIDs     []string
	PullRequestID string // Empty when the message does not reference exactly one pull request.
}

// HasPullRequest reports whether the commit references a pull request.
func (pc ParsedCommit) HasPullRequest() bool {
	return pc.PullRequestID != ""
}

// Release describes the commit window a report is generated for. It is
// produced by the version-control adapter before assembly starts.
type Release struct {
	Version string
	Branch  string
	FromRef string
	ToRef   string
	Commits []Commit
}
