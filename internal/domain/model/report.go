package model

import "time"

// ReportIssue is the report view over one tracker issue plus the values
// derived from its custom fields.
type ReportIssue struct {
	Key      string   `json:"key"`
	Summary  string   `json:"summary"`
	TypeName string   `json:"type"`
	Priority string   `json:"priority,omitempty"`
	Labels   []string `json:"labels"`

	ID              string   `json:"id"` // Defect id and requirement id, space-joined.
	URL             string   `json:"url"`
	FixedInVersion  string   `json:"fixed_in_version,omitempty"`
	ReleaseNotes    string   `json:"release_notes,omitempty"`
	Impact          string   `json:"impact,omitempty"`
	DetailsOfChange string   `json:"details_of_change,omitempty"`
	FixVersions     string   `json:"fix_versions"`
	DefectIDs       []string `json:"defect_ids"` // Never nil.
	PullRequestIDs  string   `json:"pull_request_ids,omitempty"`
	Status          string   `json:"status"`
	IsStatusOK      bool     `json:"is_status_ok"`
}

// ReportCommit is a commit whose message carries at least one defect id.
type ReportCommit struct {
	ID        string   `json:"id"`
	Message   string   `json:"message"`
	Author    string   `json:"author"`
	DefectIDs []string `json:"defect_ids"`
	JiraIDs   []string `json:"jira_ids"`
}

// ReleaseNotes is the assembled report model. It is built once per run and
// treated as read-only afterwards.
type ReleaseNotes struct {
	CategoryNames      []string                 `json:"category_names"`
	IssuesByCategory   map[string][]ReportIssue `json:"issues_by_category"`
	CommitsWithDefects []ReportCommit           `json:"commits_with_defects"`
	KnownIssues        []ReportIssue            `json:"known_issues"`

	ReleaseVersion string `json:"release_version"`
	FromRef        string `json:"from_ref"`
	ToRef          string `json:"to_ref"`
	CommitCount    int    `json:"commit_count"`
	Branch         string `json:"branch"`

	DefectIDs      []string `json:"defect_ids"`
	IssueKeys      []string `json:"issue_keys"`
	AllIssuesURL   string   `json:"all_issues_url"`
	KnownIssuesURL string   `json:"known_issues_url"`
	FixVersions    []string `json:"fix_versions"`

	// Errors maps each tracker query to its failure message; "" means success.
	Errors map[SearchType]string `json:"errors"`
}

// Issues returns the issues filed under the given category name.
func (n *ReleaseNotes) Issues(category string) []ReportIssue {
	return n.IssuesByCategory[category]
}

// ValidCategoryNames returns the category names excluding the invalid buckets.
func (n *ReleaseNotes) ValidCategoryNames() []string {
	names := make([]string, 0, len(n.CategoryNames))
	for _, name := range n.CategoryNames {
		if name == SearchInvalidFixVersion.Title() || name == SearchInvalidState.Title() {
			continue
		}
		names = append(names, name)
	}
	return names
}

// ValidIssueCount returns the number of issues in the valid categories.
func (n *ReleaseNotes) ValidIssueCount() int {
	count := 0
	for _, name := range n.ValidCategoryNames() {
		count += len(n.IssuesByCategory[name])
	}
	return count
}

// HasErrors reports whether any tracker query failed.
func (n *ReleaseNotes) HasErrors() bool {
	for _, msg := range n.Errors {
		if msg != "" {
			return true
		}
	}
	return false
}

// ReportRecord is one persisted report generation run.
type ReportRecord struct {
	ID          int64
	Version     string
	Branch      string
	FromRef     string
	ToRef       string
	CommitCount int
	IssueCount  int
	HasErrors   bool
	Notes       *ReleaseNotes // Nil in list views.
	HTML        []byte        // Nil in list views.
	CreatedAt   time.Time
}
