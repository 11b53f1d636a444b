package jira

// searchResponse is the body of GET /rest/api/2/search with expand=names.
type searchResponse struct {
	StartAt    int               `json:"startAt"`
	MaxResults int               `json:"maxResults"`
	Total      int               `json:"total"`
	Issues     []rawIssue        `json:"issues"`
	Names      map[string]string `json:"names"` // Field id to display name.
}

// rawIssue keeps fields undecoded so custom fields survive in any shape.
type rawIssue struct {
	Key    string         `json:"key"`
	Self   string         `json:"self"`
	Fields map[string]any `json:"fields"`
}

// issueFields is decoded from rawIssue.Fields with mapstructure. Everything
// not named here lands in Custom.
type issueFields struct {
	Summary     string         `mapstructure:"summary"`
	IssueType   *issueType     `mapstructure:"issuetype"`
	Status      *namedValue    `mapstructure:"status"`
	Priority    *namedValue    `mapstructure:"priority"`
	Labels      []string       `mapstructure:"labels"`
	FixVersions []namedValue   `mapstructure:"fixVersions"`
	Parent      map[string]any `mapstructure:"parent"`
	Custom      map[string]any `mapstructure:",remain"`
}

type issueType struct {
	Name    string `mapstructure:"name"`
	Subtask bool   `mapstructure:"subtask"`
}

type namedValue struct {
	Name string `mapstructure:"name"`
}
