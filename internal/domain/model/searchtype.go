package model

// SearchType tags where an issue came from or why it was rejected. The set is
// closed; validity is fixed per value.
type SearchType string

const (
	SearchGeneric           SearchType = "Generic"
	SearchFixVersion        SearchType = "FixVersion"
	SearchKnownIssue        SearchType = "KnownIssue"
	SearchInvalidFixVersion SearchType = "InvalidFixVersion"
	SearchInvalidState      SearchType = "InvalidState"
)

// QuerySearchTypes are the three tracker queries issued per report, in the
// order their error messages are displayed.
var QuerySearchTypes = []SearchType{SearchGeneric, SearchFixVersion, SearchKnownIssue}

// Title returns the display title, which is also the category name used for
// the invalid buckets.
func (t SearchType) Title() string {
	return string(t)
}

// IsValid reports whether issues tagged with t belong to the valid part of
// the report.
func (t SearchType) IsValid() bool {
	switch t {
	case SearchGeneric, SearchFixVersion, SearchKnownIssue:
		return true
	default:
		return false
	}
}
