package application

import (
	"strings"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

// IssueValidator holds the two acceptance predicates applied to every
// categorized issue. The predicates are independent: an issue may fail either,
// both or neither.
type IssueValidator struct {
	fixVersions       map[string]struct{}
	completedStatuses []string
}

// NewIssueValidator creates a validator for the configured fix versions and
// completed statuses.
func NewIssueValidator(fixVersions, completedStatuses []string) *IssueValidator {
	set := make(map[string]struct{}, len(fixVersions))
	for _, v := range fixVersions {
		set[v] = struct{}{}
	}
	return &IssueValidator{
		fixVersions:       set,
		completedStatuses: completedStatuses,
	}
}

// FixVersionValid reports whether at least one of the issue's fix versions is
// configured. Every issue is valid when no fix versions are configured.
func (v *IssueValidator) FixVersionValid(issue *model.ReportIssue) bool {
	if len(v.fixVersions) == 0 {
		return true
	}
	if issue == nil {
		return false
	}

	for _, token := range strings.Split(issue.FixVersions, ",") {
		if _, ok := v.fixVersions[strings.TrimSpace(token)]; ok {
			return true
		}
	}
	return false
}

// StateValid reports whether the issue's status is one of the completed
// statuses. A nil issue is never valid.
func (v *IssueValidator) StateValid(issue *model.ReportIssue) bool {
	if issue == nil {
		return false
	}
	return v.IsCompletedStatus(issue.Status)
}

// IsCompletedStatus compares status against the completed statuses, ignoring
// case and surrounding whitespace.
func (v *IssueValidator) IsCompletedStatus(status string) bool {
	status = strings.TrimSpace(status)
	for _, completed := range v.completedStatuses {
		if strings.EqualFold(strings.TrimSpace(completed), status) {
			return true
		}
	}
	return false
}
