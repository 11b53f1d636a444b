package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

// ErrMalformedIssue is returned when the tracker hands back an issue whose
// shape cannot be trusted, such as a subtask without a parent key. It is the
// only tracker error that aborts report assembly.
var ErrMalformedIssue = errors.New("malformed issue data")

// IssueTracker defines the driven port for querying the issue tracker. Each
// query returns issues indexed by key. Empty input yields an empty map without
// contacting the tracker.
type IssueTracker interface {
	// IssuesByKeys fetches the given issues. Parents of returned subtasks that
	// are not already part of the result are fetched and added.
	IssuesByKeys(ctx context.Context, keys []string) (map[string]model.Issue, error)
	// IssuesByFixVersions fetches every issue tagged with one of the versions.
	IssuesByFixVersions(ctx context.Context, versions []string) (map[string]model.Issue, error)
	// IssuesByQuery runs a raw JQL query.
	IssuesByQuery(ctx context.Context, jql string) (map[string]model.Issue, error)
}
