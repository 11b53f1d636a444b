package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
)

// ErrNoCommits is returned when a release window contains no commits.
var ErrNoCommits = errors.New("no commits found in the specified range")

// VersionControl defines the driven port for reading a release window from
// the version-control backend. An empty "to" reference means the branch head.
type VersionControl interface {
	ReadByTags(ctx context.Context, fromTag, toTag string) (*model.Release, error)
	ReadByCommits(ctx context.Context, fromCommit, toCommit string) (*model.Release, error)
	// ReadLatestRelease reads the window between the two most recent tags.
	ReadLatestRelease(ctx context.Context) (*model.Release, error)
}

// ReportPublisher defines the driven port for pushing a generated report back
// to the repository.
type ReportPublisher interface {
	// Publish creates or replaces the file at path with content.
	Publish(ctx context.Context, path string, content []byte, message string) error
}
