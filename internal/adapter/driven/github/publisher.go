package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReportPublisher = (*Client)(nil)

// Publish commits content to path on the configured branch, creating the file
// or updating it in place when it already exists.
func (c *Client) Publish(ctx context.Context, path string, content []byte, message string) error {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
	}
	var getOpts *gh.RepositoryContentGetOptions
	if c.branch != "" {
		opts.Branch = gh.Ptr(c.branch)
		getOpts = &gh.RepositoryContentGetOptions{Ref: c.branch}
	}

	existing, _, resp, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, getOpts)
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		if _, _, err := c.gh.Repositories.UpdateFile(ctx, c.owner, c.repo, path, opts); err != nil {
			return fmt.Errorf("updating %s: %w", path, err)
		}
		slog.Info("report file updated", "repo", c.owner+"/"+c.repo, "path", path)
	case isNotFound(resp, err):
		if _, _, err := c.gh.Repositories.CreateFile(ctx, c.owner, c.repo, path, opts); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		slog.Info("report file created", "repo", c.owner+"/"+c.repo, "path", path)
	case err != nil:
		return fmt.Errorf("checking %s: %w", path, err)
	default:
		return fmt.Errorf("checking %s: path is a directory", path)
	}

	return nil
}

func isNotFound(resp *gh.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}
