// Package github implements the VersionControl and ReportPublisher ports using
// the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VersionControl = (*Client)(nil)

const headRef = "HEAD"

// Client implements driven.VersionControl for one repository.
type Client struct {
	gh     *gh.Client
	owner  string
	repo   string
	branch string // Empty means the repository default branch.
}

// NewClient creates a new GitHub API client for repoFullName ("owner/repo")
// with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token, repoFullName, branch string) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client, owner: owner, repo: repo, branch: branch}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, repoFullName, branch string) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client, owner: owner, repo: repo, branch: branch}, nil
}

// ReadByTags reads the commits between two tags. An empty toTag reads up to
// the branch head.
func (c *Client) ReadByTags(ctx context.Context, fromTag, toTag string) (*model.Release, error) {
	version := toTag
	if version == "" {
		version = headRef
	}
	return c.readRange(ctx, fromTag, toTag, version)
}

// ReadByCommits reads the commits between two commit SHAs. An empty toCommit
// reads up to the branch head.
func (c *Client) ReadByCommits(ctx context.Context, fromCommit, toCommit string) (*model.Release, error) {
	version := headRef
	if toCommit != "" {
		version = shortSHA(toCommit)
	}
	return c.readRange(ctx, fromCommit, toCommit, version)
}

// ReadLatestRelease reads the commits between the two most recent tags on the
// branch. Recency follows branch history, not the tag listing order, which
// GitHub does not sort by date. With a single tag the window runs from that
// tag to the branch head.
func (c *Client) ReadLatestRelease(ctx context.Context) (*model.Release, error) {
	tagsBySHA, err := c.tagsBySHA(ctx)
	if err != nil {
		return nil, err
	}
	if len(tagsBySHA) == 0 {
		return nil, fmt.Errorf("no tags in %s/%s to derive the latest release from", c.owner, c.repo)
	}

	branch, err := c.resolveBranch(ctx)
	if err != nil {
		return nil, err
	}

	tags, err := c.latestTagsOnBranch(ctx, branch, tagsBySHA, 2)
	if err != nil {
		return nil, err
	}

	switch len(tags) {
	case 0:
		return nil, fmt.Errorf("no tag reachable from %s in the last %d commits", branch, maxHistoryPages*pageSize)
	case 1:
		return c.ReadByTags(ctx, tags[0], "")
	default:
		return c.ReadByTags(ctx, tags[1], tags[0])
	}
}

const (
	pageSize = 100
	// maxHistoryPages bounds the branch walk when looking for tagged commits.
	maxHistoryPages = 10
)

// tagsBySHA maps each tagged commit to a tag name. When several tags point at
// the same commit the greatest name wins.
func (c *Client) tagsBySHA(ctx context.Context) (map[string]string, error) {
	opts := &gh.ListOptions{PerPage: pageSize}
	bySHA := make(map[string]string)

	for {
		tags, resp, err := c.gh.Repositories.ListTags(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing tags for %s/%s (page %d): %w", c.owner, c.repo, opts.Page, err)
		}
		logRateLimit(resp, "tags", opts.Page, len(tags))

		for _, tag := range tags {
			sha, name := tag.GetCommit().GetSHA(), tag.GetName()
			if sha == "" || name == "" {
				continue
			}
			if current, ok := bySHA[sha]; !ok || name > current {
				bySHA[sha] = name
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return bySHA, nil
}

// latestTagsOnBranch walks the branch newest first and returns up to limit
// tag names in the order their commits are met.
func (c *Client) latestTagsOnBranch(ctx context.Context, branch string, tagsBySHA map[string]string, limit int) ([]string, error) {
	opts := &gh.CommitsListOptions{SHA: branch, ListOptions: gh.ListOptions{PerPage: pageSize}}
	var found []string

	for page := 0; page < maxHistoryPages; page++ {
		commits, resp, err := c.gh.Repositories.ListCommits(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing commits of %s (page %d): %w", branch, opts.Page, err)
		}
		logRateLimit(resp, "commits", opts.Page, len(commits))

		for _, rc := range commits {
			if name, ok := tagsBySHA[rc.GetSHA()]; ok {
				found = append(found, name)
				if len(found) == limit {
					return found, nil
				}
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return found, nil
}

func (c *Client) readRange(ctx context.Context, from, to, version string) (*model.Release, error) {
	branch, err := c.resolveBranch(ctx)
	if err != nil {
		return nil, err
	}

	head := to
	if head == "" {
		head = branch
	}

	commits, err := c.compare(ctx, from, head)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("%s...%s: %w", from, head, driven.ErrNoCommits)
	}

	toRef := to
	if toRef == "" {
		toRef = headRef
	}

	return &model.Release{
		Version: version,
		Branch:  branch,
		FromRef: from,
		ToRef:   toRef,
		Commits: commits,
	}, nil
}

// compare lists the commits reachable from head but not from base. It handles
// pagination automatically.
func (c *Client) compare(ctx context.Context, base, head string) ([]model.Commit, error) {
	opts := &gh.ListOptions{PerPage: pageSize}
	var commits []model.Commit

	for {
		cmp, resp, err := c.gh.Repositories.CompareCommits(ctx, c.owner, c.repo, base, head, opts)
		if err != nil {
			return nil, fmt.Errorf("comparing %s...%s (page %d): %w", base, head, opts.Page, err)
		}

		logRateLimit(resp, "compare", opts.Page, len(cmp.Commits))

		for _, rc := range cmp.Commits {
			commits = append(commits, mapCommit(rc))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return commits, nil
}

func (c *Client) resolveBranch(ctx context.Context) (string, error) {
	if c.branch != "" {
		return c.branch, nil
	}

	repo, _, err := c.gh.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return "", fmt.Errorf("fetching repository %s/%s: %w", c.owner, c.repo, err)
	}
	return repo.GetDefaultBranch(), nil
}

func mapCommit(rc *gh.RepositoryCommit) model.Commit {
	author := rc.GetCommit().GetAuthor().GetName()
	if author == "" {
		author = rc.GetAuthor().GetLogin()
	}
	return model.Commit{
		ID:      rc.GetSHA(),
		Message: rc.GetCommit().GetMessage(),
		Author:  author,
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
