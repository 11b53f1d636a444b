// Package jira implements the IssueTracker port over the Jira REST API v2.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/ericfisherdev/relnotesgen/internal/domain/model"
	"github.com/ericfisherdev/relnotesgen/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IssueTracker = (*Client)(nil)

const (
	pageSize     = 100
	keyBatchSize = 50
)

// Client implements driven.IssueTracker with JQL searches.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the tracker at baseURL. httpClient carries
// authentication, see NewHTTPClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// IssuesByKeys fetches the issues with the given keys. Subtasks pull in their
// parent issue when it is not already part of the result; a subtask without
// a parent key fails with driven.ErrMalformedIssue.
func (c *Client) IssuesByKeys(ctx context.Context, keys []string) (map[string]model.Issue, error) {
	issues, err := c.searchKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	var missingParents []string
	for _, key := range slices.Sorted(maps.Keys(issues)) {
		issue := issues[key]
		if !issue.IsSubtask {
			continue
		}
		if issue.ParentKey == "" {
			return nil, fmt.Errorf("subtask %s has no parent key: %w", key, driven.ErrMalformedIssue)
		}
		if _, ok := issues[issue.ParentKey]; ok || slices.Contains(missingParents, issue.ParentKey) {
			continue
		}
		missingParents = append(missingParents, issue.ParentKey)
	}

	if len(missingParents) > 0 {
		slog.Debug("fetching parents of subtasks", "parents", missingParents)
		parents, err := c.searchKeys(ctx, missingParents)
		if err != nil {
			return nil, fmt.Errorf("fetching parent issues: %w", err)
		}
		maps.Copy(issues, parents)
	}

	return issues, nil
}

// IssuesByFixVersions fetches every issue targeting one of the versions.
func (c *Client) IssuesByFixVersions(ctx context.Context, versions []string) (map[string]model.Issue, error) {
	if len(versions) == 0 {
		return map[string]model.Issue{}, nil
	}

	quoted := make([]string, 0, len(versions))
	for _, v := range versions {
		quoted = append(quoted, strconv.Quote(v))
	}
	return c.search(ctx, "fixVersion in ("+strings.Join(quoted, ", ")+")")
}

// IssuesByQuery fetches every issue matching the JQL text.
func (c *Client) IssuesByQuery(ctx context.Context, jql string) (map[string]model.Issue, error) {
	if strings.TrimSpace(jql) == "" {
		return map[string]model.Issue{}, nil
	}
	return c.search(ctx, jql)
}

func (c *Client) searchKeys(ctx context.Context, keys []string) (map[string]model.Issue, error) {
	issues := make(map[string]model.Issue, len(keys))
	for batch := range slices.Chunk(keys, keyBatchSize) {
		found, err := c.search(ctx, "key in ("+strings.Join(batch, ", ")+")")
		if err != nil {
			return nil, err
		}
		maps.Copy(issues, found)
	}
	return issues, nil
}

// search runs a JQL search and follows pagination until every match is read.
func (c *Client) search(ctx context.Context, jql string) (map[string]model.Issue, error) {
	issues := make(map[string]model.Issue)
	startAt := 0

	for {
		page, err := c.searchPage(ctx, jql, startAt)
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Issues {
			issue, err := mapIssue(raw, page.Names)
			if err != nil {
				return nil, err
			}
			issues[issue.Key] = issue
		}

		slog.Debug("jira search page",
			"jql", jql,
			"start_at", startAt,
			"returned", len(page.Issues),
			"total", page.Total,
		)

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}

	return issues, nil
}

func (c *Client) searchPage(ctx context.Context, jql string, startAt int) (*searchResponse, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("startAt", strconv.Itoa(startAt))
	q.Set("maxResults", strconv.Itoa(pageSize))
	q.Set("expand", "names")
	q.Set("validateQuery", "warn")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/api/2/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("searching issues: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return &page, nil
}

// mapIssue converts a raw search hit into a domain Issue. Custom fields are
// exposed both by field id and by display name.
func mapIssue(raw rawIssue, names map[string]string) (model.Issue, error) {
	var f issueFields
	if err := mapstructure.Decode(raw.Fields, &f); err != nil {
		return model.Issue{}, fmt.Errorf("decoding fields of %s: %w", raw.Key, err)
	}

	issue := model.Issue{
		Key:         raw.Key,
		Self:        raw.Self,
		Summary:     f.Summary,
		Labels:      f.Labels,
		FixVersions: make([]string, 0, len(f.FixVersions)),
		Fields:      make(map[string]any, 2*len(f.Custom)),
	}
	if f.IssueType != nil {
		issue.TypeName = f.IssueType.Name
		issue.IsSubtask = f.IssueType.Subtask
	}
	if f.Status != nil {
		issue.Status = f.Status.Name
	}
	if f.Priority != nil {
		issue.Priority = f.Priority.Name
	}
	for _, v := range f.FixVersions {
		issue.FixVersions = append(issue.FixVersions, v.Name)
	}
	for id, value := range f.Custom {
		issue.Fields[id] = value
		if name := names[id]; name != "" {
			issue.Fields[name] = value
		}
	}

	if parentKey, ok := f.Parent["key"].(string); ok {
		issue.ParentKey = parentKey
	}

	return issue, nil
}
