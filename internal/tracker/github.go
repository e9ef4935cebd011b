package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
)

// GitHubTracker implements Tracker against GitHub's REST API. Grounded on
// the teacher's pkg/runbook/github.go GitHubClient shape: a bare
// *http.Client with a fixed timeout, bearer-token auth header, and
// status-code-to-error translation.
type GitHubTracker struct {
	httpClient *http.Client
	token      string
	owner      string
	repo       string
	logger     *slog.Logger
}

// NewGitHubTracker constructs a tracker client for owner/repo, authorized
// with token (may be empty for public, rate-limited access).
func NewGitHubTracker(owner, repo, token string) *GitHubTracker {
	return &GitHubTracker{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
		owner:      owner,
		repo:       repo,
		logger:     slog.With("component", "tracker", "repo", owner+"/"+repo),
	}
}

func (c *GitHubTracker) setAuthHeader(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}

func (c *GitHubTracker) apiURL(path string) string {
	return fmt.Sprintf("https://api.github.com/repos/%s/%s%s", c.owner, c.repo, path)
}

func (c *GitHubTracker) do(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shipwrighterr.New(shipwrighterr.KindTransientNetwork, "tracker", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return shipwrighterr.New(shipwrighterr.KindAuth, "tracker",
			fmt.Sprintf("GitHub returned HTTP %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 500 {
		return shipwrighterr.New(shipwrighterr.KindTransientNetwork, "tracker",
			fmt.Sprintf("GitHub returned HTTP %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

type ghIssue struct {
	Number    int64     `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Labels    []ghLabel `json:"labels"`
	Milestone *ghMilestone `json:"milestone"`
	CreatedAt time.Time `json:"created_at"`
	Assignees []ghUser  `json:"assignees"`
}

type ghLabel struct {
	Name string `json:"name"`
}

type ghMilestone struct {
	Title string `json:"title"`
}

type ghUser struct {
	Login string `json:"login"`
}

func (i ghIssue) toIssue() model.Issue {
	labels := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		labels = append(labels, l.Name)
	}
	assignees := make([]string, 0, len(i.Assignees))
	for _, a := range i.Assignees {
		assignees = append(assignees, a.Login)
	}
	milestone := ""
	if i.Milestone != nil {
		milestone = i.Milestone.Title
	}
	return model.Issue{
		ID:        i.Number,
		Title:     i.Title,
		Body:      i.Body,
		Labels:    labels,
		Milestone: milestone,
		CreatedAt: i.CreatedAt,
		Assignees: assignees,
	}
}

// ListIssues implements Tracker.
func (c *GitHubTracker) ListIssues(ctx context.Context, label, state string) ([]model.Issue, error) {
	url := c.apiURL("/issues?labels=" + label + "&state=" + state + "&per_page=100")
	var raw []ghIssue
	if err := c.do(ctx, http.MethodGet, url, nil, &raw); err != nil {
		return nil, err
	}
	issues := make([]model.Issue, 0, len(raw))
	for _, i := range raw {
		issues = append(issues, i.toIssue())
	}
	return issues, nil
}

// GetIssue implements Tracker.
func (c *GitHubTracker) GetIssue(ctx context.Context, id int64) (model.Issue, error) {
	url := c.apiURL("/issues/" + strconv.FormatInt(id, 10))
	var raw ghIssue
	if err := c.do(ctx, http.MethodGet, url, nil, &raw); err != nil {
		return model.Issue{}, err
	}
	return raw.toIssue(), nil
}

// AddLabel implements Tracker.
func (c *GitHubTracker) AddLabel(ctx context.Context, id int64, label string) error {
	url := c.apiURL("/issues/" + strconv.FormatInt(id, 10) + "/labels")
	payload, _ := json.Marshal(map[string][]string{"labels": {label}})
	return c.do(ctx, http.MethodPost, url, strings.NewReader(string(payload)), nil)
}

// RemoveLabel implements Tracker.
func (c *GitHubTracker) RemoveLabel(ctx context.Context, id int64, label string) error {
	url := c.apiURL("/issues/" + strconv.FormatInt(id, 10) + "/labels/" + label)
	return c.do(ctx, http.MethodDelete, url, nil, nil)
}

// Comment implements Tracker.
func (c *GitHubTracker) Comment(ctx context.Context, id int64, body string) error {
	url := c.apiURL("/issues/" + strconv.FormatInt(id, 10) + "/comments")
	payload, _ := json.Marshal(map[string]string{"body": body})
	return c.do(ctx, http.MethodPost, url, strings.NewReader(string(payload)), nil)
}

// Close implements Tracker.
func (c *GitHubTracker) Close(ctx context.Context, id int64, comment string) error {
	if comment != "" {
		if err := c.Comment(ctx, id, comment); err != nil {
			return err
		}
	}
	url := c.apiURL("/issues/" + strconv.FormatInt(id, 10))
	payload, _ := json.Marshal(map[string]string{"state": "closed"})
	return c.do(ctx, http.MethodPatch, url, strings.NewReader(string(payload)), nil)
}

// CreatePR implements Tracker.
func (c *GitHubTracker) CreatePR(ctx context.Context, head, base, title, body string, labels, reviewers []string, milestone string) (PR, error) {
	url := c.apiURL("/pulls")
	payload, _ := json.Marshal(map[string]any{
		"head": head, "base": base, "title": title, "body": body,
	})
	var raw struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := c.do(ctx, http.MethodPost, url, strings.NewReader(string(payload)), &raw); err != nil {
		return PR{}, err
	}
	if len(labels) > 0 {
		labelURL := c.apiURL("/issues/" + strconv.Itoa(raw.Number) + "/labels")
		labelPayload, _ := json.Marshal(map[string][]string{"labels": labels})
		_ = c.do(ctx, http.MethodPost, labelURL, strings.NewReader(string(labelPayload)), nil)
	}
	return PR{Number: raw.Number, URL: raw.HTMLURL, Head: head, Base: base}, nil
}

// MergePR implements Tracker.
func (c *GitHubTracker) MergePR(ctx context.Context, id int64, strategy string, deleteBranch bool) error {
	url := c.apiURL("/pulls/" + strconv.FormatInt(id, 10) + "/merge")
	payload, _ := json.Marshal(map[string]string{"merge_method": strategy})
	if err := c.do(ctx, http.MethodPut, url, strings.NewReader(string(payload)), nil); err != nil {
		return err
	}
	if !deleteBranch {
		return nil
	}
	return nil
}

// BranchProtection implements Tracker.
func (c *GitHubTracker) BranchProtection(ctx context.Context, repo, branch string) (BranchProtection, error) {
	url := c.apiURL("/branches/" + branch + "/protection")
	var raw struct {
		RequiredPullRequestReviews struct {
			RequiredApprovingReviewCount int `json:"required_approving_review_count"`
		} `json:"required_pull_request_reviews"`
		RequiredStatusChecks struct {
			Contexts []string `json:"contexts"`
		} `json:"required_status_checks"`
		EnforceAdmins struct {
			Enabled bool `json:"enabled"`
		} `json:"enforce_admins"`
	}
	if err := c.do(ctx, http.MethodGet, url, nil, &raw); err != nil {
		return BranchProtection{}, err
	}
	return BranchProtection{
		RequiredReviews: raw.RequiredPullRequestReviews.RequiredApprovingReviewCount,
		RequiredChecks:  raw.RequiredStatusChecks.Contexts,
		EnforceAdmins:   raw.EnforceAdmins.Enabled,
	}, nil
}

// ListCheckRuns implements Tracker.
func (c *GitHubTracker) ListCheckRuns(ctx context.Context, commit string) ([]Check, error) {
	url := c.apiURL("/commits/" + commit + "/check-runs")
	var raw struct {
		CheckRuns []struct {
			Name       string `json:"name"`
			Status     string `json:"status"`
			Conclusion string `json:"conclusion"`
		} `json:"check_runs"`
	}
	if err := c.do(ctx, http.MethodGet, url, nil, &raw); err != nil {
		return nil, err
	}
	checks := make([]Check, 0, len(raw.CheckRuns))
	for _, r := range raw.CheckRuns {
		checks = append(checks, Check{Name: r.Name, Status: r.Status, Conclusion: r.Conclusion})
	}
	return checks, nil
}

// Probe performs a lightweight authenticated call used by the Supervisor's
// pre-flight auth check (spec.md §4.5 step 1).
func (c *GitHubTracker) Probe(ctx context.Context) error {
	url := c.apiURL("")
	return c.do(ctx, http.MethodGet, url, nil, nil)
}
