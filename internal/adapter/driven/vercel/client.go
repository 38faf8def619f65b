// Package vercel implements the VercelClient port against the Vercel REST API.
package vercel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/panopticron/panopticron/internal/domain/model"
	"github.com/panopticron/panopticron/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VercelClient = (*Client)(nil)

// maxProjectPages caps the projects-list pagination loop so a buggy or
// malicious "until" cursor can never spin the sync worker forever.
const maxProjectPages = 20

// Client is a thin, retry-less wrapper over the Vercel REST API. Project
// listing propagates errors (discovery must be complete or fail); the
// deployment fetch is best-effort and reports failures as nil, nil.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	teamSlug   string
}

// NewClient creates a Vercel API client with an in-memory ETag cache
// transport, mirroring the GitHub adapter's transport stack. teamSlug is the
// Vercel team/account slug the monitored projects live under; it is stamped
// onto every listed project.
func NewClient(token, teamSlug string) *Client {
	return &Client{
		httpClient: httpcache.NewMemoryCacheTransport().Client(),
		baseURL:    "https://api.vercel.com",
		token:      token,
		teamSlug:   teamSlug,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token, teamSlug string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
		teamSlug:   teamSlug,
	}
}

// projectsPage is the wire shape of GET /v9/projects.
type projectsPage struct {
	Projects []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Framework   string `json:"framework"`
		NodeVersion string `json:"nodeVersion"`
		UpdatedAt   int64  `json:"updatedAt"`
		Link        *struct {
			Type string `json:"type"`
			Org  string `json:"org"`
			Repo string `json:"repo"`
		} `json:"link"`
	} `json:"projects"`
	Pagination struct {
		Count int   `json:"count"`
		Next  int64 `json:"next"`
	} `json:"pagination"`
}

// deploymentsPage is the wire shape of GET /v6/deployments.
type deploymentsPage struct {
	Deployments []struct {
		UID     string `json:"uid"`
		URL     string `json:"url"`
		State   string `json:"state"`
		Target  string `json:"target"`
		Created int64  `json:"created"`
		Meta    struct {
			GitHubCommitSHA string `json:"githubCommitSha"`
			GitHubCommitRef string `json:"githubCommitRef"`
		} `json:"meta"`
	} `json:"deployments"`
}

// ListProjects pages through the full project list using the "until"
// timestamp cursor. Any page error fails the whole call: Vercel is the source
// of project discovery, and a silently truncated list would orphan projects.
func (c *Client) ListProjects(ctx context.Context) ([]model.VercelProject, error) {
	var all []model.VercelProject
	var until int64

	for page := 1; page <= maxProjectPages; page++ {
		query := url.Values{"limit": {"100"}}
		if until > 0 {
			query.Set("until", strconv.FormatInt(until, 10))
		}

		var body projectsPage
		if err := c.get(ctx, "/v9/projects", query, &body); err != nil {
			return nil, fmt.Errorf("listing projects (page %d): %w", page, err)
		}

		for _, p := range body.Projects {
			proj := model.VercelProject{
				ID:          p.ID,
				Name:        p.Name,
				AccountSlug: c.teamSlug,
				Framework:   p.Framework,
				NodeVersion: p.NodeVersion,
				UpdatedAt:   time.UnixMilli(p.UpdatedAt).UTC(),
			}
			if p.Link != nil && p.Link.Type == "github" && p.Link.Org != "" && p.Link.Repo != "" {
				proj.GitHubRepoURL = "https://github.com/" + p.Link.Org + "/" + p.Link.Repo
			}
			all = append(all, proj)
		}

		if body.Pagination.Next == 0 {
			break
		}
		until = body.Pagination.Next
	}

	if all == nil {
		all = []model.VercelProject{}
	}

	return all, nil
}

// GetLatestProductionDeployment returns the single most recent
// production-target deployment of the project, or nil, nil when none exists.
// API-level failures (non-200 responses) are logged and also reported as
// nil, nil: this fetch is best-effort and must never abort the surrounding
// per-project sync loop. Transport-level failures (connection refused,
// canceled context) do surface as errors so the sync worker can count them.
func (c *Client) GetLatestProductionDeployment(ctx context.Context, projectID string) (*model.VercelDeployment, error) {
	query := url.Values{
		"projectId": {projectID},
		"target":    {"production"},
		"limit":     {"1"},
	}

	var body deploymentsPage
	if err := c.get(ctx, "/v6/deployments", query, &body); err != nil {
		var statusErr *apiStatusError
		if !errors.As(err, &statusErr) {
			return nil, fmt.Errorf("fetching latest production deployment for %s: %w", projectID, err)
		}
		slog.Warn("vercel deployment fetch failed",
			"project_id", projectID,
			"error", err,
		)
		return nil, nil
	}

	if len(body.Deployments) == 0 {
		return nil, nil
	}

	d := body.Deployments[0]
	return &model.VercelDeployment{
		ID:         d.UID,
		URL:        d.URL,
		ReadyState: d.State,
		Target:     d.Target,
		CommitSHA:  d.Meta.GitHubCommitSHA,
		Branch:     d.Meta.GitHubCommitRef,
		CreatedAt:  time.UnixMilli(d.Created).UTC(),
	}, nil
}

// apiStatusError marks a completed request that came back non-200, as
// opposed to a transport-level failure.
type apiStatusError struct {
	path   string
	status int
	body   string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("request %s: status %d: %s", e.path, e.status, e.body)
}

// get performs one authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a short prefix of the body for the error message; Vercel
		// returns JSON error envelopes but the status line is what matters.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apiStatusError{path: path, status: resp.StatusCode, body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}
