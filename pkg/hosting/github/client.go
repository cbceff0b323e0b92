// Package github lists an organization's repositories through the GitHub
// REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/httputil"
)

const (
	defaultBaseURL = "https://api.github.com"
	perPage        = 100
)

// Repo is the slice of repository metadata the scanner needs.
type Repo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	Archived      bool   `json:"archived"`
	DefaultBranch string `json:"default_branch"`
	CloneURL      string `json:"clone_url"`
}

// Client talks to one GitHub host. BaseURL is overridable for GitHub
// Enterprise and for tests.
type Client struct {
	BaseURL string

	http  *http.Client
	token string
}

// NewClient creates a client. An empty token means unauthenticated access,
// which only reaches public repositories.
func NewClient(token string) *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		http:    httputil.NewHTTPClient(),
		token:   token,
	}
}

// ListOrgRepos pages through every repository of the organization. Set
// includePrivate to false to drop private repositories from the result;
// the API already omits them when the token cannot see them.
func (c *Client) ListOrgRepos(ctx context.Context, org string, includePrivate bool) ([]Repo, error) {
	var repos []Repo
	for page := 1; ; page++ {
		batch, err := c.listPage(ctx, org, page)
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			if r.Private && !includePrivate {
				continue
			}
			repos = append(repos, r)
		}
		if len(batch) < perPage {
			return repos, nil
		}
	}
}

func (c *Client) listPage(ctx context.Context, org string, page int) ([]Repo, error) {
	u := fmt.Sprintf("%s/orgs/%s/repos?type=all&per_page=%d&page=%d",
		c.BaseURL, url.PathEscape(org), perPage, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "build request for %s", org)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.New(errors.ErrCodeNotFound, "organization %q not found", org)
	case http.StatusUnauthorized:
		return nil, errors.New(errors.ErrCodeUnauthorized, "token rejected listing %q", org)
	case http.StatusForbidden:
		return nil, errors.New(errors.ErrCodeForbidden, "access to %q denied (rate limit or scope)", org)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := errors.New(errors.ErrCodeNetwork, "listing %q: status %d: %s", org, resp.StatusCode, body)
		if resp.StatusCode >= 500 {
			return nil, &httputil.RetryableError{Err: err}
		}
		return nil, err
	}

	var batch []Repo
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode repo list for %q", org)
	}
	return batch, nil
}
