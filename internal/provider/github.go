package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	githubAPIBase   = "https://api.github.com"
	githubUserAgent = "promptitude-sync"
)

// GitHubProvider reads repositories through the GitHub REST API.
type GitHubProvider struct {
	baseURL     string
	creds       Credentials
	requireAuth bool
	httpClient  *http.Client
}

// GitHubOption configures a GitHubProvider.
type GitHubOption func(*GitHubProvider)

// WithGitHubBaseURL points the provider at a different API root
// (GitHub Enterprise, or an httptest server).
func WithGitHubBaseURL(base string) GitHubOption {
	return func(p *GitHubProvider) {
		if base != "" {
			p.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithGitHubHTTPClient sets the underlying HTTP client.
func WithGitHubHTTPClient(c *http.Client) GitHubOption {
	return func(p *GitHubProvider) {
		p.httpClient = c
	}
}

// WithRequireAuth refuses anonymous access when no token is configured.
func WithRequireAuth(required bool) GitHubOption {
	return func(p *GitHubProvider) {
		p.requireAuth = required
	}
}

// NewGitHub creates a GitHub provider.
func NewGitHub(creds Credentials, opts ...GitHubOption) *GitHubProvider {
	p := &GitHubProvider{
		baseURL:    githubAPIBase,
		creds:      creds,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Kind implements GitProvider.
func (p *GitHubProvider) Kind() Kind { return KindGitHub }

// CheckAuthentication reports whether a GitHub token is configured.
func (p *GitHubProvider) CheckAuthentication(ctx context.Context) bool {
	return hasToken(p.creds, KindGitHub)
}

// RequestAuthentication accepts anonymous access to public repositories
// unless the provider was configured to require a token.
func (p *GitHubProvider) RequestAuthentication(ctx context.Context) bool {
	return p.CheckAuthentication(ctx) || !p.requireAuth
}

// ParseRepositoryURL extracts owner and repo from https or scp-style URLs.
func (p *GitHubProvider) ParseRepositoryURL(repoURL string) (Coordinates, error) {
	normalized := repoURL
	if !strings.Contains(repoURL, "://") {
		host := hostOf(repoURL)
		if host == "" {
			return Coordinates{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, repoURL)
		}
		normalized = "https://" + host + "/" + repoURL[strings.Index(repoURL, ":")+1:]
	}

	u, segments, err := pathSegments(normalized)
	if err != nil {
		return Coordinates{}, err
	}
	if len(segments) < 2 {
		return Coordinates{}, fmt.Errorf("%w: expected https://github.com/<owner>/<repo>, got %s", ErrUnsupportedURL, repoURL)
	}
	return Coordinates{
		URL:   repoURL,
		Host:  u.Hostname(),
		Owner: segments[0],
		Repo:  segments[1],
	}, nil
}

type githubTree struct {
	Tree      []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// GetRepositoryTree lists every path on branch.
func (p *GitHubProvider) GetRepositoryTree(ctx context.Context, repo Coordinates, branch string) (*Tree, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		p.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Repo), url.PathEscape(branch))

	body, err := p.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var parsed githubTree
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parsing tree JSON: %v", ErrNetwork, err)
	}
	if parsed.Truncated {
		return nil, fmt.Errorf("%w: tree for %s/%s is truncated", ErrNetwork, repo.Owner, repo.Repo)
	}
	return &Tree{Entries: parsed.Tree}, nil
}

// GetFileContent returns the raw bytes of path on branch.
func (p *GitHubProvider) GetFileContent(ctx context.Context, repo Coordinates, path, branch string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		p.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Repo), escapePath(path), url.QueryEscape(branch))
	return p.get(ctx, endpoint, "application/vnd.github.raw")
}

func (p *GitHubProvider) client(ctx context.Context) *http.Client {
	if !hasToken(p.creds, KindGitHub) {
		return p.httpClient
	}
	token, _ := p.creds.Token(KindGitHub)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

func (p *GitHubProvider) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", githubUserAgent)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := p.client(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return nil, fmt.Errorf("%w: GitHub API rate limit exceeded, set a token for higher limits", ErrNetwork)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: GitHub returned status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: GitHub returned status %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrNetwork, err)
	}
	return body, nil
}

// escapePath escapes each segment of a repository path, keeping the slashes.
func escapePath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
