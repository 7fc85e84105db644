package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	azureAPIBase    = "https://dev.azure.com"
	azureAPIVersion = "7.0"
)

// AzureProvider reads Azure DevOps repositories through the Git items API
// using a personal access token.
type AzureProvider struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

// AzureOption configures an AzureProvider.
type AzureOption func(*AzureProvider)

// WithAzureBaseURL points the provider at a different API root.
func WithAzureBaseURL(base string) AzureOption {
	return func(p *AzureProvider) {
		if base != "" {
			p.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithAzureHTTPClient sets the HTTP client.
func WithAzureHTTPClient(c *http.Client) AzureOption {
	return func(p *AzureProvider) {
		p.httpClient = c
	}
}

// NewAzure creates an Azure DevOps provider.
func NewAzure(creds Credentials, opts ...AzureOption) *AzureProvider {
	p := &AzureProvider{
		baseURL:    azureAPIBase,
		creds:      creds,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Kind implements GitProvider.
func (p *AzureProvider) Kind() Kind { return KindAzure }

// CheckAuthentication reports whether a PAT is configured.
func (p *AzureProvider) CheckAuthentication(ctx context.Context) bool {
	return hasToken(p.creds, KindAzure)
}

// RequestAuthentication has no interactive flow; Azure DevOps always needs a PAT.
func (p *AzureProvider) RequestAuthentication(ctx context.Context) bool {
	return p.CheckAuthentication(ctx)
}

// ParseRepositoryURL accepts dev.azure.com/{org}/{project}/_git/{repo} and
// {org}.visualstudio.com/{project}/_git/{repo}.
func (p *AzureProvider) ParseRepositoryURL(repoURL string) (Coordinates, error) {
	u, segments, err := pathSegments(repoURL)
	if err != nil {
		return Coordinates{}, err
	}

	gitIdx := -1
	for i, s := range segments {
		if s == "_git" {
			gitIdx = i
			break
		}
	}
	if gitIdx < 1 || gitIdx+1 >= len(segments) {
		return Coordinates{}, fmt.Errorf("%w: expected .../<project>/_git/<repo>, got %s", ErrUnsupportedURL, repoURL)
	}

	host := strings.ToLower(u.Hostname())
	coords := Coordinates{
		URL:     repoURL,
		Host:    host,
		Project: segments[gitIdx-1],
		Repo:    segments[gitIdx+1],
	}
	switch {
	case gitIdx >= 2:
		coords.Owner = segments[gitIdx-2]
	case strings.HasSuffix(host, ".visualstudio.com"):
		coords.Owner = strings.TrimSuffix(host, ".visualstudio.com")
	default:
		return Coordinates{}, fmt.Errorf("%w: cannot determine organization in %s", ErrUnsupportedURL, repoURL)
	}
	return coords, nil
}

type azureItems struct {
	Value []struct {
		Path          string `json:"path"`
		IsFolder      bool   `json:"isFolder"`
		GitObjectType string `json:"gitObjectType"`
	} `json:"value"`
}

// GetRepositoryTree lists every item on branch.
func (p *AzureProvider) GetRepositoryTree(ctx context.Context, repo Coordinates, branch string) (*Tree, error) {
	q := p.versionQuery(branch)
	q.Set("recursionLevel", "Full")

	body, err := p.get(ctx, p.itemsURL(repo, q), "application/json")
	if err != nil {
		return nil, err
	}

	var parsed azureItems
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parsing items JSON: %v", ErrNetwork, err)
	}

	tree := &Tree{}
	for _, item := range parsed.Value {
		path := strings.TrimPrefix(item.Path, "/")
		if path == "" {
			continue
		}
		entryType := EntryBlob
		if item.IsFolder || item.GitObjectType == "tree" {
			entryType = EntryTree
		}
		tree.Entries = append(tree.Entries, TreeEntry{Path: path, Type: entryType})
	}
	return tree, nil
}

// GetFileContent returns the raw bytes of path on branch.
func (p *AzureProvider) GetFileContent(ctx context.Context, repo Coordinates, path, branch string) ([]byte, error) {
	q := p.versionQuery(branch)
	q.Set("path", "/"+strings.TrimPrefix(path, "/"))
	q.Set("includeContent", "true")
	q.Set("$format", "octetStream")
	return p.get(ctx, p.itemsURL(repo, q), "application/octet-stream")
}

func (p *AzureProvider) versionQuery(branch string) url.Values {
	q := url.Values{}
	q.Set("versionDescriptor.version", branch)
	q.Set("versionDescriptor.versionType", "branch")
	q.Set("api-version", azureAPIVersion)
	return q
}

func (p *AzureProvider) itemsURL(repo Coordinates, q url.Values) string {
	return fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s/items?%s",
		p.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Project), url.PathEscape(repo.Repo), q.Encode())
}

func (p *AzureProvider) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	if !hasToken(p.creds, KindAzure) {
		return nil, fmt.Errorf("%w: no Azure DevOps personal access token configured", ErrAuth)
	}
	token, _ := p.creds.Token(KindAzure)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.SetBasicAuth("", token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	// 203 is Azure DevOps redirecting an unauthenticated call to its sign-in page.
	case http.StatusNonAuthoritativeInfo, http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: Azure DevOps returned status %d", ErrAuth, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: Azure DevOps returned status %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrNetwork, err)
	}
	return body, nil
}
