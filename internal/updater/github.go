package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/nventive/Promptitude/internal/branding"
)

const githubAPIBase = "https://api.github.com"

// LatestRelease fetches the newest published release. GitHub leaves drafts
// and prereleases out of this endpoint.
func (u *Updater) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimRight(u.apiBase, "/"), branding.GitHubRepo())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", branding.CLIName()+"-version-check")

	// Optional token for higher rate limits.
	for _, name := range []string{branding.EnvVar("github_token"), "GITHUB_TOKEN"} {
		if token := os.Getenv(name); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			break
		}
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("no published release for %s", branding.GitHubRepo())
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, fmt.Errorf("GitHub API rate limit exceeded. Set GITHUB_TOKEN for higher limits")
	default:
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("parsing release JSON: %w", err)
	}
	return &release, nil
}

// Check fetches the latest release, compares it with the running version and
// records the result. The cache is returned even when it could not be saved.
func (u *Updater) Check(ctx context.Context) (*VersionCache, error) {
	release, err := u.LatestRelease(ctx)
	if err != nil {
		return nil, err
	}
	available, err := Newer(u.current, release.Tag)
	if err != nil {
		return nil, err
	}

	cache := &VersionCache{
		LatestVersion:   release.Tag,
		CurrentVersion:  u.current,
		ReleaseURL:      release.HTMLURL,
		CheckedAt:       timeNow(),
		UpdateAvailable: available,
	}
	return cache, u.remember(cache)
}
