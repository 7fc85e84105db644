package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// DetectProvider classifies a repository URL.
func DetectProvider(repoURL string) Kind {
	host := hostOf(repoURL)
	switch {
	case host == "":
		return KindUnknown
	case host == "github.com" || host == "www.github.com":
		return KindGitHub
	case host == "dev.azure.com" || strings.HasSuffix(host, ".visualstudio.com"):
		return KindAzure
	default:
		return KindGit
	}
}

// hostOf returns the lower-cased host of an http(s), ssh or scp-style URL.
func hostOf(repoURL string) string {
	repoURL = strings.TrimSpace(repoURL)
	if strings.Contains(repoURL, "://") {
		u, err := url.Parse(repoURL)
		if err != nil {
			return ""
		}
		switch u.Scheme {
		case "http", "https", "ssh", "git":
			return strings.ToLower(u.Hostname())
		}
		return ""
	}
	at := strings.Index(repoURL, "@")
	colon := strings.Index(repoURL, ":")
	if at > 0 && colon > at {
		return strings.ToLower(repoURL[at+1 : colon])
	}
	return ""
}

// pathSegments returns the non-empty path segments of an http(s) URL with a
// trailing ".git" removed.
func pathSegments(repoURL string) (*url.URL, []string, error) {
	u, err := url.Parse(strings.TrimSpace(repoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if n := len(segments); n > 0 {
		segments[n-1] = strings.TrimSuffix(segments[n-1], ".git")
	}
	return u, segments, nil
}
