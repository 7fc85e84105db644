package naming

import (
	"net/url"
	"strings"
)

// RepoID derives the short identifier used in collision suffixes:
//
//	https://github.com/owner/repo                -> owner-repo
//	https://dev.azure.com/org/project/_git/repo  -> org-project-repo
//	https://org.visualstudio.com/project/_git/r  -> org-project-r
//	anything else                                -> last two path segments, or "repo"
func RepoID(repoURL string) string {
	host, segments := splitRepoURL(repoURL)

	for i, seg := range segments {
		if seg != "_git" || i+1 >= len(segments) {
			continue
		}
		repo := segments[i+1]
		switch {
		case i >= 2:
			return joinID(segments[i-2], segments[i-1], repo)
		case i == 1:
			if org := visualStudioOrg(host); org != "" {
				return joinID(org, segments[0], repo)
			}
			return joinID(segments[0], repo)
		}
	}

	if len(segments) < 2 {
		return "repo"
	}
	return joinID(segments[len(segments)-2], segments[len(segments)-1])
}

// splitRepoURL returns the host and non-empty path segments of a repository
// URL, accepting scp-style "git@host:owner/repo.git" remotes.
func splitRepoURL(raw string) (string, []string) {
	raw = strings.TrimSpace(raw)
	var host, path string

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err == nil {
			host, path = u.Hostname(), u.Path
		} else {
			path = raw[strings.Index(raw, "://")+3:]
		}
	} else if at := strings.Index(raw, "@"); at >= 0 && strings.Contains(raw[at:], ":") {
		rest := raw[at+1:]
		colon := strings.Index(rest, ":")
		host, path = rest[:colon], rest[colon+1:]
	} else {
		path = raw
	}

	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	if n := len(segments); n > 0 {
		segments[n-1] = strings.TrimSuffix(segments[n-1], ".git")
		if segments[n-1] == "" {
			segments = segments[:n-1]
		}
	}
	return strings.ToLower(host), segments
}

func visualStudioOrg(host string) string {
	if strings.HasSuffix(host, ".visualstudio.com") {
		return strings.TrimSuffix(host, ".visualstudio.com")
	}
	return ""
}

// joinID joins parts with "-" after replacing characters that are unsafe in
// filenames or ambiguous next to the "@" separator.
func joinID(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Map(func(r rune) rune {
			switch r {
			case '@', ':', '/', '\\', ' ', '*', '?', '"', '<', '>', '|':
				return '-'
			}
			return r
		}, p)
		clean = append(clean, p)
	}
	return strings.Join(clean, "-")
}
