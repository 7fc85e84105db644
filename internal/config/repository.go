package config

import (
	"fmt"
	"strings"
)

// DefaultBranch is used when a repository entry names no branch.
const DefaultBranch = "main"

const branchSeparator = "|"

// RepositoryRef is one configured repository. Its identity is the URL.
type RepositoryRef struct {
	URL    string `json:"url"`
	Branch string `json:"branch"`
}

// ParseRepository parses "url" or "url|branch".
func ParseRepository(s string) (RepositoryRef, error) {
	s = strings.TrimSpace(s)
	url, branch := s, ""
	if i := strings.LastIndex(s, branchSeparator); i >= 0 {
		url, branch = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	if url == "" {
		return RepositoryRef{}, fmt.Errorf("repository entry %q has no URL", s)
	}
	if strings.ContainsAny(url, " \t") {
		return RepositoryRef{}, fmt.Errorf("repository URL %q contains whitespace", url)
	}
	if branch == "" {
		branch = DefaultBranch
	}
	return RepositoryRef{URL: url, Branch: branch}, nil
}

// String renders the ref in its configuration form. The default branch is omitted.
func (r RepositoryRef) String() string {
	if r.Branch == "" || r.Branch == DefaultBranch {
		return r.URL
	}
	return r.URL + branchSeparator + r.Branch
}
