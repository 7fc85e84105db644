package provider

import (
	"fmt"
)

// Registry maps repository URLs to the provider that can read them.
type Registry struct {
	providers map[Kind]GitProvider
}

// NewRegistry builds a registry from ps. A later provider of the same kind
// replaces an earlier one.
func NewRegistry(ps ...GitProvider) *Registry {
	r := &Registry{providers: make(map[Kind]GitProvider, len(ps))}
	for _, p := range ps {
		r.providers[p.Kind()] = p
	}
	return r
}

// For returns the provider responsible for repoURL.
func (r *Registry) For(repoURL string) (GitProvider, error) {
	kind := DetectProvider(repoURL)
	if kind == KindUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, repoURL)
	}
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no %s provider configured for %s", ErrUnsupportedURL, kind, repoURL)
	}
	return p, nil
}

// Options tune the default provider set.
type Options struct {
	Credentials       Credentials
	GitHubAPIURL      string
	GitHubRequireAuth bool
}

// DefaultRegistry wires the GitHub, Azure DevOps and generic Git providers.
func DefaultRegistry(opts Options) *Registry {
	creds := opts.Credentials
	if creds == nil {
		creds = DefaultCredentials()
	}
	return NewRegistry(
		NewGitHub(creds, WithGitHubBaseURL(opts.GitHubAPIURL), WithRequireAuth(opts.GitHubRequireAuth)),
		NewAzure(creds),
		NewGitClone(creds),
	)
}
