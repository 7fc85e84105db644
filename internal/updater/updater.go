package updater

import (
	"net/http"
	"time"
)

// Release is the subset of a GitHub release the check needs.
type Release struct {
	Tag       string    `json:"tag_name"`
	Published time.Time `json:"published_at"`
	HTMLURL   string    `json:"html_url"`
}

// Updater compares the running build against the latest published release
// and remembers the answer in cacheDir.
type Updater struct {
	current    string
	cacheDir   string
	httpClient *http.Client
	apiBase    string
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient replaces the default client, which times out after 10s.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Updater) {
		u.httpClient = c
	}
}

// WithAPIBase points the check at a GitHub Enterprise API or a test server.
func WithAPIBase(base string) Option {
	return func(u *Updater) {
		if base != "" {
			u.apiBase = base
		}
	}
}

// New returns an Updater for the running version. The cache lives in
// cacheDir, normally the storage root.
func New(current, cacheDir string, opts ...Option) *Updater {
	u := &Updater{
		current:    current,
		cacheDir:   cacheDir,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    githubAPIBase,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// released reports whether the running build carries a release version.
// Local and dev builds never check.
func (u *Updater) released() bool {
	_, err := releaseVersion(u.current)
	return err == nil
}
