package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// GitCloneProvider reads any Git remote by shallow-cloning the branch into
// memory. Clones are cached per (url, branch) for the provider's lifetime, so
// a sync pass clones each repository once.
type GitCloneProvider struct {
	creds Credentials

	mu    sync.Mutex
	trees map[string]*object.Tree
}

// NewGitClone creates a generic Git provider.
func NewGitClone(creds Credentials) *GitCloneProvider {
	return &GitCloneProvider{
		creds: creds,
		trees: make(map[string]*object.Tree),
	}
}

// Kind implements GitProvider.
func (p *GitCloneProvider) Kind() Kind { return KindGit }

// CheckAuthentication always succeeds: public remotes need no credentials and
// private ones surface ErrAuth when fetched.
func (p *GitCloneProvider) CheckAuthentication(ctx context.Context) bool { return true }

// RequestAuthentication implements GitProvider.
func (p *GitCloneProvider) RequestAuthentication(ctx context.Context) bool { return true }

// ParseRepositoryURL keeps the URL as-is; owner and repo are informational.
func (p *GitCloneProvider) ParseRepositoryURL(repoURL string) (Coordinates, error) {
	host := hostOf(repoURL)
	if host == "" {
		return Coordinates{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, repoURL)
	}
	path := repoURL
	if i := strings.Index(repoURL, host); i >= 0 {
		path = repoURL[i+len(host):]
	}
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == ':' })
	coords := Coordinates{URL: repoURL, Host: host}
	if n := len(segments); n >= 2 {
		coords.Owner = segments[n-2]
		coords.Repo = strings.TrimSuffix(segments[n-1], ".git")
	}
	return coords, nil
}

// GetRepositoryTree lists every file on branch.
func (p *GitCloneProvider) GetRepositoryTree(ctx context.Context, repo Coordinates, branch string) (*Tree, error) {
	tree, err := p.load(ctx, repo, branch)
	if err != nil {
		return nil, err
	}

	result := &Tree{}
	err = tree.Files().ForEach(func(f *object.File) error {
		result.Entries = append(result.Entries, TreeEntry{Path: f.Name, Type: EntryBlob})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking tree: %v", ErrNetwork, err)
	}
	return result, nil
}

// GetFileContent returns the bytes of path on branch.
func (p *GitCloneProvider) GetFileContent(ctx context.Context, repo Coordinates, path, branch string) ([]byte, error) {
	tree, err := p.load(ctx, repo, branch)
	if err != nil {
		return nil, err
	}

	f, err := tree.File(strings.TrimPrefix(path, "/"))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	r, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrNetwork, path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (p *GitCloneProvider) load(ctx context.Context, repo Coordinates, branch string) (*object.Tree, error) {
	key := repo.URL + "#" + branch

	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.trees[key]; ok {
		return t, nil
	}

	opts := &git.CloneOptions{
		URL:           repo.URL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
		Tags:          git.NoTags,
	}
	if hasToken(p.creds, KindGit) && strings.HasPrefix(repo.URL, "http") {
		token, _ := p.creds.Token(KindGit)
		opts.Auth = &githttp.BasicAuth{
			Username: "promptitude", // anything except an empty string
			Password: token,
		}
	}

	r, err := git.CloneContext(ctx, memory.NewStorage(), nil, opts)
	if err != nil {
		return nil, classifyGitError(err)
	}
	head, err := r.Head()
	if err != nil {
		return nil, classifyGitError(err)
	}
	commit, err := r.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("%w: reading commit: %v", ErrNetwork, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: reading tree: %v", ErrNetwork, err)
	}

	p.trees[key] = tree
	return tree, nil
}

func classifyGitError(err error) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case errors.Is(err, transport.ErrRepositoryNotFound),
		errors.Is(err, plumbing.ErrReferenceNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
}
