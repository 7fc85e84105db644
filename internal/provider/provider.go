// Package provider fetches repository trees and file contents from remote Git
// hosts. GitHub and Azure DevOps are reached through their REST APIs; any
// other Git remote is read through an in-memory go-git clone.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the repository, branch or file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAuth is returned when the host rejects or requires credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork wraps transport failures and unexpected responses.
	ErrNetwork = errors.New("network error")
	// ErrUnsupportedURL is returned for URLs no provider understands.
	ErrUnsupportedURL = errors.New("unsupported repository url")
)

// Kind identifies a provider implementation.
type Kind string

const (
	KindGitHub  Kind = "github"
	KindAzure   Kind = "azure"
	KindGit     Kind = "git"
	KindUnknown Kind = "unknown"
)

// EntryType distinguishes files from directories in a tree listing.
type EntryType string

const (
	EntryBlob EntryType = "blob"
	EntryTree EntryType = "tree"
)

// Coordinates locate a repository on its host.
type Coordinates struct {
	URL     string
	Host    string
	Owner   string // GitHub owner, or Azure organization
	Project string // Azure project; empty elsewhere
	Repo    string
}

// TreeEntry is one path in a repository tree.
type TreeEntry struct {
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

// Tree is the full recursive listing of a branch.
type Tree struct {
	Entries []TreeEntry
}

// GitProvider is the capability the sync engine needs from a Git host.
type GitProvider interface {
	Kind() Kind
	// CheckAuthentication reports whether usable credentials are already present.
	CheckAuthentication(ctx context.Context) bool
	// RequestAuthentication tries to obtain credentials, or reports whether
	// anonymous access is acceptable.
	RequestAuthentication(ctx context.Context) bool
	ParseRepositoryURL(url string) (Coordinates, error)
	GetRepositoryTree(ctx context.Context, repo Coordinates, branch string) (*Tree, error)
	GetFileContent(ctx context.Context, repo Coordinates, path, branch string) ([]byte, error)
}
