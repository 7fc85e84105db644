// Package mirror stores the latest fetched content of every configured
// repository under <storage>/repos/<slug>/<filename>. The mirror is flat per
// repository and is only ever deleted by an explicit cache clear.
package mirror

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/nventive/Promptitude/internal/naming"
	"github.com/nventive/Promptitude/internal/userdata"
)

const (
	reposMarker   = userdata.ReposDir
	partialSuffix = ".partial"
)

var (
	// ErrNotFound is returned when a repository or file is not mirrored.
	ErrNotFound = errors.New("not found in mirror")
	// ErrWriteFailed wraps a failure to persist a single mirrored file.
	ErrWriteFailed = errors.New("mirror write failed")
)

// File describes one mirrored file.
type File struct {
	RepositoryURL string
	Name          string
	Size          int64
	ModTime       time.Time
}

// Store is the on-disk mirror rooted at <storage>/repos.
type Store struct {
	fs   afero.Fs
	root string
}

// New returns a Store for the given storage root.
func New(fs afero.Fs, storageRoot string) *Store {
	return &Store{fs: fs, root: userdata.GetReposRoot(storageRoot)}
}

// Root returns the mirror root (<storage>/repos).
func (s *Store) Root() string {
	return s.root
}

// Fs returns the filesystem the mirror is stored on.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// RepoDir returns the directory holding repoURL's files.
func (s *Store) RepoDir(repoURL string) string {
	return filepath.Join(s.root, Slug(repoURL))
}

// PathFor returns the stable path of a mirrored file. Symlinks in the prompts
// directory point here.
func (s *Store) PathFor(repoURL, name string) string {
	return filepath.Join(s.RepoDir(repoURL), name)
}

// Put stores content for name and reports whether it changed: true when the
// file was absent or its bytes differ from the stored version.
func (s *Store) Put(repoURL, name string, content []byte) (bool, error) {
	if err := validateName(name); err != nil {
		return false, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	path := s.PathFor(repoURL, name)
	existing, err := afero.ReadFile(s.fs, path)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}

	dir := s.RepoDir(repoURL)
	if err := s.fs.MkdirAll(dir, userdata.DirPermNormal); err != nil {
		return false, fmt.Errorf("%w: creating %s: %v", ErrWriteFailed, dir, err)
	}

	// Write to a sibling then rename so readers never see a truncated file.
	tmp := filepath.Join(dir, "."+name+partialSuffix)
	if err := afero.WriteFile(s.fs, tmp, content, 0644); err != nil {
		_ = s.fs.Remove(tmp)
		return false, fmt.Errorf("%w: writing %s: %v", ErrWriteFailed, path, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return false, fmt.Errorf("%w: finalizing %s: %v", ErrWriteFailed, path, err)
	}
	return true, nil
}

// Get returns the mirrored content of name.
func (s *Store) Get(repoURL, name string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.PathFor(repoURL, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s in %s: %w", name, repoURL, ErrNotFound)
		}
		return nil, fmt.Errorf("reading mirrored %s: %w", name, err)
	}
	return data, nil
}

// Has reports whether name is currently mirrored for repoURL.
func (s *Store) Has(repoURL, name string) bool {
	info, err := s.fs.Stat(s.PathFor(repoURL, name))
	return err == nil && info.Mode().IsRegular()
}

// List returns the files mirrored for repoURL, sorted by name. A repository
// that was never synced yields an empty list.
func (s *Store) List(repoURL string) ([]File, error) {
	entries, err := afero.ReadDir(s.fs, s.RepoDir(repoURL))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing mirror for %s: %w", repoURL, err)
	}

	var files []File
	for _, e := range entries {
		if !e.Mode().IsRegular() || isPartial(e.Name()) {
			continue
		}
		files = append(files, File{
			RepositoryURL: repoURL,
			Name:          e.Name(),
			Size:          e.Size(),
			ModTime:       e.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Repositories returns every repository URL with a mirror directory on disk,
// including repositories no longer configured.
func (s *Store) Repositories() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing mirror root: %w", err)
	}

	var urls []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		u, err := ParseSlug(e.Name())
		if err != nil || u == "" {
			continue // foreign directory
		}
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls, nil
}

// All returns every mirrored file across all repositories.
func (s *Store) All() ([]File, error) {
	urls, err := s.Repositories()
	if err != nil {
		return nil, err
	}
	var all []File
	for _, u := range urls {
		files, err := s.List(u)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	return all, nil
}

// Index builds a fresh naming index from the current mirror contents.
func (s *Store) Index() (naming.Index, error) {
	files, err := s.All()
	if err != nil {
		return nil, err
	}
	idx := naming.Index{}
	for _, f := range files {
		idx.Add(f.RepositoryURL, f.Name)
	}
	return idx, nil
}

// Clear deletes the mirror of one repository.
func (s *Store) Clear(repoURL string) error {
	if err := s.fs.RemoveAll(s.RepoDir(repoURL)); err != nil {
		return fmt.Errorf("clearing mirror for %s: %w", repoURL, err)
	}
	return nil
}

// ClearAll deletes every repository mirror.
func (s *Store) ClearAll() error {
	if err := s.fs.RemoveAll(s.root); err != nil {
		return fmt.Errorf("clearing mirror root: %w", err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid mirror filename %q", name)
	}
	return nil
}

func isPartial(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, partialSuffix)
}
