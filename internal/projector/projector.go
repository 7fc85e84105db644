// Package projector maintains the flat prompts directory: one symlink (or,
// where symlinks are unavailable, one plain copy) per active mirrored file.
//
// Nothing here is cached. Every operation re-reads the mirror, the ledger and
// the directory itself, and treats missing or foreign entries as normal
// conditions, because users and other tools edit the directory between calls.
package projector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/nventive/Promptitude/internal/mirror"
	"github.com/nventive/Promptitude/internal/naming"
	"github.com/nventive/Promptitude/internal/platform"
)

var (
	// ErrActivationFailed is returned when neither a symlink nor a copy could
	// be materialized, or the activation could not be recorded.
	ErrActivationFailed = errors.New("activation failed")
	// ErrBrokenLinkUnrecoverable marks a dangling symlink whose target cannot
	// be attributed to a mirrored file. Such links are left in place.
	ErrBrokenLinkUnrecoverable = errors.New("broken link cannot be recovered")
	// ErrNotManaged is returned when deactivating a plain file that was not
	// created by a copy-fallback activation.
	ErrNotManaged = errors.New("file is not managed by promptitude")
)

// Projector projects mirrored files into the prompts directory.
type Projector struct {
	fs     afero.Fs
	mirror *mirror.Store
	dir    string
	ledger *Ledger
	log    zerolog.Logger
}

// Option configures a Projector.
type Option func(*Projector)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Projector) {
		p.log = l
	}
}

// New returns a Projector writing into promptsDir and recording intent in
// the ledger at ledgerPath. It shares the mirror's filesystem.
func New(m *mirror.Store, promptsDir, ledgerPath string, opts ...Option) *Projector {
	p := &Projector{
		fs:     m.Fs(),
		mirror: m,
		dir:    promptsDir,
		ledger: NewLedger(m.Fs(), ledgerPath),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dir returns the prompts directory.
func (p *Projector) Dir() string {
	return p.dir
}

// Entries returns the persisted activations.
func (p *Projector) Entries() ([]Entry, error) {
	return p.ledger.Load()
}

// WorkspaceName resolves the current name of a mirrored file.
func (p *Projector) WorkspaceName(repoURL, name string) (string, error) {
	idx, err := p.mirror.Index()
	if err != nil {
		return "", err
	}
	return naming.Resolve(repoURL, name, idx), nil
}

// Activate projects name from repoURL's mirror and returns the workspace
// name it was given. Whatever already occupies that name is replaced.
func (p *Projector) Activate(repoURL, name string) (string, error) {
	if !p.mirror.Has(repoURL, name) {
		return "", fmt.Errorf("%w: %s from %s: %w", ErrActivationFailed, name, repoURL, mirror.ErrNotFound)
	}

	wsName, err := p.WorkspaceName(repoURL, name)
	if err != nil {
		return "", fmt.Errorf("%w: resolving name: %v", ErrActivationFailed, err)
	}

	entries, err := p.ledger.Load()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrActivationFailed, err)
	}

	if err := p.fs.MkdirAll(p.dir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrActivationFailed, p.dir, err)
	}

	target := filepath.Join(p.dir, wsName)
	before := p.capture(target)

	kind, err := p.project(p.mirror.PathFor(repoURL, name), target)
	if err != nil {
		p.restore(before)
		return "", err
	}

	// The same source may still be projected under a name it held before a
	// collision changed it.
	var stale *snapshot
	if prev, ok := findSource(entries, Source{repoURL, name}); ok && prev.WorkspaceName != wsName {
		if s, removed := p.removeManaged(prev); removed {
			stale = &s
		}
	}

	entries = upsert(entries, Entry{
		WorkspaceName: wsName,
		RepositoryURL: repoURL,
		OriginalName:  name,
		Kind:          kind,
	})
	if err := p.ledger.Save(entries); err != nil {
		p.restore(before)
		if stale != nil {
			p.restore(*stale)
		}
		return "", fmt.Errorf("%w: %v", ErrActivationFailed, err)
	}

	p.log.Debug().Str("name", wsName).Str("repository", repoURL).Str("kind", string(kind)).Msg("activated")
	return wsName, nil
}

// Deactivate removes workspaceName from the prompts directory. Symlinks are
// always removed; plain files only when the ledger records them as a copy
// fallback. An absent target is not an error.
func (p *Projector) Deactivate(workspaceName string) error {
	entries, err := p.ledger.Load()
	if err != nil {
		return err
	}

	target := filepath.Join(p.dir, workspaceName)
	before := p.capture(target)

	if before.exists {
		switch {
		case before.isLink:
		case before.isDir:
			return fmt.Errorf("%s: %w", workspaceName, ErrNotManaged)
		default:
			e, ok := findName(entries, workspaceName)
			if !ok || e.Kind != KindCopy {
				return fmt.Errorf("%s: %w", workspaceName, ErrNotManaged)
			}
		}
		if err := platform.RemoveLink(p.fs, target); err != nil {
			return fmt.Errorf("removing %s: %w", target, err)
		}
	}

	if err := p.ledger.Save(withoutName(entries, workspaceName)); err != nil {
		p.restore(before)
		return err
	}

	p.log.Debug().Str("name", workspaceName).Msg("deactivated")
	return nil
}

// DeactivateSource deactivates name from repoURL wherever it is projected.
// The ledger's workspace name wins over the currently resolved one, which
// differs when a collision appeared or went away since activation. A
// verified projection under the resolved name is removed as well. It
// returns the workspace name that was deactivated.
func (p *Projector) DeactivateSource(repoURL, name string) (string, error) {
	entries, err := p.ledger.Load()
	if err != nil {
		return "", err
	}
	src := Source{RepositoryURL: repoURL, OriginalName: name}

	current, err := p.WorkspaceName(repoURL, name)
	if err != nil {
		return "", err
	}
	e, recorded := findSource(entries, src)
	if !recorded {
		return current, p.Deactivate(current)
	}

	if err := p.Deactivate(e.WorkspaceName); err != nil {
		return "", err
	}
	if current != e.WorkspaceName && p.verifies(src, current, entries) {
		if err := p.Deactivate(current); err != nil {
			return "", err
		}
	}
	return e.WorkspaceName, nil
}

// project replaces target with a symlink to src, or a copy when symlinks are
// unavailable.
func (p *Projector) project(src, target string) (Kind, error) {
	if info, err := platform.Lstat(p.fs, target); err == nil && info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrActivationFailed, target)
	}
	if err := platform.RemoveLink(p.fs, target); err != nil {
		return "", fmt.Errorf("%w: removing existing %s: %v", ErrActivationFailed, target, err)
	}

	kind := KindSymlink
	err := platform.CreateSymlink(p.fs, src, target)
	if errors.Is(err, platform.ErrSymlinkUnsupported) {
		p.log.Debug().Err(err).Str("target", target).Msg("symlink unavailable, copying")
		kind = KindCopy
		err = platform.CopyFile(p.fs, src, target)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrActivationFailed, target, err)
	}

	if !platform.TargetExists(p.fs, target) {
		return "", fmt.Errorf("%w: %s missing after activation", ErrActivationFailed, target)
	}
	return kind, nil
}

// removeManaged deletes the projection recorded by e if it is still ours:
// a symlink into e's mirror path, or a recorded copy.
func (p *Projector) removeManaged(e Entry) (snapshot, bool) {
	path := filepath.Join(p.dir, e.WorkspaceName)
	s := p.capture(path)
	if !s.exists || s.isDir {
		return s, false
	}
	if s.isLink && filepath.Clean(s.resolved) != filepath.Clean(p.mirror.PathFor(e.RepositoryURL, e.OriginalName)) {
		return s, false
	}
	if !s.isLink && e.Kind != KindCopy {
		return s, false
	}
	if err := platform.RemoveLink(p.fs, path); err != nil {
		p.log.Warn().Err(err).Str("path", path).Msg("could not remove stale projection")
		return s, false
	}
	return s, true
}

// snapshot is enough of a directory entry to put it back after a failed
// ledger write.
type snapshot struct {
	path     string
	exists   bool
	isDir    bool
	isLink   bool
	link     string // raw symlink target
	resolved string
	data     []byte
	mode     os.FileMode
}

func (p *Projector) capture(path string) snapshot {
	s := snapshot{path: path}
	info, err := platform.Lstat(p.fs, path)
	if err != nil {
		return s
	}
	s.exists = true
	s.mode = info.Mode().Perm()
	switch {
	case info.IsDir():
		s.isDir = true
	case platform.IsSymlink(info):
		s.isLink = true
		s.link, _ = platform.ReadSymlinkTarget(p.fs, path)
		s.resolved, _ = platform.ResolveSymlinkTarget(p.fs, path)
	default:
		s.data, _ = afero.ReadFile(p.fs, path)
	}
	return s
}

func (p *Projector) restore(s snapshot) {
	if s.isDir {
		return
	}
	_ = platform.RemoveLink(p.fs, s.path)
	if !s.exists {
		return
	}

	var err error
	if s.isLink {
		err = platform.CreateSymlink(p.fs, s.link, s.path)
	} else {
		err = afero.WriteFile(p.fs, s.path, s.data, s.mode)
	}
	if err != nil {
		p.log.Warn().Err(err).Str("path", s.path).Msg("could not restore previous entry")
	}
}
