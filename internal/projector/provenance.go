package projector

import (
	"path/filepath"

	"github.com/nventive/Promptitude/internal/naming"
	"github.com/nventive/Promptitude/internal/platform"
)

// IsActive reports whether name from repoURL is currently projected under
// its resolved workspace name: a symlink whose target is the mirror path, or
// a plain file the ledger records as that source's copy.
func (p *Projector) IsActive(repoURL, name string) (bool, error) {
	active, err := p.Active()
	if err != nil {
		return false, err
	}
	_, ok := active[Source{RepositoryURL: repoURL, OriginalName: name}]
	return ok, nil
}

// Active returns every mirrored file whose projection currently verifies,
// mapped to its workspace name. The mirror, ledger and directory are each
// read once.
func (p *Projector) Active() (map[Source]string, error) {
	files, err := p.mirror.All()
	if err != nil {
		return nil, err
	}
	idx, err := p.mirror.Index()
	if err != nil {
		return nil, err
	}
	entries, err := p.ledger.Load()
	if err != nil {
		return nil, err
	}

	active := make(map[Source]string)
	for _, f := range files {
		src := Source{RepositoryURL: f.RepositoryURL, OriginalName: f.Name}
		wsName := naming.Resolve(f.RepositoryURL, f.Name, idx)
		if p.verifies(src, wsName, entries) {
			active[src] = wsName
		}
	}
	return active, nil
}

func (p *Projector) verifies(src Source, wsName string, entries []Entry) bool {
	path := filepath.Join(p.dir, wsName)
	info, err := platform.Lstat(p.fs, path)
	if err != nil {
		return false
	}

	if platform.IsSymlink(info) {
		target, err := platform.ResolveSymlinkTarget(p.fs, path)
		if err != nil {
			return false
		}
		return target == filepath.Clean(p.mirror.PathFor(src.RepositoryURL, src.OriginalName))
	}

	if !info.Mode().IsRegular() {
		return false
	}
	e, ok := findName(entries, wsName)
	return ok && e.Kind == KindCopy && e.Source() == src
}
