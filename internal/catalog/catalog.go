// Package catalog builds the unified list of prompt files: everything in the
// mirror plus whatever sits in the prompts directory, annotated with whether
// it is active, its category and a short description.
//
// The list is rebuilt from disk on every call; nothing is cached between
// mutations.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/nventive/Promptitude/internal/mirror"
	"github.com/nventive/Promptitude/internal/naming"
	"github.com/nventive/Promptitude/internal/platform"
	"github.com/nventive/Promptitude/internal/projector"
)

var (
	// ErrNoMatch is returned by Find when nothing has the given name.
	ErrNoMatch = errors.New("no matching prompt")
	// ErrAmbiguous is returned by Find when several records match.
	ErrAmbiguous = errors.New("name matches more than one prompt")
)

// Origin discriminates where a record comes from.
type Origin string

const (
	// OriginRepository records come from a repository mirror.
	OriginRepository Origin = "repository"
	// OriginWorkspace records exist only in the prompts directory: user
	// files, foreign symlinks and broken links.
	OriginWorkspace Origin = "workspace"
)

// Record is one catalog line. It is derived, never persisted.
type Record struct {
	Origin        Origin `json:"origin"`
	OriginalName  string `json:"original_name"`
	WorkspaceName string `json:"workspace_name"`
	RepositoryURL string `json:"repository_url,omitempty"`
	Type          Type   `json:"type"`
	Active        bool   `json:"active"`
	Broken        bool   `json:"broken,omitempty"`
	Size          int64  `json:"size"`
	LineCount     int    `json:"line_count"`
	Description   string `json:"description"`
}

// Catalog reads the mirror and the prompts directory.
type Catalog struct {
	fs        afero.Fs
	mirror    *mirror.Store
	projector *projector.Projector
}

// New returns a Catalog over m and the directory p projects into.
func New(m *mirror.Store, p *projector.Projector) *Catalog {
	return &Catalog{fs: m.Fs(), mirror: m, projector: p}
}

// List returns every record sorted by type, then workspace name.
func (c *Catalog) List() ([]Record, error) {
	files, err := c.mirror.All()
	if err != nil {
		return nil, err
	}
	idx, err := c.mirror.Index()
	if err != nil {
		return nil, err
	}
	active, err := c.projector.Active()
	if err != nil {
		return nil, err
	}

	var records []Record
	claimed := make(map[string]bool)
	for _, f := range files {
		content, err := c.mirror.Get(f.RepositoryURL, f.Name)
		if err != nil {
			return nil, err
		}
		src := projector.Source{RepositoryURL: f.RepositoryURL, OriginalName: f.Name}
		wsName, isActive := active[src]
		if !isActive {
			wsName = naming.Resolve(f.RepositoryURL, f.Name, idx)
		} else {
			claimed[wsName] = true
		}
		records = append(records, Record{
			Origin:        OriginRepository,
			OriginalName:  f.Name,
			WorkspaceName: wsName,
			RepositoryURL: f.RepositoryURL,
			Type:          Categorize(f.Name),
			Active:        isActive,
			Size:          f.Size,
			LineCount:     CountLines(content),
			Description:   Describe(content),
		})
	}

	local, err := c.workspaceRecords(claimed)
	if err != nil {
		return nil, err
	}
	records = append(records, local...)

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Type != b.Type {
			return typeOrder(a.Type) < typeOrder(b.Type)
		}
		if a.WorkspaceName != b.WorkspaceName {
			return a.WorkspaceName < b.WorkspaceName
		}
		return a.RepositoryURL < b.RepositoryURL
	})
	return records, nil
}

// workspaceRecords lists prompts-directory entries that are not an active
// projection of a mirrored file.
func (c *Catalog) workspaceRecords(claimed map[string]bool) ([]Record, error) {
	dir := c.projector.Dir()
	infos, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var records []Record
	for _, info := range infos {
		name := info.Name()
		if claimed[name] || strings.HasPrefix(name, ".") || info.IsDir() {
			continue
		}
		path := filepath.Join(dir, name)

		rec := Record{
			Origin:        OriginWorkspace,
			OriginalName:  name,
			WorkspaceName: name,
			Type:          Categorize(name),
			Active:        true,
		}

		if platform.IsSymlink(info) {
			target, _ := platform.ResolveSymlinkTarget(c.fs, path)
			if !platform.TargetExists(c.fs, path) {
				rec.Active = false
				rec.Broken = true
				rec.Description = NoDescription
				records = append(records, rec)
				continue
			}
			// A live link into the mirror under a name that is not current
			// is left for the heal pass; it is not a user file.
			if _, _, ok := mirror.OwnerOf(target); ok {
				continue
			}
		} else if !info.Mode().IsRegular() {
			continue
		}

		content, err := afero.ReadFile(c.fs, path)
		if err != nil {
			continue // vanished or unreadable; the directory is not ours alone
		}
		rec.Size = int64(len(content))
		rec.LineCount = CountLines(content)
		rec.Description = Describe(content)
		records = append(records, rec)
	}
	return records, nil
}

// Find resolves a name given on the command line. A workspace-name match
// wins over an original-name match, which wins over a stale suffixed name;
// repoURL, when set, restricts the search to that repository.
func (c *Catalog) Find(name, repoURL string) (Record, error) {
	records, err := c.List()
	if err != nil {
		return Record{}, err
	}

	var byWorkspace, byOriginal []Record
	for _, r := range records {
		if repoURL != "" && r.RepositoryURL != repoURL {
			continue
		}
		switch {
		case r.WorkspaceName == name:
			byWorkspace = append(byWorkspace, r)
		case r.OriginalName == name:
			byOriginal = append(byOriginal, r)
		}
	}

	candidates := byWorkspace
	if len(candidates) == 0 {
		candidates = byOriginal
	}
	if len(candidates) == 0 {
		candidates = bySuffix(records, name, repoURL)
	}
	switch len(candidates) {
	case 0:
		return Record{}, fmt.Errorf("%w: %s", ErrNoMatch, name)
	case 1:
		return candidates[0], nil
	}

	names := make([]string, 0, len(candidates))
	for _, r := range candidates {
		names = append(names, r.WorkspaceName)
	}
	return Record{}, fmt.Errorf("%w %q: %s", ErrAmbiguous, name, strings.Join(names, ", "))
}

// bySuffix accepts a collision-suffixed name that no longer applies, e.g.
// "x@acme-prompts.md" once only one repository still publishes x.md.
func bySuffix(records []Record, name, repoURL string) []Record {
	original, id, ok := naming.Unsuffixed(name)
	if !ok {
		return nil
	}
	var out []Record
	for _, r := range records {
		if r.Origin != OriginRepository || r.OriginalName != original {
			continue
		}
		if repoURL != "" && r.RepositoryURL != repoURL {
			continue
		}
		if naming.RepoID(r.RepositoryURL) == id {
			out = append(out, r)
		}
	}
	return out
}

// Filter returns the records of type t (any type when empty), optionally
// only active ones.
func Filter(records []Record, t Type, activeOnly bool) []Record {
	var out []Record
	for _, r := range records {
		if t != "" && r.Type != t {
			continue
		}
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, r)
	}
	return out
}

func typeOrder(t Type) int {
	for i, candidate := range Types {
		if candidate == t {
			return i
		}
	}
	return len(Types)
}
