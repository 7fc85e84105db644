package projector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

// Kind records how a projection was materialized.
type Kind string

const (
	KindSymlink Kind = "symlink"
	KindCopy    Kind = "copy"
)

// Source identifies a mirrored file.
type Source struct {
	RepositoryURL string
	OriginalName  string
}

// Entry is one persisted activation: the intent that Source should be
// visible in the prompts directory as WorkspaceName.
type Entry struct {
	WorkspaceName string `yaml:"workspace_name"`
	RepositoryURL string `yaml:"repository"`
	OriginalName  string `yaml:"original_name"`
	Kind          Kind   `yaml:"kind"`
}

// Source returns the mirrored file the entry projects.
func (e Entry) Source() Source {
	return Source{RepositoryURL: e.RepositoryURL, OriginalName: e.OriginalName}
}

type ledgerFile struct {
	Active []Entry `yaml:"active"`
}

// Ledger persists activation entries as YAML.
type Ledger struct {
	fs   afero.Fs
	path string
}

// NewLedger returns a ledger stored at path.
func NewLedger(fs afero.Fs, path string) *Ledger {
	return &Ledger{fs: fs, path: path}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Load reads every entry. A missing ledger means nothing is active.
func (l *Ledger) Load() ([]Entry, error) {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading activation ledger: %w", err)
	}

	var f ledgerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing activation ledger: %w", err)
	}
	return f.Active, nil
}

// Save replaces the ledger with entries, sorted by workspace name.
func (l *Ledger) Save(entries []Entry) error {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].WorkspaceName < sorted[j].WorkspaceName })

	data, err := yaml.Marshal(ledgerFile{Active: sorted})
	if err != nil {
		return fmt.Errorf("marshaling activation ledger: %w", err)
	}

	if err := l.fs.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := afero.WriteFile(l.fs, tmp, data, 0600); err != nil {
		return fmt.Errorf("writing activation ledger: %w", err)
	}
	if err := l.fs.Rename(tmp, l.path); err != nil {
		_ = l.fs.Remove(tmp)
		return fmt.Errorf("replacing activation ledger: %w", err)
	}
	return nil
}

// upsert records e, dropping any entry for the same source or holding the
// same workspace name. Last activation wins.
func upsert(entries []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	for _, existing := range entries {
		if existing.Source() == e.Source() || existing.WorkspaceName == e.WorkspaceName {
			continue
		}
		out = append(out, existing)
	}
	return append(out, e)
}

// withoutName drops the entry holding workspaceName.
func withoutName(entries []Entry, workspaceName string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.WorkspaceName != workspaceName {
			out = append(out, e)
		}
	}
	return out
}

func findSource(entries []Entry, src Source) (Entry, bool) {
	for _, e := range entries {
		if e.Source() == src {
			return e, true
		}
	}
	return Entry{}, false
}

func findName(entries []Entry, workspaceName string) (Entry, bool) {
	for _, e := range entries {
		if e.WorkspaceName == workspaceName {
			return e, true
		}
	}
	return Entry{}, false
}
