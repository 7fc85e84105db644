package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/nventive/Promptitude/internal/mirror"
	"github.com/nventive/Promptitude/internal/platform"
	"github.com/nventive/Promptitude/internal/projector"
)

const (
	repoA = "https://github.com/acme/prompts"
	repoB = "https://github.com/other/library"
)

type fixture struct {
	fs     afero.Fs
	mirror *mirror.Store
	proj   *projector.Projector
	cat    *Catalog
	dir    string
}

func newFixture(t *testing.T, fs afero.Fs, root string) *fixture {
	t.Helper()
	storage := filepath.Join(root, "storage")
	dir := filepath.Join(root, "prompts")
	m := mirror.New(fs, storage)
	p := projector.New(m, dir, filepath.Join(storage, "activations.yaml"))
	return &fixture{fs: fs, mirror: m, proj: p, cat: New(m, p), dir: dir}
}

func (f *fixture) put(t *testing.T, repoURL, name, content string) {
	t.Helper()
	if _, err := f.mirror.Put(repoURL, name, []byte(content)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
}

func (f *fixture) writeLocal(t *testing.T, name, content string) {
	t.Helper()
	if err := f.fs.MkdirAll(f.dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(f.fs, filepath.Join(f.dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestListUnionsMirrorAndWorkspace(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), "/")
	f.put(t, repoA, "review.prompt.md", "---\ndescription: Review code\n---\nBody\n")
	f.put(t, repoA, "go.instructions.md", "Use gofmt.\n")
	f.writeLocal(t, "mine.prompt.md", "My own prompt")

	if _, err := f.proj.Activate(repoA, "review.prompt.md"); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	got, err := f.cat.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []Record{
		{
			Origin:        OriginWorkspace,
			OriginalName:  "mine.prompt.md",
			WorkspaceName: "mine.prompt.md",
			Type:          TypePrompts,
			Active:        true,
			Size:          13,
			LineCount:     1,
			Description:   "My own prompt",
		},
		{
			Origin:        OriginRepository,
			OriginalName:  "review.prompt.md",
			WorkspaceName: "review.prompt.md",
			RepositoryURL: repoA,
			Type:          TypePrompts,
			Active:        true,
			Size:          38,
			LineCount:     4,
			Description:   "Review code",
		},
		{
			Origin:        OriginRepository,
			OriginalName:  "go.instructions.md",
			WorkspaceName: "go.instructions.md",
			RepositoryURL: repoA,
			Type:          TypeInstructions,
			Size:          11,
			LineCount:     1,
			Description:   "Use gofmt.",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestListSuffixesCollisions(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), "/")
	f.put(t, repoA, "x.prompt.md", "a")
	f.put(t, repoB, "x.prompt.md", "b")

	got, err := f.cat.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var names []string
	for _, r := range got {
		names = append(names, r.WorkspaceName)
	}
	want := []string{"x@acme-prompts.prompt.md", "x@other-library.prompt.md"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("workspace names mismatch (-want +got):\n%s", diff)
	}
}

func TestListReportsBrokenLinks(t *testing.T) {
	root := t.TempDir()
	fs := afero.NewOsFs()
	if !platform.IsSymlinkSupported(fs, root) {
		t.Skip("symlinks not supported on this platform")
	}
	f := newFixture(t, fs, root)
	if err := fs.MkdirAll(f.dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := platform.CreateSymlink(fs, filepath.Join(root, "gone.prompt.md"), filepath.Join(f.dir, "gone.prompt.md")); err != nil {
		t.Fatal(err)
	}

	got, err := f.cat.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []Record{{
		Origin:        OriginWorkspace,
		OriginalName:  "gone.prompt.md",
		WorkspaceName: "gone.prompt.md",
		Type:          TypePrompts,
		Broken:        true,
		Description:   NoDescription,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestFind(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), "/")
	f.put(t, repoA, "x.prompt.md", "a")
	f.put(t, repoB, "x.prompt.md", "b")
	f.put(t, repoA, "solo.prompt.md", "s")

	r, err := f.cat.Find("x@other-library.prompt.md", "")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if r.RepositoryURL != repoB {
		t.Errorf("Find by workspace name returned %s", r.RepositoryURL)
	}

	if _, err := f.cat.Find("x.prompt.md", ""); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}

	r, err = f.cat.Find("x.prompt.md", repoA)
	if err != nil {
		t.Fatalf("Find with repo failed: %v", err)
	}
	if r.WorkspaceName != "x@acme-prompts.prompt.md" {
		t.Errorf("Find with repo returned %s", r.WorkspaceName)
	}

	if _, err := f.cat.Find("nothing.md", ""); !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}

	// A suffixed name still resolves after the collision goes away.
	r, err = f.cat.Find("solo@acme-prompts.prompt.md", "")
	if err != nil {
		t.Fatalf("Find by stale suffix failed: %v", err)
	}
	if r.WorkspaceName != "solo.prompt.md" || r.RepositoryURL != repoA {
		t.Errorf("Find by stale suffix returned %+v", r)
	}
	if _, err := f.cat.Find("solo@other-library.prompt.md", ""); !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch for the wrong repository id, got %v", err)
	}
}

func TestFilter(t *testing.T) {
	records := []Record{
		{WorkspaceName: "a", Type: TypePrompts, Active: true},
		{WorkspaceName: "b", Type: TypePrompts},
		{WorkspaceName: "c", Type: TypeAgents, Active: true},
	}
	got := Filter(records, TypePrompts, true)
	if len(got) != 1 || got[0].WorkspaceName != "a" {
		t.Errorf("Filter = %+v", got)
	}
	if got := Filter(records, "", false); len(got) != 3 {
		t.Errorf("unfiltered = %d records", len(got))
	}
}
