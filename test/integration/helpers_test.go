//go:build integration

package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/nventive/Promptitude/internal/catalog"
	"github.com/nventive/Promptitude/internal/mirror"
	"github.com/nventive/Promptitude/internal/projector"
	"github.com/nventive/Promptitude/internal/provider"
	"github.com/nventive/Promptitude/internal/syncer"
	"github.com/nventive/Promptitude/internal/userdata"
)

// testEnv holds an isolated storage root and prompts directory wired to a
// fake GitHub API.
type testEnv struct {
	StorageDir string
	PromptsDir string
	GitHub     *fakeGitHub

	Mirror    *mirror.Store
	Projector *projector.Projector
	Catalog   *catalog.Catalog
	Engine    *syncer.Engine
}

// setupTestEnv creates isolated temp directories and builds the same stack
// the CLI does, on the real filesystem.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		StorageDir: t.TempDir(),
		PromptsDir: filepath.Join(t.TempDir(), "prompts"),
		GitHub:     newFakeGitHub(t),
	}

	fs := afero.NewOsFs()
	env.Mirror = mirror.New(fs, env.StorageDir)
	env.Projector = projector.New(env.Mirror, env.PromptsDir, userdata.GetLedgerPath(env.StorageDir))
	env.Catalog = catalog.New(env.Mirror, env.Projector)

	gh := provider.NewGitHub(provider.StaticCredentials{}, provider.WithGitHubBaseURL(env.GitHub.URL))
	env.Engine = syncer.New(provider.NewRegistry(gh), env.Mirror, env.Projector,
		syncer.WithFreshnessPath(userdata.GetFreshnessPath(env.StorageDir)))
	return env
}

// fakeGitHub serves the two REST endpoints the GitHub provider uses from an
// in-memory set of repositories keyed by "owner/repo".
type fakeGitHub struct {
	*httptest.Server

	mu    sync.Mutex
	repos map[string]map[string]string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{repos: make(map[string]map[string]string)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// publish replaces the content of owner/repo.
func (f *fakeGitHub) publish(ownerRepo string, files map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[ownerRepo] = files
}

func (f *fakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/repos/"), "/", 4)
	if len(parts) < 4 {
		http.NotFound(w, r)
		return
	}
	files, ok := f.repos[parts[0]+"/"+parts[1]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case parts[2] == "git" && strings.HasPrefix(parts[3], "trees/"):
		type entry struct {
			Path string `json:"path"`
			Type string `json:"type"`
		}
		var tree []entry
		for path := range files {
			tree = append(tree, entry{Path: path, Type: "blob"})
		}
		json.NewEncoder(w).Encode(map[string]any{"tree": tree, "truncated": false})
	case parts[2] == "contents":
		content, ok := files[parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(content))
	default:
		http.NotFound(w, r)
	}
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
