package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/nventive/Promptitude/internal/catalog"
	"github.com/nventive/Promptitude/internal/config"
	"github.com/nventive/Promptitude/internal/mirror"
	"github.com/nventive/Promptitude/internal/provider"
	"github.com/nventive/Promptitude/internal/syncer"
)

type cliEnv struct {
	configPath string
	storage    string
	promptsDir string
}

// isolate points config, storage and prompts dir at temp dirs and routes
// GitHub traffic to handler.
func isolate(t *testing.T, handler http.HandlerFunc) *cliEnv {
	t.Helper()
	root := t.TempDir()
	env := &cliEnv{
		configPath: filepath.Join(root, "config.yaml"),
		storage:    filepath.Join(root, "storage"),
		promptsDir: filepath.Join(root, "prompts"),
	}
	t.Setenv("PROMPTITUDE_CONFIG", env.configPath)
	t.Setenv("PROMPTITUDE_STORAGE", env.storage)
	t.Setenv("PROMPTITUDE_PROMPTS_DIR", env.promptsDir)
	for _, name := range []string{"PROMPTITUDE_GITHUB_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"} {
		t.Setenv(name, "")
	}
	viper.Reset()
	t.Cleanup(viper.Reset)

	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		prev := newResolver
		newResolver = func(*config.Settings) syncer.Resolver {
			return provider.NewRegistry(provider.NewGitHub(provider.StaticCredentials{}, provider.WithGitHubBaseURL(srv.URL)))
		}
		t.Cleanup(func() { newResolver = prev })
	}
	return env
}

// run executes the command tree with fresh flag values.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	listTypeFilter, listActive, listJSON = "", false, false
	activateRepo, repoBranch, repoPurge, cacheRepo = "", "", false, ""
	authToken, statusFix = "", false
	versionShort, versionJSON, versionCheck = false, false, false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "promptitude %s", strings.Join(args, " "))
	return out
}

// githubRepo serves a single repository, acme/prompts, from files.
func githubRepo(files map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/repos/acme/prompts/"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			http.NotFound(w, r)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, prefix)
		switch {
		case strings.HasPrefix(rest, "git/trees/"):
			var tree []provider.TreeEntry
			for p := range files {
				tree = append(tree, provider.TreeEntry{Path: p, Type: provider.EntryBlob})
			}
			json.NewEncoder(w).Encode(map[string]any{"tree": tree})
		case strings.HasPrefix(rest, "contents/"):
			content, ok := files[strings.TrimPrefix(rest, "contents/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(content))
		default:
			http.NotFound(w, r)
		}
	}
}

func TestSyncListActivateDeactivate(t *testing.T) {
	env := isolate(t, githubRepo(map[string]string{
		"prompts/review.prompt.md":        "---\ndescription: Review code\n---\n",
		"agents/lead.agent.md":            "Leads the team\n",
		"instructions/go.instructions.md": "Use gofmt\n",
		"docs/not-synced.md":              "ignored",
	}))

	mustRun(t, "repo", "add", "https://github.com/acme/prompts")
	out := mustRun(t, "sync")
	assert.Contains(t, out, "Synced 1 of 1 repositories, 3 file(s) updated.")

	out = mustRun(t, "list", "--json")
	var records []catalog.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 3)
	assert.Equal(t, catalog.TypePrompts, records[0].Type)
	assert.Equal(t, "Review code", records[0].Description)

	out = mustRun(t, "activate", "review.prompt.md", "lead.agent.md")
	assert.Contains(t, out, "Activated review.prompt.md")
	content, err := os.ReadFile(filepath.Join(env.promptsDir, "lead.agent.md"))
	require.NoError(t, err)
	assert.Equal(t, "Leads the team\n", string(content))

	out = mustRun(t, "list", "--active", "--type", "agent")
	assert.Contains(t, out, "lead.agent.md")
	assert.NotContains(t, out, "review.prompt.md")
	assert.Contains(t, out, "acme-prompts")

	mustRun(t, "deactivate", "lead.agent.md")
	_, err = os.Lstat(filepath.Join(env.promptsDir, "lead.agent.md"))
	assert.True(t, os.IsNotExist(err))

	out = mustRun(t, "status")
	assert.Contains(t, out, "1 active file(s)")
}

func TestSyncWithoutRepositories(t *testing.T) {
	isolate(t, nil)
	out := mustRun(t, "sync")
	assert.Contains(t, out, "No repositories configured")
}

func TestSyncFailsWhenEveryRepositoryFails(t *testing.T) {
	isolate(t, githubRepo(map[string]string{"README.md": "nothing relevant"}))
	mustRun(t, "repo", "add", "https://github.com/acme/prompts")

	_, err := run(t, "sync")
	assert.ErrorIs(t, err, syncer.ErrNoRelevantFiles)
}

func TestActivateRejectsLocalFiles(t *testing.T) {
	env := isolate(t, nil)
	require.NoError(t, os.MkdirAll(env.promptsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(env.promptsDir, "mine.md"), []byte("mine"), 0644))

	_, err := run(t, "activate", "mine.md")
	assert.ErrorContains(t, err, "not from a synced repository")

	_, err = run(t, "activate", "ghost.md")
	assert.ErrorIs(t, err, catalog.ErrNoMatch)
}

func TestRepoCommands(t *testing.T) {
	env := isolate(t, nil)

	mustRun(t, "repo", "add", "https://github.com/acme/prompts|develop")
	mustRun(t, "repo", "add", "https://dev.azure.com/org/proj/_git/repo", "--branch", "release")

	_, err := run(t, "repo", "add", "https://github.com/acme/prompts")
	assert.ErrorIs(t, err, config.ErrDuplicateRepository)
	_, err = run(t, "repo", "add", "not a url")
	assert.Error(t, err)
	_, err = run(t, "repo", "add", "https://github.com/acme/"+strings.Repeat("p", 200))
	assert.ErrorIs(t, err, mirror.ErrURLTooLong)

	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://github.com/acme/prompts|develop")
	assert.Contains(t, string(data), "https://dev.azure.com/org/proj/_git/repo|release")

	out := mustRun(t, "repo", "list")
	assert.Contains(t, out, "develop")
	assert.Contains(t, out, "azure")

	mustRun(t, "repo", "remove", "https://github.com/acme/prompts")
	_, err = run(t, "repo", "remove", "https://github.com/acme/prompts")
	assert.ErrorIs(t, err, config.ErrUnknownRepository)
}

func TestConfigCommands(t *testing.T) {
	env := isolate(t, nil)

	mustRun(t, "config", "set", "categories.agents", "false")
	assert.Equal(t, "false\n", mustRun(t, "config", "get", "categories.agents"))
	assert.Equal(t, env.configPath+"\n", mustRun(t, "config", "path"))

	_, err := run(t, "config", "set", "nope", "x")
	assert.ErrorIs(t, err, config.ErrUnknownKey)

	out := mustRun(t, "config", "validate")
	assert.Contains(t, out, "[ OK ]")

	require.NoError(t, os.WriteFile(env.configPath, []byte("log_level: loud\n"), 0644))
	out, err = run(t, "config", "validate")
	assert.Error(t, err)
	assert.Contains(t, out, "[FAIL]")
}

func TestAuthCommands(t *testing.T) {
	isolate(t, nil)
	keyring.MockInit()

	out := mustRun(t, "auth", "status")
	assert.Contains(t, out, "github  not configured")

	mustRun(t, "auth", "set", "github", "--token", "secret")
	out = mustRun(t, "auth", "status")
	assert.Contains(t, out, "github  OS keyring")

	t.Setenv("PROMPTITUDE_GITHUB_TOKEN", "from-env")
	out = mustRun(t, "auth", "status")
	assert.Contains(t, out, "environment (PROMPTITUDE_GITHUB_TOKEN)")

	out = mustRun(t, "auth", "logout", "github")
	assert.Contains(t, out, "still set in the environment")

	_, err := run(t, "auth", "set", "gitlab", "--token", "x")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestCacheClear(t *testing.T) {
	env := isolate(t, githubRepo(map[string]string{"prompts/a.prompt.md": "a"}))
	mustRun(t, "repo", "add", "https://github.com/acme/prompts")
	mustRun(t, "sync")

	mustRun(t, "cache", "clear", "--repo", "https://github.com/acme/prompts")
	entries, err := os.ReadDir(filepath.Join(env.storage, "repos"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearedCollisionIsHealedAndDeactivatable(t *testing.T) {
	env := isolate(t, githubRepo(map[string]string{"prompts/review.prompt.md": "from acme"}))
	mustRun(t, "repo", "add", "https://github.com/acme/prompts")
	mustRun(t, "sync")

	const other = "https://github.com/other/library"
	_, err := mirror.New(afero.NewOsFs(), env.storage).Put(other, "review.prompt.md", []byte("from other"))
	require.NoError(t, err)

	out := mustRun(t, "activate", "review.prompt.md", "--repo", "https://github.com/acme/prompts")
	assert.Contains(t, out, "Activated review@acme-prompts.prompt.md")

	out = mustRun(t, "cache", "clear", "--repo", other)
	assert.Contains(t, out, "Renamed review@acme-prompts.prompt.md to review.prompt.md")
	assert.Equal(t, []string{"review.prompt.md"}, promptsListing(t, env))

	mustRun(t, "deactivate", "review.prompt.md")
	assert.Empty(t, promptsListing(t, env))

	mustRun(t, "sync")
	assert.Empty(t, promptsListing(t, env), "sync must not bring a deactivated file back")
}

func TestDeactivateByStaleName(t *testing.T) {
	env := isolate(t, githubRepo(map[string]string{"prompts/review.prompt.md": "from acme"}))
	mustRun(t, "repo", "add", "https://github.com/acme/prompts")
	mustRun(t, "sync")

	const other = "https://github.com/other/library"
	store := mirror.New(afero.NewOsFs(), env.storage)
	_, err := store.Put(other, "review.prompt.md", []byte("from other"))
	require.NoError(t, err)
	mustRun(t, "activate", "review.prompt.md", "--repo", "https://github.com/acme/prompts")

	// The mirror disappears behind the tool's back; no heal runs.
	require.NoError(t, store.Clear(other))

	out := mustRun(t, "deactivate", "review.prompt.md")
	assert.Contains(t, out, "Deactivated review@acme-prompts.prompt.md")
	assert.Empty(t, promptsListing(t, env))

	mustRun(t, "sync")
	assert.Empty(t, promptsListing(t, env))
}

func promptsListing(t *testing.T, env *cliEnv) []string {
	t.Helper()
	entries, err := os.ReadDir(env.promptsDir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRecordState(t *testing.T) {
	tests := []struct {
		name   string
		record catalog.Record
		state  string
		source string
	}{
		{"inactive", catalog.Record{Origin: catalog.OriginRepository, RepositoryURL: "https://github.com/acme/prompts"}, "-", "acme-prompts"},
		{"active", catalog.Record{Origin: catalog.OriginRepository, RepositoryURL: "https://github.com/acme/prompts", Active: true}, "active", "acme-prompts"},
		{"broken", catalog.Record{Origin: catalog.OriginWorkspace, Broken: true}, "broken", "(local)"},
		{"user file", catalog.Record{Origin: catalog.OriginWorkspace, Active: true}, "active", "(local)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordState(tt.record); got != tt.state {
				t.Errorf("recordState = %q, want %q", got, tt.state)
			}
			if got := recordSource(tt.record); got != tt.source {
				t.Errorf("recordSource = %q, want %q", got, tt.source)
			}
		})
	}
}
