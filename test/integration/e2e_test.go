//go:build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nventive/Promptitude/internal/config"
)

const (
	acmeURL  = "https://github.com/acme/prompts"
	otherURL = "https://github.com/other/library"
)

func repos(urls ...string) []config.RepositoryRef {
	var refs []config.RepositoryRef
	for _, u := range urls {
		refs = append(refs, config.RepositoryRef{URL: u, Branch: config.DefaultBranch})
	}
	return refs
}

// TestFullFlowSyncActivateHeal covers sync -> activate -> collision ->
// out-of-band delete -> sync restores -> deactivate.
func TestFullFlowSyncActivateHeal(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.GitHub.publish("acme/prompts", map[string]string{
		"prompts/review.prompt.md":        "---\ndescription: Review a change\n---\nBody\n",
		"instructions/go.instructions.md": "Write idiomatic Go.\n",
		"README.md":                       "not synced",
	})

	// Step 1: first sync mirrors the two relevant files.
	report, err := env.Engine.SyncAll(ctx, repos(acmeURL))
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if err := report.Err(); err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.TotalItemsUpdated != 2 {
		t.Errorf("TotalItemsUpdated = %d, want 2", report.TotalItemsUpdated)
	}
	assertFileExists(t, env.Mirror.PathFor(acmeURL, "review.prompt.md"))
	assertFileNotExists(t, env.Mirror.PathFor(acmeURL, "README.md"))

	// Step 2: activate through the catalog, as the CLI does.
	rec, err := env.Catalog.Find("review.prompt.md", "")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if rec.Description != "Review a change" {
		t.Errorf("Description = %q", rec.Description)
	}
	name, err := env.Projector.Activate(rec.RepositoryURL, rec.OriginalName)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	assertFileContains(t, filepath.Join(env.PromptsDir, name), "Body")

	// Step 3: a second repository publishes the same name; the active file is
	// re-projected under its suffixed name.
	env.GitHub.publish("other/library", map[string]string{
		"prompts/review.prompt.md": "theirs",
	})
	if _, err := env.Engine.SyncAll(ctx, repos(acmeURL, otherURL)); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	suffixed := filepath.Join(env.PromptsDir, "review@acme-prompts.prompt.md")
	assertFileContains(t, suffixed, "Body")
	assertFileNotExists(t, filepath.Join(env.PromptsDir, "review.prompt.md"))
	assertFileNotExists(t, filepath.Join(env.PromptsDir, "review@other-library.prompt.md"))

	// Step 4: delete the active file behind our back; the next sync restores it.
	if err := os.Remove(suffixed); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := env.Engine.SyncAll(ctx, repos(acmeURL, otherURL)); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	assertFileContains(t, suffixed, "Body")

	// Step 5: upstream changes flow into the active file.
	env.GitHub.publish("acme/prompts", map[string]string{
		"prompts/review.prompt.md":        "---\ndescription: Review a change\n---\nBody v2\n",
		"instructions/go.instructions.md": "Write idiomatic Go.\n",
	})
	report, err = env.Engine.SyncAll(ctx, repos(acmeURL, otherURL))
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if report.TotalItemsUpdated != 1 {
		t.Errorf("TotalItemsUpdated = %d, want 1", report.TotalItemsUpdated)
	}
	assertFileContains(t, suffixed, "Body v2")

	// Step 6: deactivate leaves the mirror alone.
	if err := env.Projector.Deactivate("review@acme-prompts.prompt.md"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	assertFileNotExists(t, suffixed)
	assertFileExists(t, env.Mirror.PathFor(acmeURL, "review.prompt.md"))
}

// TestUserFilesSurviveSync checks that files the user placed in the prompts
// directory are listed and never touched.
func TestUserFilesSurviveSync(t *testing.T) {
	env := setupTestEnv(t)
	env.GitHub.publish("acme/prompts", map[string]string{"prompts/a.prompt.md": "a"})

	mine := filepath.Join(env.PromptsDir, "mine.prompt.md")
	writeFile(t, mine, "# Title\nmy own prompt\n")

	if _, err := env.Engine.SyncAll(context.Background(), repos(acmeURL)); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	assertFileContains(t, mine, "my own prompt")

	records, err := env.Catalog.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, r := range records {
		if r.WorkspaceName == "mine.prompt.md" {
			found = true
			if !r.Active || r.RepositoryURL != "" || r.Description != "my own prompt" {
				t.Errorf("unexpected user record %+v", r)
			}
		}
	}
	if !found {
		t.Error("user file missing from catalog")
	}
}

// TestUnknownRepositoryIsIsolated checks that a missing repository fails alone.
func TestUnknownRepositoryIsIsolated(t *testing.T) {
	env := setupTestEnv(t)
	env.GitHub.publish("acme/prompts", map[string]string{"prompts/a.prompt.md": "a"})

	report, err := env.Engine.SyncAll(context.Background(), repos("https://github.com/acme/missing", acmeURL))
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if report.Succeeded() != 1 {
		t.Errorf("Succeeded = %d, want 1", report.Succeeded())
	}
	if report.Repositories[0].Success {
		t.Error("missing repository should fail")
	}
	assertFileExists(t, env.Mirror.PathFor(acmeURL, "a.prompt.md"))
}
