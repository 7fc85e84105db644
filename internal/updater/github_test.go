package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func releaseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/nventive/Promptitude/releases/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheck(t *testing.T) {
	t.Setenv("PROMPTITUDE_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	srv := releaseServer(t, `{"tag_name":"v1.4.0","html_url":"https://example.test/r/v1.4.0","published_at":"2026-01-02T03:04:05Z"}`)

	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	u := New("1.3.2", t.TempDir(), WithAPIBase(srv.URL))
	cache, err := u.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !cache.UpdateAvailable || cache.LatestVersion != "v1.4.0" {
		t.Errorf("Check = %+v", cache)
	}

	loaded, err := u.Cached()
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	if loaded == nil || !loaded.CheckedAt.Equal(fixed) || loaded.ReleaseURL != "https://example.test/r/v1.4.0" {
		t.Errorf("cache not persisted: %+v", loaded)
	}
}

func TestCheckRejectsUnparsableTag(t *testing.T) {
	srv := releaseServer(t, `{"tag_name":"nightly"}`)

	u := New("1.0.0", t.TempDir(), WithAPIBase(srv.URL))
	if _, err := u.Check(context.Background()); err == nil {
		t.Fatal("expected an error for a tag that is not a version")
	}
	if cache, _ := u.Cached(); cache != nil {
		t.Errorf("nothing should be cached, got %+v", cache)
	}
}

func TestLatestReleaseStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"not found", http.StatusNotFound, "no published release"},
		{"rate limited", http.StatusForbidden, "rate limit"},
		{"server error", http.StatusBadGateway, "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := New("1.0.0", t.TempDir(), WithAPIBase(srv.URL)).LatestRelease(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestPrintCachedBanner(t *testing.T) {
	dir := t.TempDir()
	if err := New("1.0.0", dir).remember(&VersionCache{
		LatestVersion:   "v1.1.0",
		CurrentVersion:  "1.0.0",
		ReleaseURL:      "https://example.test/r/v1.1.0",
		CheckedAt:       time.Now(),
		UpdateAvailable: true,
	}); err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	New("1.0.0", dir).PrintCachedBanner(&b)
	if !strings.Contains(b.String(), "1.0.0 -> v1.1.0") || !strings.Contains(b.String(), "https://example.test/r/v1.1.0") {
		t.Errorf("banner = %q", b.String())
	}

	b.Reset()
	New("dev", dir).PrintCachedBanner(&b)
	if b.Len() != 0 {
		t.Errorf("dev builds should stay quiet, got %q", b.String())
	}
}

func TestPrintUpdateBannerFallsBackToReleasesPage(t *testing.T) {
	var b strings.Builder
	PrintUpdateBanner(&b, "1.0.0", "v1.1.0", "")
	if !strings.Contains(b.String(), "https://github.com/nventive/Promptitude/releases") {
		t.Errorf("banner = %q", b.String())
	}
}
