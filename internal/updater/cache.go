package updater

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheFileName = "version-check.json"
	// CacheMaxAge is how long a check result is trusted.
	CacheMaxAge = 24 * time.Hour
)

var timeNow = time.Now

// VersionCache is the result of the last check.
type VersionCache struct {
	LatestVersion   string    `json:"latest_version"`
	CurrentVersion  string    `json:"current_version"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	CheckedAt       time.Time `json:"checked_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// Stale reports whether the result is too old to show, or was recorded by a
// different build.
func (c *VersionCache) Stale(current string) bool {
	if c == nil || c.CurrentVersion != current {
		return true
	}
	return timeNow().Sub(c.CheckedAt) > CacheMaxAge
}

// Cached returns the last check result, or nil when there is none.
func (u *Updater) Cached() (*VersionCache, error) {
	data, err := os.ReadFile(filepath.Join(u.cacheDir, cacheFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading version cache: %w", err)
	}

	var cache VersionCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing version cache: %w", err)
	}
	return &cache, nil
}

// remember writes c through a temp file so a background check racing a
// foreground one never leaves half a file behind.
func (u *Updater) remember(c *VersionCache) error {
	if err := os.MkdirAll(u.cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling version cache: %w", err)
	}

	tmp, err := os.CreateTemp(u.cacheDir, cacheFileName+".*")
	if err != nil {
		return fmt.Errorf("writing version cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing version cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing version cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(u.cacheDir, cacheFileName)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing version cache: %w", err)
	}
	return nil
}
