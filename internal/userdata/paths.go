package userdata

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nventive/Promptitude/internal/branding"
)

// Directory and file name constants for the storage layout.
const (
	ReposDir       = "repos"
	LogsDir        = "logs"
	LedgerFile     = "activations.yaml"
	FreshnessFile  = ".last-sync"
	promptsSubPath = "prompts"
)

// Permission constants.
const (
	DirPermSecure  os.FileMode = 0700
	FilePermSecure os.FileMode = 0600
	DirPermNormal  os.FileMode = 0755
)

// GetStorageRoot returns the storage root. It checks PROMPTITUDE_STORAGE
// first, then the configured value, then falls back to ~/.promptitude.
func GetStorageRoot(configured string) (string, error) {
	if v := os.Getenv(branding.EnvVar("STORAGE")); v != "" {
		return ExpandHome(v)
	}
	if configured != "" {
		return ExpandHome(configured)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, branding.HomeDir()), nil
}

// GetPromptsDir returns the activation directory. It checks
// PROMPTITUDE_PROMPTS_DIR first, then the configured value, then the VS Code
// user prompts directory for the current OS.
func GetPromptsDir(configured string) (string, error) {
	if v := os.Getenv(branding.EnvVar("PROMPTS_DIR")); v != "" {
		return ExpandHome(v)
	}
	if configured != "" {
		return ExpandHome(configured)
	}
	return defaultPromptsDir()
}

// GetReposRoot returns <storage>/repos.
func GetReposRoot(storageRoot string) string {
	return filepath.Join(storageRoot, ReposDir)
}

// GetLogDir returns <storage>/logs.
func GetLogDir(storageRoot string) string {
	return filepath.Join(storageRoot, LogsDir)
}

// GetLedgerPath returns the path of the activation ledger.
func GetLedgerPath(storageRoot string) string {
	return filepath.Join(storageRoot, LedgerFile)
}

// GetFreshnessPath returns the path of the last-sync marker.
func GetFreshnessPath(storageRoot string) string {
	return filepath.Join(storageRoot, FreshnessFile)
}

// ExpandHome replaces a leading "~" with the user's home directory and
// returns an absolute, cleaned path.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

// defaultPromptsDir mirrors where VS Code stores user-level prompt files.
func defaultPromptsDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Code", "User", promptsSubPath), nil
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "Code", "User", promptsSubPath), nil
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "Code", "User", promptsSubPath), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "Code", "User", promptsSubPath), nil
}
