package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/nventive/Promptitude/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys understood by Get and Set.
const (
	KeyRepositories      = "repositories"
	KeyPromptsDir        = "prompts_dir"
	KeyStorageDir        = "storage_dir"
	KeyLogLevel          = "log_level"
	KeyCategoryPrompts   = "categories.prompts"
	KeyCategoryInstructs = "categories.instructions"
	KeyCategoryAgents    = "categories.agents"
	KeyGitHubRequireAuth = "providers.github.require_auth"
	KeyGitHubAPIURL      = "providers.github.api_url"
)

var (
	// ErrUnknownKey is returned by Set for keys outside the schema.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrDuplicateRepository is returned when adding an already configured URL.
	ErrDuplicateRepository = errors.New("repository already configured")
	// ErrUnknownRepository is returned when removing a URL that is not configured.
	ErrUnknownRepository = errors.New("repository not configured")
)

var boolKeys = map[string]bool{
	KeyCategoryPrompts:   true,
	KeyCategoryInstructs: true,
	KeyCategoryAgents:    true,
	KeyGitHubRequireAuth: true,
}

var stringKeys = map[string]bool{
	KeyPromptsDir:   true,
	KeyStorageDir:   true,
	KeyLogLevel:     true,
	KeyGitHubAPIURL: true,
}

// Categories toggles which top-level repository directories are synced.
type Categories struct {
	Prompts      bool
	Instructions bool
	Agents       bool
}

// GitHubSettings tunes the GitHub provider.
type GitHubSettings struct {
	RequireAuth bool
	APIURL      string
}

// Settings is the typed view of the config file.
type Settings struct {
	Repositories []RepositoryRef
	Categories   Categories
	PromptsDir   string
	StorageDir   string
	LogLevel     string
	GitHub       GitHubSettings
}

// Dir returns the path to the config directory (~/.promptitude/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file. PROMPTITUDE_CONFIG
// overrides the default ~/.promptitude/config.yaml.
func FilePath() string {
	if p := os.Getenv(branding.EnvVar("config")); p != "" {
		return p
	}
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config file's directory if it does not exist.
func EnsureDir() error {
	dir := filepath.Dir(FilePath())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(KeyRepositories, []string{})
	viper.SetDefault(KeyCategoryPrompts, true)
	viper.SetDefault(KeyCategoryInstructs, true)
	viper.SetDefault(KeyCategoryAgents, true)
	viper.SetDefault(KeyLogLevel, "warn")
	viper.SetDefault(KeyGitHubRequireAuth, false)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	if key == KeyRepositories {
		return strings.Join(viper.GetStringSlice(key), "\n")
	}
	return viper.GetString(key)
}

// Keys lists every settable key, sorted.
func Keys() []string {
	var keys []string
	for k := range boolKeys {
		keys = append(keys, k)
	}
	for k := range stringKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set writes a config key-value pair and saves the config file. Repository
// entries are managed with AddRepository and RemoveRepository instead.
func Set(key, value string) error {
	switch {
	case boolKeys[key]:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false, got %q", key, value)
		}
		viper.Set(key, b)
	case stringKeys[key]:
		viper.Set(key, value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return write()
}

// Current returns the typed settings. Malformed repository entries are
// returned as errors rather than silently dropped.
func Current() (*Settings, error) {
	s := &Settings{
		Categories: Categories{
			Prompts:      viper.GetBool(KeyCategoryPrompts),
			Instructions: viper.GetBool(KeyCategoryInstructs),
			Agents:       viper.GetBool(KeyCategoryAgents),
		},
		PromptsDir: viper.GetString(KeyPromptsDir),
		StorageDir: viper.GetString(KeyStorageDir),
		LogLevel:   viper.GetString(KeyLogLevel),
		GitHub: GitHubSettings{
			RequireAuth: viper.GetBool(KeyGitHubRequireAuth),
			APIURL:      viper.GetString(KeyGitHubAPIURL),
		},
	}

	refs, err := Repositories()
	if err != nil {
		return nil, err
	}
	s.Repositories = refs
	return s, nil
}

// Repositories returns the configured repositories in configured order.
// A URL listed twice keeps its first position.
func Repositories() ([]RepositoryRef, error) {
	var refs []RepositoryRef
	seen := make(map[string]bool)
	for _, raw := range viper.GetStringSlice(KeyRepositories) {
		ref, err := ParseRepository(raw)
		if err != nil {
			return nil, err
		}
		if seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true
		refs = append(refs, ref)
	}
	return refs, nil
}

// AddRepository appends ref to the repository list and saves the config file.
func AddRepository(ref RepositoryRef) error {
	refs, err := Repositories()
	if err != nil {
		return err
	}
	for _, r := range refs {
		if r.URL == ref.URL {
			return fmt.Errorf("%w: %s", ErrDuplicateRepository, ref.URL)
		}
	}
	return saveRepositories(append(refs, ref))
}

// RemoveRepository drops url from the repository list and saves the config
// file. Its mirror stays on disk until the cache is cleared.
func RemoveRepository(url string) error {
	refs, err := Repositories()
	if err != nil {
		return err
	}
	kept := refs[:0]
	found := false
	for _, r := range refs {
		if r.URL == url {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownRepository, url)
	}
	return saveRepositories(kept)
}

func saveRepositories(refs []RepositoryRef) error {
	entries := make([]string, 0, len(refs))
	for _, r := range refs {
		entries = append(entries, r.String())
	}
	viper.Set(KeyRepositories, entries)
	return write()
}

func write() error {
	if err := EnsureDir(); err != nil {
		return err
	}

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
