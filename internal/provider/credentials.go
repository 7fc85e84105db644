package provider

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/nventive/Promptitude/internal/branding"
)

// ErrNoToken is returned when no credential source has a token for a kind.
var ErrNoToken = errors.New("no token configured")

// Credentials supplies access tokens per provider kind.
type Credentials interface {
	Token(kind Kind) (string, error)
}

// wellKnownEnv lists tokens other tools already export, checked after the
// PROMPTITUDE_<KIND>_TOKEN variable.
var wellKnownEnv = map[Kind][]string{
	KindGitHub: {"GITHUB_TOKEN", "GH_TOKEN"},
	KindAzure:  {"AZURE_DEVOPS_EXT_PAT"},
}

// EnvCredentials reads tokens from environment variables.
type EnvCredentials struct{}

// Token implements Credentials.
func (EnvCredentials) Token(kind Kind) (string, error) {
	names := append([]string{EnvTokenVar(kind)}, wellKnownEnv[kind]...)
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s: %w", kind, ErrNoToken)
}

// EnvTokenVar returns the dedicated env var for kind, e.g. PROMPTITUDE_GITHUB_TOKEN.
func EnvTokenVar(kind Kind) string {
	return branding.EnvVar(string(kind) + "_TOKEN")
}

// KeyringCredentials stores tokens in the OS keyring, one entry per kind.
type KeyringCredentials struct {
	Service string
}

// NewKeyringCredentials returns keyring credentials under the branded service name.
func NewKeyringCredentials() KeyringCredentials {
	return KeyringCredentials{Service: branding.KeyringService()}
}

// Token implements Credentials.
func (k KeyringCredentials) Token(kind Kind) (string, error) {
	secret, err := keyring.Get(k.Service, string(kind))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", kind, ErrNoToken)
		}
		return "", fmt.Errorf("error retrieving %s token from keyring: %w", kind, err)
	}
	return secret, nil
}

// SetToken stores a token for kind.
func (k KeyringCredentials) SetToken(kind Kind, token string) error {
	if err := keyring.Set(k.Service, string(kind), token); err != nil {
		return fmt.Errorf("error setting %s token in keyring: %w", kind, err)
	}
	return nil
}

// DeleteToken removes the stored token for kind. Missing entries are ignored.
func (k KeyringCredentials) DeleteToken(kind Kind) error {
	if err := keyring.Delete(k.Service, string(kind)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("error deleting %s token from keyring: %w", kind, err)
	}
	return nil
}

// ChainCredentials tries each source in order and returns the first token.
type ChainCredentials []Credentials

// Token implements Credentials.
func (c ChainCredentials) Token(kind Kind) (string, error) {
	var errs []error
	for _, src := range c {
		token, err := src.Token(kind)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil && !errors.Is(err, ErrNoToken) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(append([]error{fmt.Errorf("%s: %w", kind, ErrNoToken)}, errs...)...)
	}
	return "", fmt.Errorf("%s: %w", kind, ErrNoToken)
}

// DefaultCredentials checks the environment first, then the OS keyring.
func DefaultCredentials() Credentials {
	return ChainCredentials{EnvCredentials{}, NewKeyringCredentials()}
}

// StaticCredentials is a fixed token map, useful in tests.
type StaticCredentials map[Kind]string

// Token implements Credentials.
func (s StaticCredentials) Token(kind Kind) (string, error) {
	if v, ok := s[kind]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", kind, ErrNoToken)
}

func hasToken(c Credentials, kind Kind) bool {
	if c == nil {
		return false
	}
	token, err := c.Token(kind)
	return err == nil && token != ""
}
