package updater

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/nventive/Promptitude/internal/branding"
)

// releaseVersion parses a build version or a release tag. Tags may carry the
// CLI name as a prefix ("promptitude-v1.4.0").
func releaseVersion(tag string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(tag, branding.CLIName()+"-"))
}

// Newer reports whether latest should be offered to someone running current.
// A prerelease is only offered to users already on a prerelease.
func Newer(current, latest string) (bool, error) {
	cv, err := releaseVersion(current)
	if err != nil {
		return false, fmt.Errorf("parsing running version %q: %w", current, err)
	}
	lv, err := releaseVersion(latest)
	if err != nil {
		return false, fmt.Errorf("parsing release tag %q: %w", latest, err)
	}
	if lv.Prerelease() != "" && cv.Prerelease() == "" {
		return false, nil
	}
	return lv.GreaterThan(cv), nil
}
