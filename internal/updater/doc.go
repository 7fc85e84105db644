// Package updater checks GitHub Releases for a newer promptitude build. The
// result is cached for a day under the storage root so `version --check` and
// the startup hint stay cheap. Installing the new build is left to the
// package manager that installed the old one.
package updater
