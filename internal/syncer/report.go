package syncer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nventive/Promptitude/internal/projector"
)

// RepositoryResult is the outcome of one repository within a pass.
type RepositoryResult struct {
	URL          string
	Branch       string
	Success      bool
	ItemsUpdated int
	Err          error
	// Warnings are per-file problems that did not fail the repository.
	Warnings []string
}

// Report summarizes a sync pass.
type Report struct {
	Repositories      []RepositoryResult
	TotalItemsUpdated int
	Heal              *projector.HealReport
	// Warnings are self-heal attempts that failed.
	Warnings []string
}

// Succeeded counts the repositories that synced without error.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Repositories {
		if res.Success {
			n++
		}
	}
	return n
}

// Err is nil when every repository succeeded, a *PartialError when some did,
// and an aggregate of every failure when none did.
func (r *Report) Err() error {
	var failed []RepositoryResult
	for _, res := range r.Repositories {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	switch {
	case len(failed) == 0:
		return nil
	case len(failed) < len(r.Repositories):
		return &PartialError{Failed: failed, Total: len(r.Repositories)}
	default:
		errs := make([]error, 0, len(failed))
		for _, res := range failed {
			errs = append(errs, fmt.Errorf("%s: %w", res.URL, res.Err))
		}
		return fmt.Errorf("all %d repositories failed to sync: %w", len(failed), errors.Join(errs...))
	}
}

// PartialError reports a pass where some repositories failed.
type PartialError struct {
	Failed []RepositoryResult
	Total  int
}

func (e *PartialError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d repositories failed to sync", len(e.Failed), e.Total)
	for _, res := range e.Failed {
		fmt.Fprintf(&b, "\n  %s: %v", res.URL, res.Err)
	}
	return b.String()
}

// Unwrap exposes every repository error to errors.Is.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, res := range e.Failed {
		errs = append(errs, res.Err)
	}
	return errs
}
