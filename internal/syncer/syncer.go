// Package syncer runs sync passes: for each configured repository it fetches
// the tree, filters it, mirrors changed files and refreshes active
// projections, then lets the projector heal any drift in the prompts
// directory. Repositories are isolated from each other; one failing never
// stops the rest.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/nventive/Promptitude/internal/config"
	"github.com/nventive/Promptitude/internal/mirror"
	"github.com/nventive/Promptitude/internal/projector"
	"github.com/nventive/Promptitude/internal/provider"
)

var (
	// ErrAuthRequired is recorded when a repository's provider has no usable
	// credentials.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNoRelevantFiles is recorded when a repository has nothing to sync,
	// which usually means a wrong URL, branch or category setting.
	ErrNoRelevantFiles = errors.New("no relevant files found")
	// ErrContentFetchFailed is recorded when fetching a file fails. The rest
	// of that repository's files are skipped.
	ErrContentFetchFailed = errors.New("content fetch failed")
	// ErrSyncInProgress is returned when a pass is already running. The
	// request is dropped, not queued.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// Resolver finds the provider for a repository URL.
type Resolver interface {
	For(url string) (provider.GitProvider, error)
}

// Engine runs sync passes. It is safe for concurrent use; overlapping calls
// are rejected with ErrSyncInProgress.
type Engine struct {
	providers     Resolver
	mirror        *mirror.Store
	projector     *projector.Projector
	filter        Filter
	freshnessPath string
	busy          *semaphore.Weighted
	log           zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithFilter replaces the default all-categories filter.
func WithFilter(f Filter) Option {
	return func(e *Engine) {
		e.filter = f
	}
}

// WithFreshnessPath records the time of every pass at path.
func WithFreshnessPath(path string) Option {
	return func(e *Engine) {
		e.freshnessPath = path
	}
}

// New creates an Engine.
func New(providers Resolver, m *mirror.Store, p *projector.Projector, opts ...Option) *Engine {
	e := &Engine{
		providers: providers,
		mirror:    m,
		projector: p,
		filter:    NewFilter(config.Categories{Prompts: true, Instructions: true, Agents: true}),
		busy:      semaphore.NewWeighted(1),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SyncAll runs one pass over repos in order. Per-repository failures are in
// the report (see Report.Err); the returned error is only ErrSyncInProgress.
func (e *Engine) SyncAll(ctx context.Context, repos []config.RepositoryRef) (*Report, error) {
	if !e.busy.TryAcquire(1) {
		return nil, ErrSyncInProgress
	}
	defer e.busy.Release(1)

	active := make(map[projector.Source]bool)
	entries, err := e.projector.Entries()
	if err != nil {
		e.log.Warn().Err(err).Msg("cannot read activation ledger, changed files will not be re-activated")
	}
	for _, entry := range entries {
		active[entry.Source()] = true
	}

	report := &Report{}
	for _, ref := range repos {
		res := e.syncRepository(ctx, ref, active)
		report.Repositories = append(report.Repositories, res)
		report.TotalItemsUpdated += res.ItemsUpdated

		if res.Success {
			e.log.Info().Str("repository", ref.URL).Int("updated", res.ItemsUpdated).Msg("repository synced")
		} else {
			e.log.Warn().Err(res.Err).Str("repository", ref.URL).Msg("repository sync failed")
		}
	}

	heal, err := e.projector.Heal()
	report.Heal = heal
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("self-heal: %v", err))
		e.log.Warn().Err(err).Msg("self-heal pass failed")
	}
	if heal != nil {
		for _, f := range heal.Failures() {
			report.Warnings = append(report.Warnings, f.Error())
		}
	}

	if e.freshnessPath != "" {
		if err := WriteFreshnessMarker(e.mirror.Fs(), e.freshnessPath); err != nil {
			e.log.Debug().Err(err).Msg("could not write freshness marker")
		}
	}

	return report, nil
}

func (e *Engine) syncRepository(ctx context.Context, ref config.RepositoryRef, active map[projector.Source]bool) RepositoryResult {
	res := RepositoryResult{URL: ref.URL, Branch: ref.Branch}
	fail := func(err error) RepositoryResult {
		res.Err = err
		return res
	}

	if err := mirror.CheckURL(ref.URL); err != nil {
		return fail(err)
	}
	p, err := e.providers.For(ref.URL)
	if err != nil {
		return fail(err)
	}
	if !p.CheckAuthentication(ctx) && !p.RequestAuthentication(ctx) {
		return fail(fmt.Errorf("%w for %s", ErrAuthRequired, p.Kind()))
	}

	coords, err := p.ParseRepositoryURL(ref.URL)
	if err != nil {
		return fail(err)
	}

	tree, err := p.GetRepositoryTree(ctx, coords, ref.Branch)
	if err != nil {
		if errors.Is(err, provider.ErrAuth) {
			return fail(fmt.Errorf("%w: %w", ErrAuthRequired, err))
		}
		return fail(fmt.Errorf("fetching tree at %s: %w", ref.Branch, err))
	}

	matches := e.filter.Match(tree.Entries)
	if len(matches) == 0 {
		return fail(fmt.Errorf("%w on branch %s", ErrNoRelevantFiles, ref.Branch))
	}

	// The mirror is flat, so the first entry in tree order owns a basename.
	owners := make(map[string]string, len(matches))
	for _, entry := range matches {
		name := path.Base(entry.Path)
		if first, ok := owners[name]; ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: skipped, %s already provides %s", entry.Path, first, name))
			e.log.Warn().Str("repository", ref.URL).Str("file", entry.Path).Str("kept", first).Msg("duplicate filename skipped")
			continue
		}
		owners[name] = entry.Path

		content, err := p.GetFileContent(ctx, coords, entry.Path, ref.Branch)
		if err != nil {
			return fail(fmt.Errorf("%w: %s: %w", ErrContentFetchFailed, entry.Path, err))
		}

		changed, err := e.mirror.Put(ref.URL, name, content)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			e.log.Warn().Err(err).Str("file", entry.Path).Msg("could not mirror file")
			continue
		}
		if !changed {
			continue
		}
		res.ItemsUpdated++
		e.log.Debug().Str("repository", ref.URL).Str("file", name).Msg("updated")

		if active[projector.Source{RepositoryURL: ref.URL, OriginalName: name}] {
			if _, err := e.projector.Activate(ref.URL, name); err != nil {
				res.Warnings = append(res.Warnings, err.Error())
				e.log.Warn().Err(err).Str("file", name).Msg("could not refresh active file")
			}
		}
	}

	res.Success = true
	return res
}
