package projector

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/nventive/Promptitude/internal/mirror"
	"github.com/nventive/Promptitude/internal/naming"
	"github.com/nventive/Promptitude/internal/platform"
)

// LinkRepair is the outcome for one dangling symlink.
type LinkRepair struct {
	WorkspaceName string
	OldTarget     string
	NewTarget     string // empty unless repaired
	Source        Source
	Err           error // nil when repaired
}

// Restored is the outcome for one ledger entry that had to be re-projected.
type Restored struct {
	Entry         Entry
	WorkspaceName string // name it was projected under
	Err           error
}

// HealReport collects everything one heal pass did.
type HealReport struct {
	Repairs  []LinkRepair
	Restored []Restored
	Removed  []string
}

// Failures returns the recovery attempts that failed. Unrecoverable broken
// links are included so they get reported.
func (r *HealReport) Failures() []error {
	var errs []error
	for _, lr := range r.Repairs {
		if lr.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", lr.WorkspaceName, lr.Err))
		}
	}
	for _, rs := range r.Restored {
		if rs.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rs.Entry.WorkspaceName, rs.Err))
		}
	}
	return errs
}

// Heal repairs broken links, recreates missing active entries and removes
// orphaned copies, in that order.
func (p *Projector) Heal() (*HealReport, error) {
	report := &HealReport{}

	repairs, err := p.ReconcileBrokenLinks()
	if err != nil {
		return report, err
	}
	report.Repairs = repairs

	entries, err := p.Entries()
	if err != nil {
		return report, err
	}
	report.Restored = p.RecreateMissingActive(entries)

	removed, err := p.CleanupOrphans()
	if err != nil {
		return report, err
	}
	report.Removed = removed
	return report, nil
}

// ReconcileBrokenLinks rewrites dangling symlinks whose stale target still
// names a mirrored file, e.g. after the storage root moved. Links that cannot
// be attributed are reported with ErrBrokenLinkUnrecoverable and left alone.
func (p *Projector) ReconcileBrokenLinks() ([]LinkRepair, error) {
	infos, err := p.readDir()
	if err != nil {
		return nil, err
	}

	var repairs []LinkRepair
	for _, info := range infos {
		if !platform.IsSymlink(info) {
			continue
		}
		path := filepath.Join(p.dir, info.Name())
		if platform.TargetExists(p.fs, path) {
			continue
		}

		repair := LinkRepair{WorkspaceName: info.Name()}
		repair.OldTarget, _ = platform.ReadSymlinkTarget(p.fs, path)

		repoURL, name, ok := mirror.OwnerOf(repair.OldTarget)
		if !ok || !p.mirror.Has(repoURL, name) {
			repair.Err = ErrBrokenLinkUnrecoverable
			p.log.Warn().Str("name", info.Name()).Str("target", repair.OldTarget).Msg("broken link cannot be attributed to a mirrored file")
			repairs = append(repairs, repair)
			continue
		}

		repair.Source = Source{RepositoryURL: repoURL, OriginalName: name}
		newTarget := p.mirror.PathFor(repoURL, name)
		if err := platform.RemoveLink(p.fs, path); err != nil {
			repair.Err = fmt.Errorf("removing broken link: %w", err)
			repairs = append(repairs, repair)
			continue
		}
		if err := platform.CreateSymlink(p.fs, newTarget, path); err != nil {
			repair.Err = fmt.Errorf("recreating link: %w", err)
			repairs = append(repairs, repair)
			continue
		}
		repair.NewTarget = newTarget
		repairs = append(repairs, repair)

		if err := p.record(Entry{
			WorkspaceName: info.Name(),
			RepositoryURL: repoURL,
			OriginalName:  name,
			Kind:          KindSymlink,
		}); err != nil {
			p.log.Warn().Err(err).Str("name", info.Name()).Msg("repaired link not recorded")
		}
		p.log.Info().Str("name", info.Name()).Str("target", newTarget).Msg("repaired broken link")
	}
	return repairs, nil
}

// RecreateMissingActive re-activates entries whose projection is missing,
// and entries whose workspace name changed because a collision appeared or
// went away. Entries whose source is no longer mirrored are skipped.
func (p *Projector) RecreateMissingActive(entries []Entry) []Restored {
	idx, err := p.mirror.Index()
	if err != nil {
		p.log.Warn().Err(err).Msg("cannot index mirror")
		return nil
	}

	var restored []Restored
	for _, e := range entries {
		if !p.mirror.Has(e.RepositoryURL, e.OriginalName) {
			continue
		}
		current := naming.Resolve(e.RepositoryURL, e.OriginalName, idx)
		if current == e.WorkspaceName && platform.Exists(p.fs, filepath.Join(p.dir, current)) {
			continue
		}

		wsName, err := p.Activate(e.RepositoryURL, e.OriginalName)
		restored = append(restored, Restored{Entry: e, WorkspaceName: wsName, Err: err})
		if err != nil {
			p.log.Warn().Err(err).Str("name", e.WorkspaceName).Msg("could not restore active entry")
			continue
		}
		p.log.Info().Str("name", wsName).Str("repository", e.RepositoryURL).Msg("restored active entry")
	}
	return restored
}

// CleanupOrphans removes plain files whose name matches mirrored content,
// except copies the ledger records as active under their current name.
// Other plain files are left alone; they may belong to the user.
func (p *Projector) CleanupOrphans() ([]string, error) {
	files, err := p.mirror.All()
	if err != nil {
		return nil, err
	}
	idx, err := p.mirror.Index()
	if err != nil {
		return nil, err
	}
	entries, err := p.ledger.Load()
	if err != nil {
		return nil, err
	}

	mirrored := make(map[string]bool)
	for _, f := range files {
		mirrored[f.Name] = true
		mirrored[naming.Resolve(f.RepositoryURL, f.Name, idx)] = true
	}

	keep := make(map[string]bool)
	for _, e := range entries {
		if e.Kind != KindCopy || !p.mirror.Has(e.RepositoryURL, e.OriginalName) {
			continue
		}
		if naming.Resolve(e.RepositoryURL, e.OriginalName, idx) == e.WorkspaceName {
			keep[e.WorkspaceName] = true
		}
	}

	infos, err := p.readDir()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, info := range infos {
		name := info.Name()
		if !info.Mode().IsRegular() || !mirrored[name] || keep[name] {
			continue
		}
		if err := p.fs.Remove(filepath.Join(p.dir, name)); err != nil && !os.IsNotExist(err) {
			p.log.Warn().Err(err).Str("name", name).Msg("could not remove orphaned copy")
			continue
		}
		removed = append(removed, name)
		p.log.Info().Str("name", name).Msg("removed orphaned copy")
	}

	return removed, nil
}

// record upserts e into the ledger.
func (p *Projector) record(e Entry) error {
	entries, err := p.ledger.Load()
	if err != nil {
		return err
	}
	return p.ledger.Save(upsert(entries, e))
}

// readDir lists the prompts directory without following symlinks. A missing
// directory is empty.
func (p *Projector) readDir() ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(p.fs, p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", p.dir, err)
	}
	return infos, nil
}
