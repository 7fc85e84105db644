package updater

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nventive/Promptitude/internal/branding"
)

// PrintCachedBanner prints an update hint from the last check, if one is due.
// It never waits on the network; a stale result is refreshed in the
// background and shows up on the next run.
func (u *Updater) PrintCachedBanner(w io.Writer) {
	if !u.released() {
		return
	}
	cache, err := u.Cached()
	if err != nil {
		return
	}

	if cache != nil && cache.CurrentVersion == u.current && cache.UpdateAvailable {
		PrintUpdateBanner(w, cache.CurrentVersion, cache.LatestVersion, cache.ReleaseURL)
	}

	if cache.Stale(u.current) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, _ = u.Check(ctx)
		}()
	}
}

// PrintUpdateBanner prints the update notification to w. url falls back to
// the releases page.
func PrintUpdateBanner(w io.Writer, current, latest, url string) {
	if url == "" {
		url = fmt.Sprintf("https://github.com/%s/releases", branding.GitHubRepo())
	}
	fmt.Fprintf(w, "\nUpdate available: %s -> %s\n", current, latest)
	fmt.Fprintf(w, "    %s\n\n", url)
}
