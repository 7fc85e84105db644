package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/nventive/Promptitude/internal/catalog"
	"github.com/nventive/Promptitude/internal/config"
	"github.com/nventive/Promptitude/internal/logger"
	"github.com/nventive/Promptitude/internal/mirror"
	"github.com/nventive/Promptitude/internal/projector"
	"github.com/nventive/Promptitude/internal/provider"
	"github.com/nventive/Promptitude/internal/syncer"
	"github.com/nventive/Promptitude/internal/userdata"
)

// Seams for tests.
var (
	appFs       afero.Fs = afero.NewOsFs()
	newResolver          = func(s *config.Settings) syncer.Resolver {
		return provider.DefaultRegistry(provider.Options{
			GitHubAPIURL:      s.GitHub.APIURL,
			GitHubRequireAuth: s.GitHub.RequireAuth,
		})
	}
)

// app is everything a command needs, built from the loaded configuration.
type app struct {
	settings   *config.Settings
	storage    string
	promptsDir string
	fs         afero.Fs
	mirror     *mirror.Store
	projector  *projector.Projector
	catalog    *catalog.Catalog
	log        zerolog.Logger
}

func newApp() (*app, error) {
	settings, err := config.Current()
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	storage, err := userdata.GetStorageRoot(settings.StorageDir)
	if err != nil {
		return nil, err
	}
	promptsDir, err := userdata.GetPromptsDir(settings.PromptsDir)
	if err != nil {
		return nil, err
	}

	log := logger.Init(logger.Options{
		Level: settings.LogLevel,
		Dir:   userdata.GetLogDir(storage),
	})

	m := mirror.New(appFs, storage)
	p := projector.New(m, promptsDir, userdata.GetLedgerPath(storage), projector.WithLogger(log))
	return &app{
		settings:   settings,
		storage:    storage,
		promptsDir: promptsDir,
		fs:         appFs,
		mirror:     m,
		projector:  p,
		catalog:    catalog.New(m, p),
		log:        log,
	}, nil
}

func (a *app) engine() *syncer.Engine {
	return syncer.New(newResolver(a.settings), a.mirror, a.projector,
		syncer.WithLogger(a.log),
		syncer.WithFilter(syncer.NewFilter(a.settings.Categories)),
		syncer.WithFreshnessPath(userdata.GetFreshnessPath(a.storage)),
	)
}
