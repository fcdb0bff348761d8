package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/proman/internal/config"
	"github.com/sakif/proman/internal/ingest"
	"github.com/sakif/proman/internal/logging"
	"github.com/sakif/proman/internal/repository/sqlite"
	"github.com/sakif/proman/internal/service"
)

// App is everything a command needs, wired once per invocation.
//
//	config ─► logger
//	       ─► sqlite.DB ─► repositories ─┐
//	       ─► ingest.Pipeline ─► Pool ───┼─► services
//	                        Notifier ────┘
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Events      *service.Notifier
	Projects    *service.ProjectService
	Logs        *service.LogService
	Attachments *service.AttachmentService

	db   *sqlite.DB
	pool *ingest.Pool
	out  *OutputFormatter
}

func openApp(opts *RootOptions, cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading configuration", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.MediaDir != "" {
		cfg.MediaDir = opts.MediaDir
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	logger := logging.New(cfg.Log, cmd.ErrOrStderr())

	// Like `mkdir -p`: the database may live in a directory that does not exist yet.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "creating database directory", err)
		}
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("opening database %s", cfg.DBPath), err)
	}

	pipeline := ingest.New(ingest.Config{
		MediaDir:        cfg.MediaDir,
		ThumbnailWidth:  cfg.Thumbnail.Width,
		ThumbnailHeight: cfg.Thumbnail.Height,
		MaxPixels:       cfg.Ingest.MaxPixels,
		Workers:         cfg.Ingest.Workers,
	}, logger)
	pool := ingest.NewPool(pipeline, ingest.Config{Workers: cfg.Ingest.Workers}, logger)

	events := service.NewNotifier()
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	events.Subscribe(func(ev service.Event) {
		out.VerboseLog("event: %s project=%d", ev.Kind, ev.ProjectID)
	})

	projects, logs, atts := db.Projects(), db.Logs(), db.Attachments()
	return &App{
		Config:      cfg,
		Logger:      logger,
		Events:      events,
		Projects:    service.NewProjectService(projects, pipeline, events, logger),
		Logs:        service.NewLogService(projects, logs, events, logger),
		Attachments: service.NewAttachmentService(projects, logs, atts, pool, events, logger).WithBatchLimit(cfg.Ingest.Workers),
		db:          db,
		pool:        pool,
		out:         out,
	}, nil
}

// Close stops the ingest workers and closes the database.
func (a *App) Close() error {
	a.pool.Stop()
	return a.db.Close()
}

// withApp opens the app, runs fn, and always closes it again.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(*App) error) error {
	app, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
