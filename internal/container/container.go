package container

import (
	"context"
	"fmt"

	"mvam/adapters/api"
	"mvam/adapters/excel"
	"mvam/adapters/postgres"
	"mvam/app"
	"mvam/internal"
	"mvam/internal/config"
	"mvam/internal/dataset"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Adapters
	FormsAPI   *api.APIReader
	References *excel.ReferenceLoader
	Storage    *dataset.LocalFileStorage
	ExportRepo *postgres.ExportRepository

	Pipeline *app.PipelineService
}

// New creates a new dependency injection container. The database is only
// opened when an export target is configured.
func New(ctx context.Context, cfg *config.Config, log *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		log = internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	}

	c := &Container{
		Config:     cfg,
		Logger:     log,
		FormsAPI:   api.NewAPIReader(api.ConfigFromKobo(cfg.Kobo), log),
		References: excel.NewReferenceLoader(cfg.Paths, cfg.Survey, log),
		Storage: dataset.NewLocalFileStorage(&dataset.StorageConfig{
			BasePath: cfg.Paths.DataDir,
			Prefix:   cfg.Paths.ArtifactPrefix,
		}),
	}
	c.Pipeline = app.NewPipelineService(cfg, c.FormsAPI, c.References, c.Storage, log)

	if cfg.Database.Enabled() {
		if err := c.InitWithDatabase(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// InitWithDatabase connects to PostgreSQL and enables the export stage
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if c.DB != nil {
		return nil
	}
	db, err := postgres.Connect(ctx, c.Config.Database.URL)
	if err != nil {
		return err
	}
	c.DB = db
	c.ExportRepo = postgres.NewExportRepository(db, c.Logger)
	c.Pipeline.WithExporter(c.ExportRepo)
	return nil
}

// Shutdown releases the database connection
func (c *Container) Shutdown() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
