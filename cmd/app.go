// Package cmd provides the command line interface for systemd-web
package cmd

import (
	"database/sql"
	"fmt"

	"github.com/Qian-MoBai/systemd-web/internal/config"
	"github.com/Qian-MoBai/systemd-web/internal/db"
	"github.com/Qian-MoBai/systemd-web/internal/execx"
	"github.com/Qian-MoBai/systemd-web/internal/fs"
	"github.com/Qian-MoBai/systemd-web/internal/log"
	"github.com/Qian-MoBai/systemd-web/internal/service"
	"github.com/Qian-MoBai/systemd-web/internal/session"
	"github.com/Qian-MoBai/systemd-web/internal/systemd"
	"github.com/Qian-MoBai/systemd-web/internal/validate"
)

type contextKey string

const appContextKey contextKey = "app"

// App holds the application dependencies for command line interface.
type App struct {
	Logger         log.Logger
	Config         *config.Settings
	ConfigProvider config.Provider
	Runner         execx.Runner
	Builder        *systemd.CommandBuilder
	FSService      *fs.Service
	Validator      *validate.Validator
	Sessions       session.Store
	Audit          db.AuditRepository
	Inspector      *systemd.Inspector
	Service        *service.Service

	db *sql.DB
}

// NewApp creates a new App with all dependencies initialized. The database is
// migrated and opened; call Close when done.
func NewApp(logger log.Logger, configProv config.Provider) (*App, error) {
	cfg := configProv.GetConfig()
	return newApp(logger, configProv, execx.NewRealRunner(cfg.CommandTimeout), systemd.NewConnectionFactory(logger))
}

func newApp(logger log.Logger, configProv config.Provider, runner execx.Runner, connFactory systemd.ConnectionFactory) (*App, error) {
	cfg := configProv.GetConfig()

	if err := db.Up(cfg.DBPath, logger); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	conn, err := db.Connect(cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	var sessions session.Store
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	default:
		sessions = db.NewSessionRepository(conn, cfg.SessionTTL)
	}

	template, err := service.LoadTemplate(cfg.TemplateFile)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	builder := systemd.NewCommandBuilder(cfg.ElevationCommand)
	fsService := fs.NewServiceWithLogger(configProv, logger)
	audit := db.NewAuditRepository(conn)
	inspector := systemd.NewInspector(connFactory, logger)

	return &App{
		Logger:         logger,
		Config:         cfg,
		ConfigProvider: configProv,
		Runner:         runner,
		Builder:        builder,
		FSService:      fsService,
		Validator:      validate.NewValidator(logger, runner, cfg.ElevationCommand),
		Sessions:       sessions,
		Audit:          audit,
		Inspector:      inspector,
		Service: service.New(service.Deps{
			Runner:    runner,
			Builder:   builder,
			Files:     fsService,
			Sessions:  sessions,
			Audit:     audit,
			Inspector: inspector,
			Template:  template,
			Logger:    logger,
		}),
		db: conn,
	}, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
