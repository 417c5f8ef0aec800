// Package bootstrap brings up process-wide infrastructure: the logger and,
// for SQL storage, a migrated database.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/nearmod/keybot/core/config"
	coredatabase "github.com/nearmod/keybot/core/database"
	"github.com/nearmod/keybot/core/logger"
)

// Options selects what Run sets up. The function fields replace the real
// steps in tests.
type Options struct {
	Config *coreconfig.Config
	// Database is nil when the bot does not use SQL storage.
	Database *coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

func (o *Options) fillDefaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
}

// Result holds what Run opened.
type Result struct {
	// DB is nil without Options.Database.
	DB *sqlx.DB
}

// Close closes the database pool, if one was opened.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, then migrates and connects the database when
// one is configured. Migrations run before the pool is opened.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	opts.fillDefaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init: %w", err)
	}
	if opts.Database == nil {
		return &Result{}, nil
	}
	if err := opts.Migrate(*opts.Database); err != nil {
		return nil, fmt.Errorf("bootstrap: migrations: %w", err)
	}
	db, err := opts.Connect(*opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}
	return &Result{DB: db}, nil
}
