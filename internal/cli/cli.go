// Package cli implements the tao-engine command line: dose evaluation, weekly schedules,
// TTR scoring and history maintenance, printed as indented JSON.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tao-dosing-engine/internal/config"
	"github.com/tao-dosing-engine/internal/database"
	"github.com/tao-dosing-engine/internal/history"
	"github.com/tao-dosing-engine/internal/service"
)

// ErrUnknownCommand is returned for a subcommand the CLI does not implement.
var ErrUnknownCommand = errors.New("unknown command")

// CLI provides the command-line interface of the engine.
type CLI struct {
	stdout      io.Writer
	stderr      io.Writer
	stdin       io.Reader
	configPaths []string
	now         func() time.Time

	config *config.Manager
	logger *logrus.Logger
}

// New creates a CLI writing results to stdout and logs to stderr. configPaths are
// searched for config.yaml before the standard locations.
func New(stdout, stderr io.Writer, stdin io.Reader, configPaths ...string) *CLI {
	return &CLI{
		stdout:      stdout,
		stderr:      stderr,
		stdin:       stdin,
		configPaths: configPaths,
		now:         time.Now,
	}
}

// Run executes the subcommand named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	var run func(context.Context, []string) error
	switch args[0] {
	case "evaluate":
		run = c.evaluate
	case "schedule":
		run = c.schedule
	case "ttr":
		run = c.ttr
	case "rolling":
		run = c.rolling
	case "record":
		run = c.record
	case "export":
		run = c.export
	case "import":
		run = c.importHistory
	case "report":
		run = c.report
	case "migrate":
		run = c.migrate
	case "status":
		run = c.status
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n\n", args[0])
		_ = c.showHelp()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	if err := c.init(); err != nil {
		return err
	}
	return run(ctx, args[1:])
}

// init loads and validates configuration and builds the logger.
func (c *CLI) init() error {
	manager, err := config.NewManager(c.configPaths...)
	if err != nil {
		return err
	}
	if err := manager.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.config = manager
	c.logger = newLogger(manager.GetConfig().Logging.Level, manager.GetConfig().Logging.Format, c.stderr)

	c.logger.WithFields(logrus.Fields{
		"config_file": manager.ConfigFile(),
		"driver":      manager.GetStorageConfig().Driver,
		"environment": manager.GetConfig().Environment,
	}).Debug("Configuration loaded")
	return nil
}

func newLogger(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	if strings.ToLower(format) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// openStore opens the configured history backend. Postgres schemas are migrated first
// when auto_migrate is set.
func (c *CLI) openStore(ctx context.Context) (history.Store, error) {
	storage := c.config.GetStorageConfig()

	switch storage.Driver {
	case "postgres":
		if storage.AutoMigrate {
			if err := c.migrateUp(ctx, storage.PostgresURL); err != nil {
				return nil, err
			}
		}
		db, err := database.Open(ctx, database.DefaultConfig(storage.PostgresURL), c.logger)
		if err != nil {
			return nil, err
		}
		store, err := history.NewPostgresStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	default:
		if err := c.config.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := history.NewSQLiteStore(c.config.HistoryDBPath())
		if err != nil {
			return nil, err
		}
		c.logger.WithField("path", store.Path()).Debug("SQLite history opened")
		return store, nil
	}
}

func (c *CLI) migrateUp(ctx context.Context, url string) error {
	runner, err := database.NewMigrationRunner(url, c.logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up(ctx)
}

// newService builds the engine service. A nil store evaluates requests without history.
func (c *CLI) newService(store history.Store) *service.AnticoagulationService {
	return service.NewAnticoagulationService(c.logger, store, *c.config.GetEngineConfig())
}

// withService runs fn against a service backed by the configured history store.
func (c *CLI) withService(ctx context.Context, fn func(*service.AnticoagulationService) error) error {
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(c.newService(store))
}

func (c *CLI) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// showHelp displays usage information.
func (c *CLI) showHelp() error {
	help := `
TAO Dosing Engine

Usage:
  tao-engine <command> [options]

Commands:
  evaluate   Recommend a weekly dose for an INR result
  schedule   Split a weekly dose into a day-by-day tablet plan
  ttr        Time in therapeutic range (Rosendaal) of a patient history
  rolling    Rolling TTR windows and trend of a patient history
  record     Store an INR observation
  export     Write the observation history as JSON
  import     Load a JSON export, skipping known observations
  report     TTR of every patient with recorded history
  migrate    Apply (up) or roll back (down) the Postgres schema
  status     Show configuration and history store state

Examples:
  # FCSA recommendation for an INR of 1.4 on 35 mg/week
  tao-engine evaluate -inr 1.4 -dose 35

  # ACCP recommendation using the patient's recorded TTR
  tao-engine evaluate -guideline ACCP -patient P001 -inr 2.4 -dose 30

  # Weekly plan for 32.5 mg starting today
  tao-engine schedule -dose 32.5

  # Record a result and score the last three months
  tao-engine record -patient P001 -inr 2.6 -dose 35
  tao-engine ttr -patient P001 -from 2025-03-01 -to 2025-06-01

Configuration is read from config.yaml and TAO_* environment variables,
e.g. TAO_STORAGE_DRIVER=postgres TAO_STORAGE_POSTGRES_URL=postgres://...
`
	fmt.Fprintln(c.stdout, help)
	return nil
}
