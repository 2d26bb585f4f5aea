package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	"github.com/pf-nexus/papermark/db"
	"github.com/pf-nexus/papermark/internal/config"
	"github.com/pf-nexus/papermark/internal/logger"
)

const usage = "Usage: migrate [up|down|steps N|force V|version]"

// migrateLogger routes golang-migrate output through logrus.
type migrateLogger struct {
	log *logrus.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.WithField("component", "migrate").Infof(format, v...)
}

func (l migrateLogger) Verbose() bool {
	return l.log.IsLevelEnabled(logrus.DebugLevel)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	src, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		log.WithError(err).Fatal("failed to open embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.DB.DSN())
	if err != nil {
		log.WithError(err).Fatal("failed to create migrate instance")
	}
	defer m.Close()
	m.Log = migrateLogger{log: log}

	if err := run(m, os.Args[1:], log); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
}

func run(m *migrate.Migrate, args []string, log *logrus.Logger) error {
	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("up: %w", err)
		}
		log.Info("identity schema is up to date")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("down: %w", err)
		}
		log.Info("identity schema reverted")

	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s requires a number argument", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid %s argument: %w", args[0], err)
		}
		if args[0] == "force" {
			if err := m.Force(n); err != nil {
				return fmt.Errorf("force: %w", err)
			}
			log.WithField("version", n).Info("schema version forced")
			return nil
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("steps: %w", err)
		}
		log.WithField("steps", n).Info("migration steps applied")

	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("version: %w", err)
		}
		log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("current schema version")

	default:
		return fmt.Errorf("unknown command %q; %s", args[0], usage)
	}
	return nil
}
