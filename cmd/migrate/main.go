package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/saransh1220/talentbook/internal/shared/infrastructure/config"
	"github.com/saransh1220/talentbook/internal/shared/logging"
	"github.com/saransh1220/talentbook/pkg/migration"
)

const usage = "usage: migrate up | down | force <version> | version"

var errUsage = errors.New(usage)

type migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Version() (uint, bool, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if cfg.Store.Driver != config.DriverPostgres {
		fmt.Fprintf(os.Stderr, "migrations only apply to the %s store (store.driver=%s)\n", config.DriverPostgres, cfg.Store.Driver)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		Service: "talentbook-migrate",
		Env:     cfg.Log.Env,
		Version: cfg.Log.Version,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	runner := migration.NewRunner(migration.Config{
		MigrationsPath: cfg.Migrations.Path,
		DatabaseURL:    cfg.Database.DSN(),
		Logger:         log,
	})
	if err := run(os.Args[1:], runner, os.Stdout); err != nil {
		log.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, m migrator, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "force":
		if len(args) != 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil || version < 0 {
			return fmt.Errorf("%w: invalid version %q", errUsage, args[1])
		}
		return m.Force(version)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
		return err
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}
