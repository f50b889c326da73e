// Package main applies the embedded products table migrations.
//
//	migrate [up|down|version]
//
// The database URL comes from the same configuration sources as the catalog binary
// (config.yaml, .env, CATALOG_DATABASE_URL).
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/abgdnv/catalog/internal/migrations"
	"github.com/abgdnv/catalog/pkg/bootstrap"
	"github.com/abgdnv/catalog/pkg/config"
	"github.com/abgdnv/catalog/pkg/config/configloader"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const serviceName = "catalog"

var _ configloader.Validator = (*migrateConfig)(nil)

type migrateConfig struct {
	Database config.DatabaseConfig `koanf:"database"`
	Log      config.LogConfig      `koanf:"log"`
}

func (c *migrateConfig) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [up|down|version]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	if err := run(command); err != nil {
		log.Printf("migration failed: %v", err)
		os.Exit(1)
	}
}

func run(command string) error {
	cfg, err := configloader.Load[*migrateConfig](serviceName)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := bootstrap.NewLogger(cfg.Log.Level)

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("failed to close migrate instance", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			return fmt.Errorf("failed to read schema version: %w", verr)
		}
		logger.Info("Schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No migrations to apply", slog.String("command", command))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", command, err)
	}
	logger.Info("Migrations applied", slog.String("command", command))
	return nil
}
