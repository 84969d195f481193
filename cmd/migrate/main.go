package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/samirrijal/ridemetrics/internal/pkg/config"
	"github.com/samirrijal/ridemetrics/internal/pkg/logging"
	"github.com/samirrijal/ridemetrics/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|version>")
	}

	cfg, err := config.Load("ridemetrics-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatalf("migrations source: %v", err)
	}

	// The pgx v5 driver registers itself under the pgx5 scheme.
	dsn := "pgx5://" + strings.TrimPrefix(cfg.Database.DSN(), "postgres://")
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	defer m.Close()

	switch os.Args[1] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			slog.Info("no migrations applied")
			return
		}
		if verr != nil {
			log.Fatalf("version: %v", verr)
		}
		slog.Info("schema version", "version", version, "dirty", dirty)
		return
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("schema already up to date")
		return
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
	slog.Info("migrations applied", "command", os.Args[1])
}
