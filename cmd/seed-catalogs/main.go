// Loads the reference catalogs (zkVMs, cloud instance SKUs, prover types)
// from a YAML seed file into the database. Safe to re-run; entries are
// upserted.
package main

import (
	"context"
	stdlog "log"
	"log/slog"
	"os"

	"github.com/proofscan/proof-manager/internal/log"
	"github.com/proofscan/proof-manager/pkg/catalog"
	"github.com/proofscan/proof-manager/pkg/config"
	"github.com/proofscan/proof-manager/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatal(err)
	}
}

func run() error {
	logger := slog.New(log.New(slog.NewJSONHandler(os.Stdout, nil)))

	path := "./seed/catalogs.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}

	db, err := storage.NewDatabase(logger, cfg.Postgresql)
	if err != nil {
		return err
	}

	catalogService := catalog.NewService(catalog.NewRepository(db))
	if err := catalogService.LoadSeedFile(context.Background(), path); err != nil {
		return err
	}

	logger.Info("Seeded catalogs", "path", path)
	return nil
}
