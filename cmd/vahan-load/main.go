// Command vahan-load imports a registration export into the configured database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/aevon-lab/vahan-pulse/internal/core/config"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage/file"
	"github.com/aevon-lab/vahan-pulse/internal/datasource"
)

var errUsage = errors.New("missing -file")

func main() {
	configPath := flag.String("config", "vahan.yaml", "Path to configuration file")
	input := flag.String("file", "", "CSV, TSV or XLSX export to import")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(*configPath, *input); err != nil {
		slog.Error("Import failed", "error", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run performs the import. Deferred cleanup always runs before main exits.
func run(configPath, input string) error {
	if input == "" {
		return errUsage
	}

	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := file.NewSource(input).Load(ctx)
	if err != nil {
		return fmt.Errorf("read export %s: %w", input, err)
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	writer, closeWriter, err := datasource.OpenWriter(cfg.Source, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := closeWriter(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}()

	written, err := writer.SaveRegistrations(ctx, records)
	if err != nil {
		return err
	}
	slog.Info("Import complete", "file", input, "rows", len(records), "stored", written, "target", cfg.Source.Type)
	return nil
}
