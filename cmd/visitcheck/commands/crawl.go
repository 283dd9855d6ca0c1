package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"visitcheck/internal/crawler"
	"visitcheck/internal/scrapers/esccapi"
	"visitcheck/internal/telemetry"
	"visitcheck/internal/visit"

	"github.com/spf13/cobra"
)

var crawlDb *string
var crawlDumpDir *string

func init() {
	crawlDb = crawlCmd.Flags().String("db", "", "A sqlite file to also write the records to, overrides db.file of the config.")
	crawlDumpDir = crawlCmd.Flags().String("dump-dir", "", "Write every portal response into this directory.")
	rootCmd.AddCommand(crawlCmd)
}

// crawl fetches every visit record of the configured project wave and writes
// the record table, plus the database snapshot when one is configured.
func crawl(ctx context.Context, cfg Config) (string, error) {
	clientConfig, err := cfg.clientConfig()
	if err != nil {
		return "", err
	}
	client, err := esccapi.NewClient(clientConfig, tel)
	if err != nil {
		return "", fmt.Errorf("create portal client: %w", err)
	}

	if otelState.MeterProvider != nil {
		perfCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		telemetry.InstrumentPerfStats(perfCtx, 30*time.Second, tel)
	}

	slog.Info("crawling", "project", cfg.Project, "wave", cfg.Wave, "workers", cfg.Workers)
	t1 := time.Now()
	records, err := crawler.New(client, cfg.Workers, tel).Crawl(ctx)
	if err != nil {
		return "", err
	}
	slog.Info("crawled", "records", len(records), "seconds", time.Since(t1).Seconds())

	err = os.MkdirAll(cfg.OutputDir, 0755)
	if err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := cfg.recordsPath()
	err = visit.WriteCSVFile(path, records)
	if err != nil {
		return "", err
	}
	slog.Info("wrote records", "path", path)

	if cfg.Db.Enabled() {
		err = saveSnapshot(ctx, cfg.Db, records)
		if err != nil {
			return path, err
		}
	}
	return path, nil
}

func saveSnapshot(ctx context.Context, config visit.DBConfig, records []visit.Record) error {
	db, err := config.OpenDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	store, err := visit.NewSQLStore(ctx, db)
	if err != nil {
		return err
	}
	err = store.Save(ctx, records)
	if err != nil {
		return err
	}
	slog.Info("wrote records snapshot", "records", len(records))
	return nil
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--db <path/to/records.db>]",
	Short: "Crawls the visit records of a project wave into a record table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if *crawlDb != "" {
			cfg.Db = visit.DBConfig{File: *crawlDb}
		}
		if *crawlDumpDir != "" {
			cfg.DumpDir = *crawlDumpDir
		}
		_, err := crawl(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("crawl failed: %w", err)
		}
		return nil
	},
}
