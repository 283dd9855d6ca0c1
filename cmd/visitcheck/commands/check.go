package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"visitcheck/internal/normalize"
	"visitcheck/internal/report"
	"visitcheck/internal/rules"
	"visitcheck/internal/visit"

	"github.com/spf13/cobra"
)

const report_check_holidays = "check.holidays"

type checkOptions struct {
	// input is the record table, ignored when fromDb is set.
	input  string
	fromDb bool
	xlsx   string
}

var (
	checkInput  *string
	checkFromDb *bool
	checkXlsx   *string
)

func init() {
	flags := checkCmd.Flags()
	checkInput = flags.String("in", "", "The record table to check, defaults to visit_records.csv in the output dir.")
	checkFromDb = flags.Bool("from-db", false, "Read the records from the configured db instead of a record table.")
	checkXlsx = flags.String("xlsx", "", "Also write the report as an xlsx workbook to this path.")
	rootCmd.AddCommand(checkCmd)
}

func loadRecords(ctx context.Context, cfg Config, opts checkOptions) ([]visit.Record, error) {
	if !opts.fromDb {
		input := opts.input
		if input == "" {
			input = cfg.recordsPath()
		}
		slog.Info("reading records", "path", input)
		return visit.ReadCSVFile(input)
	}

	if !cfg.Db.Enabled() {
		return nil, fmt.Errorf("--from-db requires db to be configured")
	}
	db, err := cfg.Db.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	store, err := visit.NewSQLStore(ctx, db)
	if err != nil {
		return nil, err
	}
	return store.Load(ctx)
}

// check runs every rule over the records and writes the reports. Reports are
// written even when a rule family failed, the failure is returned after.
func check(ctx context.Context, cfg Config, opts checkOptions) (rules.Result, error) {
	records, err := loadRecords(ctx, cfg, opts)
	if err != nil {
		return rules.Result{}, err
	}

	holidays, err := normalize.LoadHolidays(cfg.HolidaysPath)
	if err != nil {
		tel.ReportWarning(report_check_holidays, err)
	}

	table := normalize.Normalize(records, holidays)
	result := rules.RunAll(table, tel)

	written, err := report.WriteDir(cfg.OutputDir, result.Issues)
	if err != nil {
		return result, err
	}
	slog.Info("wrote reports", "files", len(written), "dir", cfg.OutputDir)

	if opts.xlsx != "" {
		err = report.WriteWorkbook(opts.xlsx, result.Issues)
		if err != nil {
			return result, err
		}
		slog.Info("wrote workbook", "path", opts.xlsx)
	}

	renderSummary(os.Stdout, report.Summarize(result.Issues))

	var errs []error
	for _, failure := range result.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", failure.Family.Label(), failure.Err))
	}
	return result, errors.Join(errs...)
}

var checkCmd = &cobra.Command{
	Use:   "check [--in <records.csv> | --from-db] [--xlsx <report.xlsx>]",
	Short: "Checks visit records against the fieldwork rules and writes per interviewer reports.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := check(cmd.Context(), cfg, checkOptions{
			input:  *checkInput,
			fromDb: *checkFromDb,
			xlsx:   *checkXlsx,
		})
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		return nil
	},
}
