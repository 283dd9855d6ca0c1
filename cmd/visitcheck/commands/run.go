package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runXlsx *string

func init() {
	runXlsx = runCmd.Flags().String("xlsx", "", "Also write the report as an xlsx workbook to this path.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--xlsx <report.xlsx>]",
	Short: "Crawls the visit records and checks them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := crawl(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("crawl failed: %w", err)
		}
		_, err = check(cmd.Context(), cfg, checkOptions{input: path, xlsx: *runXlsx})
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		return nil
	},
}
