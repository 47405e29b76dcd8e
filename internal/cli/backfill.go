package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"oraclewatcher/internal/app"
)

var (
	backfillDir     string
	backfillDryRun  bool
	backfillWorkers int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Replay recorded committee submissions from a directory of JSON files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillDir == "" {
			return fmt.Errorf("--dir must be provided")
		}

		submissions, err := app.LoadSubmissionsDir(backfillDir)
		if err != nil {
			return err
		}

		opts := app.BackfillOptions{
			Submissions: submissions,
			DryRun:      backfillDryRun,
			Workers:     backfillWorkers,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillDir, "dir", "", "Directory of recorded submission JSON files")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Run without writing to storage")
	backfillCmd.Flags().IntVar(&backfillWorkers, "workers", 0, "Number of concurrent signature-recovery workers (defaults to config)")
}
