package cli

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"oraclewatcher/internal/app"
)

var (
	exportFeedHex   string
	exportFrom      string
	exportTo        string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a feed's quote history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		feedID, err := parseFeedHex(exportFeedHex)
		if err != nil {
			return err
		}

		opts := app.ExportOptions{
			FeedID:    feedID,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		if exportFrom != "" {
			from, err := time.Parse(time.RFC3339, exportFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if exportTo != "" {
			to, err := time.Parse(time.RFC3339, exportTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFeedHex, "feed", "", "Feed id, 0x-prefixed 32-byte hex (required)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End timestamp (RFC3339, exclusive)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
	exportCmd.MarkFlagRequired("feed")
}

func parseFeedHex(s string) ([32]byte, error) {
	var id [32]byte
	trimmed := s
	if len(trimmed) >= 2 && trimmed[0:2] == "0x" {
		trimmed = trimmed[2:]
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("invalid feed id: %w", err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("feed id must be 32 bytes, got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
