package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateFeedHex   string
	simulatePrevious  int64
	simulateCurrent   int64
	simulateSlot      uint64
	simulateTimestamp uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-quote",
	Short: "Sign and admit two synthetic quotes locally to exercise the deviation-alert path",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrevious == simulateCurrent {
			return errors.New("--previous and --current must differ to exercise a deviation")
		}

		feedID, err := parseFeedHex(simulateFeedHex)
		if err != nil {
			return err
		}

		return getApp().SimulateQuote(cmd.Context(), feedID, simulatePrevious, simulateCurrent, simulateSlot, simulateTimestamp)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateFeedHex, "feed", "", "Feed id, 0x-prefixed 32-byte hex (required)")
	simulateCmd.Flags().Int64Var(&simulatePrevious, "previous", 0, "Previous quote value (integer magnitude)")
	simulateCmd.Flags().Int64Var(&simulateCurrent, "current", 0, "Current quote value (integer magnitude)")
	simulateCmd.Flags().Uint64Var(&simulateSlot, "slot", 1, "Starting slot for the previous quote")
	simulateCmd.Flags().Uint64Var(&simulateTimestamp, "timestamp", 0, "Starting timestamp in seconds for the previous quote")
	simulateCmd.MarkFlagRequired("feed")
}
