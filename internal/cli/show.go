package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"oraclewatcher/internal/app"
)

var (
	showLimit   int
	showFeedHex string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent events, or a feed's recent quotes with --feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{Limit: showLimit}

		if showFeedHex != "" {
			feedID, err := parseFeedHex(showFeedHex)
			if err != nil {
				return err
			}
			opts.FeedID = &feedID
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().StringVar(&showFeedHex, "feed", "", "Feed id, 0x-prefixed 32-byte hex; shows that feed's quotes instead of the event log")
}
