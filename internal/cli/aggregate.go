package cli

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"

	"oraclewatcher/internal/app"
	"oraclewatcher/internal/client"
)

var (
	aggregateQueueHex    string
	aggregateFeedHashHex string
	aggregateOracleHex   string
	aggregateMinSamples  int
	aggregateMaxVariance uint64
	aggregateMinResp     uint32
	aggregateValue       int64
	aggregateNeg         bool
	aggregateTimestamp   uint64
	aggregateFeeCoinType string
	aggregateFeeAmount   uint64
	aggregateFeePayer    string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Admit one single-oracle update through the aggregator pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		queueID, err := client.ParseID(aggregateQueueHex)
		if err != nil {
			return fmt.Errorf("--queue: %w", err)
		}
		oracleID, err := client.ParseID(aggregateOracleHex)
		if err != nil {
			return fmt.Errorf("--oracle: %w", err)
		}
		feedHash, err := parseFeedHex(aggregateFeedHashHex)
		if err != nil {
			return fmt.Errorf("--feed-hash: %w", err)
		}

		opts := app.AggregateOptions{
			QueueID:          queueID,
			FeedHash:         feedHash,
			MinSampleSize:    aggregateMinSamples,
			MaxVariance:      aggregateMaxVariance,
			MinResponses:     aggregateMinResp,
			OracleID:         oracleID,
			Value:            aggregateValue,
			Neg:              aggregateNeg,
			TimestampSeconds: aggregateTimestamp,
			FeeCoinType:      aggregateFeeCoinType,
			FeeAmount:        aggregateFeeAmount,
			FeePayer:         aggregateFeePayer,
		}

		// This command has no local key material for the oracle it targets;
		// it submits with a zero signature and relies on the operator's own
		// signing infrastructure for a real update. A future flag could load
		// a key file for offline testing, mirroring simulate-quote.
		var priv *secp256k1.PrivateKey

		summary, ok, err := getApp().Aggregate(cmd.Context(), opts, priv)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "update admitted; not enough samples yet for a summary")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "result=%s mean=%s stdev=%s\n", summary.Result.String(), formatFloat(summary.Mean), formatFloat(summary.Stdev))
		return nil
	},
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateQueueHex, "queue", "", "Queue id, 0x-prefixed 32-byte hex (required)")
	aggregateCmd.Flags().StringVar(&aggregateFeedHashHex, "feed-hash", "", "Feed hash, 0x-prefixed 32-byte hex (required)")
	aggregateCmd.Flags().StringVar(&aggregateOracleHex, "oracle", "", "Oracle id, 0x-prefixed 32-byte hex (required)")
	aggregateCmd.Flags().IntVar(&aggregateMinSamples, "min-samples", 3, "Minimum populated samples before a summary is computed; also fixes the ring buffer's capacity")
	aggregateCmd.Flags().Uint64Var(&aggregateMaxVariance, "max-variance", 0, "Maximum variance, scaled 1e9")
	aggregateCmd.Flags().Uint32Var(&aggregateMinResp, "min-responses", 1, "Minimum responses recorded in the update message")
	aggregateCmd.Flags().Int64Var(&aggregateValue, "value", 0, "Update value magnitude")
	aggregateCmd.Flags().BoolVar(&aggregateNeg, "neg", false, "Treat --value as negative")
	aggregateCmd.Flags().Uint64Var(&aggregateTimestamp, "timestamp", 0, "Update timestamp in seconds")
	aggregateCmd.Flags().StringVar(&aggregateFeeCoinType, "fee-coin", "", "Fee coin type (required)")
	aggregateCmd.Flags().Uint64Var(&aggregateFeeAmount, "fee-amount", 0, "Fee amount")
	aggregateCmd.Flags().StringVar(&aggregateFeePayer, "fee-payer", "", "Fee payer address")
	aggregateCmd.MarkFlagRequired("queue")
	aggregateCmd.MarkFlagRequired("feed-hash")
	aggregateCmd.MarkFlagRequired("oracle")
	aggregateCmd.MarkFlagRequired("fee-coin")
}
