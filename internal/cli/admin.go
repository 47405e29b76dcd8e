package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"oraclewatcher/internal/client"
	"oraclewatcher/internal/queue"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Authenticated wrappers over a queue's governance methods",
}

var (
	adminQueueHex   string
	adminCaller     string
	adminName       string
	adminFee        uint64
	adminRecipient  string
	adminMinAttest  uint32
	adminValidityMs uint64
	adminGuardian   string
	adminIsGuardian bool
	adminNewAuth    string
	adminCoinType   string
)

var adminSetConfigsCmd = &cobra.Command{
	Use:   "set-configs",
	Short: "Update a queue's mutable governance fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		queueID, err := client.ParseID(adminQueueHex)
		if err != nil {
			return fmt.Errorf("--queue: %w", err)
		}
		var guardian queue.ID
		if adminGuardian != "" {
			guardian, err = client.ParseID(adminGuardian)
			if err != nil {
				return fmt.Errorf("--guardian: %w", err)
			}
		}

		q, err := getApp().AdminSetConfigs(cmd.Context(), queueID, adminCaller, queue.Config{
			Name:                   adminName,
			Fee:                    adminFee,
			FeeRecipient:           adminRecipient,
			MinAttestations:        adminMinAttest,
			OracleValidityLengthMs: adminValidityMs,
			GuardianQueueID:        guardian,
			IsGuardian:             adminIsGuardian,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), q.String())
		return nil
	},
}

var adminSetAuthorityCmd = &cobra.Command{
	Use:   "set-authority",
	Short: "Transfer a queue's authority",
	RunE: func(cmd *cobra.Command, args []string) error {
		queueID, err := client.ParseID(adminQueueHex)
		if err != nil {
			return fmt.Errorf("--queue: %w", err)
		}
		q, err := getApp().AdminSetAuthority(cmd.Context(), queueID, adminCaller, adminNewAuth)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), q.String())
		return nil
	},
}

var adminAddFeeCoinCmd = &cobra.Command{
	Use:   "add-fee-coin",
	Short: "Register a coin type as an accepted fee coin",
	RunE: func(cmd *cobra.Command, args []string) error {
		queueID, err := client.ParseID(adminQueueHex)
		if err != nil {
			return fmt.Errorf("--queue: %w", err)
		}
		q, err := getApp().AdminAddFeeCoin(cmd.Context(), queueID, adminCaller, adminCoinType)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), q.String())
		return nil
	},
}

var adminRemoveFeeCoinCmd = &cobra.Command{
	Use:   "remove-fee-coin",
	Short: "Deregister a coin type",
	RunE: func(cmd *cobra.Command, args []string) error {
		queueID, err := client.ParseID(adminQueueHex)
		if err != nil {
			return fmt.Errorf("--queue: %w", err)
		}
		q, err := getApp().AdminRemoveFeeCoin(cmd.Context(), queueID, adminCaller, adminCoinType)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), q.String())
		return nil
	},
}

func init() {
	adminCmd.PersistentFlags().StringVar(&adminQueueHex, "queue", "", "Queue id, 0x-prefixed 32-byte hex (required)")
	adminCmd.PersistentFlags().StringVar(&adminCaller, "caller", "", "Caller address; must match the queue's current authority (required)")
	adminCmd.MarkPersistentFlagRequired("queue")
	adminCmd.MarkPersistentFlagRequired("caller")

	adminSetConfigsCmd.Flags().StringVar(&adminName, "name", "", "Queue display name")
	adminSetConfigsCmd.Flags().Uint64Var(&adminFee, "fee", 0, "Submission fee")
	adminSetConfigsCmd.Flags().StringVar(&adminRecipient, "fee-recipient", "", "Fee recipient address")
	adminSetConfigsCmd.Flags().Uint32Var(&adminMinAttest, "min-attestations", 1, "Minimum attestations required")
	adminSetConfigsCmd.Flags().Uint64Var(&adminValidityMs, "oracle-validity-ms", 0, "Oracle attestation validity length, milliseconds")
	adminSetConfigsCmd.Flags().StringVar(&adminGuardian, "guardian", "", "Guardian queue id, 0x-prefixed 32-byte hex")
	adminSetConfigsCmd.Flags().BoolVar(&adminIsGuardian, "is-guardian", false, "Mark this queue itself as a guardian queue")

	adminSetAuthorityCmd.Flags().StringVar(&adminNewAuth, "new-authority", "", "New authority address (required)")
	adminSetAuthorityCmd.MarkFlagRequired("new-authority")

	adminAddFeeCoinCmd.Flags().StringVar(&adminCoinType, "coin-type", "", "Fee coin type (required)")
	adminAddFeeCoinCmd.MarkFlagRequired("coin-type")

	adminRemoveFeeCoinCmd.Flags().StringVar(&adminCoinType, "coin-type", "", "Fee coin type (required)")
	adminRemoveFeeCoinCmd.MarkFlagRequired("coin-type")

	adminCmd.AddCommand(adminSetConfigsCmd, adminSetAuthorityCmd, adminAddFeeCoinCmd, adminRemoveFeeCoinCmd)
}
