package main

import (
	"errors"
	"fmt"

	"github.com/localnerve/botdesk/internal/database"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage activation keys",
}

var keysIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue single-use activation keys for a bot, one per line",
	RunE: func(cmd *cobra.Command, args []string) error {
		botID, _ := cmd.Flags().GetUint64("bot")
		count, _ := cmd.Flags().GetInt("count")
		if botID == 0 {
			return errors.New("--bot is required")
		}

		db, _, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer database.Close(db)

		keys, err := services.NewEntitlementService(db).IssueKeys(cmd.Context(), botID, count)
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("bot %d not found", botID)
		}
		if errors.Is(err, services.ErrInvalidInput) {
			return fmt.Errorf("--count must be between 1 and %d", services.MaxKeysPerBatch)
		}
		if err != nil {
			return err
		}

		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Show the state of one activation key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer database.Close(db)

		key, err := services.NewEntitlementService(db).GetKey(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bot:  %d\nused: %t\n", key.BotID, key.Used)
		if key.UsedBy != nil {
			fmt.Fprintf(out, "by:   %s\n", *key.UsedBy)
		}
		if key.UsedAt != nil {
			fmt.Fprintf(out, "at:   %s\n", key.UsedAt.Format("2006-01-02 15:04:05Z07:00"))
		}
		return nil
	},
}

func init() {
	keysIssueCmd.Flags().Uint64("bot", 0, "Bot ID")
	keysIssueCmd.Flags().Int("count", 1, "Number of keys")
	keysCmd.AddCommand(keysIssueCmd)
	keysCmd.AddCommand(keysShowCmd)
}
