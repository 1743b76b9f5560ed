package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/localnerve/botdesk/internal/database"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/spf13/cobra"
)

var botsCmd = &cobra.Command{
	Use:   "bots",
	Short: "Inspect the bot catalog",
}

var botsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bots",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		db, _, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer database.Close(db)

		bots, err := services.NewBotService(db).List(cmd.Context(), category)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE")
		for _, b := range bots {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\n", b.ID, b.Name, b.Category, b.Price)
		}
		return w.Flush()
	},
}

func init() {
	botsListCmd.Flags().String("category", "", "Only bots in this category")
	botsCmd.AddCommand(botsListCmd)
}
