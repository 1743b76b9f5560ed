package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/localnerve/botdesk/data"
	"github.com/localnerve/botdesk/internal/database"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the starter bot catalog into an empty database",
	Long: `seed migrates the schema, then inserts the bundled starter catalog, or the
catalog in --file, when the bots table is empty. Use --force to insert regardless.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("file", "", "JSON array of bots to load instead of the bundled catalog")
	seedCmd.Flags().Bool("force", false, "Insert even when bots already exist")
}

func runSeed(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	force, _ := cmd.Flags().GetBool("force")

	raw := data.SeedBots
	if file != "" {
		var err error
		if raw, err = os.ReadFile(file); err != nil {
			return err
		}
	}

	var inputs []services.BotInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	db, _, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	bots := services.NewBotService(db)
	count, err := bots.Count(cmd.Context())
	if err != nil {
		return err
	}
	if count > 0 && !force {
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog already has %d bots, nothing to do\n", count)
		return nil
	}

	created, err := bots.CreateMany(cmd.Context(), inputs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %d bots\n", len(created))
	return nil
}
