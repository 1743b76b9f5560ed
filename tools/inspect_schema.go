// Prints the SQL of every table and index the migrations create, using an
// in-memory SQLite database.
package main

import (
	"fmt"
	"log"

	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/database"
)

func main() {
	db, err := database.Connect(&config.Config{
		DBType:            "sqlite",
		DBDatabase:        ":memory:",
		DBConnectionLimit: 1,
		DBLogLevel:        "silent",
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	version, err := database.SchemaVersion(db)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Schema version %d\n", version)

	var names []string
	db.Raw("SELECT name FROM sqlite_master WHERE type IN ('table', 'index') AND sql IS NOT NULL ORDER BY type DESC, name").Scan(&names)

	for _, name := range names {
		fmt.Printf("\n=== %s ===\n", name)
		var schema string
		db.Raw("SELECT sql FROM sqlite_master WHERE name = ?", name).Scan(&schema)
		fmt.Println(schema)
	}
}
