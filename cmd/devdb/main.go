package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/botdesk/internal/database"
	"github.com/localnerve/botdesk/internal/devdb"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var keepData bool
	flag.BoolVar(&keepData, "keep", false, "store data on the container filesystem instead of tmpfs")
	flag.Parse()

	usage := `
Start a development database container for botdesk and migrate it.

Usage:

devdb [-h] [-keep] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file holding DB_TYPE, DB_IMAGE, DB_DATABASE,
DB_USER, DB_PASSWORD and DB_ROOT_PASSWORD

example
  devdb -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	opts := devdb.OptionsFromEnv()
	opts.KeepData = keepData

	ctx := context.Background()
	db, err := devdb.Start(ctx, opts, log.Printf)
	if err != nil {
		log.Fatalf("Failed to start database container: %v\n", err)
	}

	conn, err := database.Connect(db.Config())
	if err == nil {
		err = database.Migrate(conn)
	}
	if err != nil {
		_ = db.Terminate(ctx)
		log.Fatalf("Failed to prepare schema: %v\n", err)
	}

	fmt.Println("# point the server at the container with:")
	fmt.Println(strings.Join(db.Env(), "\n"))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigs

	log.Printf("Received signal: %v, terminating database container...\n", sig)
	if err := db.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate container: %v\n", err)
	}
}
