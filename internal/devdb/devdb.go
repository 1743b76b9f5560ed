// Package devdb starts throwaway MariaDB, MySQL or Postgres containers for local
// development and integration tests.
package devdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/localnerve/botdesk/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Options describe the database to start
type Options struct {
	Type         string // mariadb, mysql or postgres
	Image        string
	Database     string
	User         string
	Password     string
	RootPassword string
	// KeepData disables the tmpfs data directory
	KeepData bool
}

// OptionsFromEnv reads DB_TYPE, DB_IMAGE, DB_DATABASE, DB_USER, DB_PASSWORD and
// DB_ROOT_PASSWORD, defaulting everything but the type's image
func OptionsFromEnv() Options {
	opts := Options{
		Type:         getEnv("DB_TYPE", "mariadb"),
		Image:        os.Getenv("DB_IMAGE"),
		Database:     getEnv("DB_DATABASE", "botdesk"),
		User:         getEnv("DB_USER", "botdesk"),
		Password:     getEnv("DB_PASSWORD", "botdesk"),
		RootPassword: getEnv("DB_ROOT_PASSWORD", "root"),
	}
	if opts.Image == "" {
		opts.Image = defaultImage(opts.Type)
	}
	return opts
}

func defaultImage(dbType string) string {
	switch dbType {
	case "postgres":
		return "postgres:17-alpine"
	case "mysql":
		return "mysql:8.4"
	}
	return "mariadb:11.4"
}

const startupTimeout = 90 * time.Second

// Database is a running container
type Database struct {
	Container testcontainers.Container
	Host      string
	Port      nat.Port
	Options   Options
}

// Logf receives progress messages; testing.T.Logf and log.Printf both fit
type Logf func(format string, args ...any)

// Start runs the container and waits until it accepts connections
func Start(ctx context.Context, opts Options, logf Logf) (*Database, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	containerPort := "3306"
	dataDir := "/var/lib/mysql"
	if opts.Type == "postgres" {
		containerPort = "5432"
		dataDir = "/var/lib/postgresql/data"
	} else if opts.Type != "mysql" && opts.Type != "mariadb" {
		return nil, fmt.Errorf("unsupported database type for devdb: %s", opts.Type)
	}

	tcpPort, err := nat.NewPort("tcp", containerPort)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}

	waitFor := readiness(opts.Type, tcpPort)

	exists, err := imageExists(ctx, opts.Image)
	if err != nil {
		logf("Could not list local images: %v", err)
	} else if exists {
		logf("Image %s exists, reusing...", opts.Image)
	} else {
		logf("Image %s not found locally, pulling...", opts.Image)
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        opts.Image,
			ExposedPorts: []string{string(tcpPort)},
			Env:          initEnv(opts),
			WaitingFor:   waitFor,
			HostConfigModifier: func(hostConfig *container.HostConfig) {
				if !opts.KeepData {
					hostConfig.Tmpfs = map[string]string{dataDir: "rw"}
				}
			},
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", opts.Image, err)
	}

	db := &Database{Container: c, Options: opts}
	if db.Host, err = c.Host(ctx); err == nil {
		db.Port, err = c.MappedPort(ctx, tcpPort)
	}
	if err != nil {
		_ = db.Terminate(context.Background())
		return nil, fmt.Errorf("failed to read container address: %w", err)
	}

	if opts.Type != "postgres" {
		if err := waitForMySQL(ctx, db); err != nil {
			_ = db.Terminate(context.Background())
			return nil, err
		}
	}

	logf("%s ready at %s:%s", opts.Image, db.Host, db.Port.Port())
	return db, nil
}

// Config returns a service configuration pointing at the container
func (d *Database) Config() *config.Config {
	return &config.Config{
		DBType:            d.Options.Type,
		DBHost:            d.Host,
		DBPort:            d.Port.Port(),
		DBDatabase:        d.Options.Database,
		DBUser:            d.Options.User,
		DBPassword:        d.Options.Password,
		DBConnectionLimit: 5,
		DBLogLevel:        "warn",
		MessageLimit:      100,
		HistoryLimit:      10,
	}
}

// Env returns the DB_* variables that point the service at the container
func (d *Database) Env() []string {
	cfg := d.Config()
	return []string{
		"DB_TYPE=" + cfg.DBType,
		"DB_HOST=" + cfg.DBHost,
		"DB_PORT=" + cfg.DBPort,
		"DB_DATABASE=" + cfg.DBDatabase,
		"DB_USER=" + cfg.DBUser,
		"DB_PASSWORD=" + cfg.DBPassword,
	}
}

// Terminate stops and removes the container
func (d *Database) Terminate(ctx context.Context) error {
	if d == nil || d.Container == nil {
		return nil
	}
	return d.Container.Terminate(ctx)
}

// readiness picks the startup wait for the database type, bounded to 90 seconds
func readiness(dbType string, port nat.Port) wait.Strategy {
	if dbType == "postgres" {
		// Postgres restarts once after init; the second ready line is the real one
		return wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(startupTimeout)
	}
	return wait.ForListeningPort(port).WithStartupTimeout(startupTimeout)
}

func initEnv(opts Options) map[string]string {
	if opts.Type == "postgres" {
		return map[string]string{
			"POSTGRES_PASSWORD": opts.Password,
			"POSTGRES_USER":     opts.User,
			"POSTGRES_DB":       opts.Database,
		}
	}
	return map[string]string{
		"MYSQL_ROOT_PASSWORD": opts.RootPassword,
		"MYSQL_DATABASE":      opts.Database,
		"MYSQL_USER":          opts.User,
		"MYSQL_PASSWORD":      opts.Password,
	}
}

// waitForMySQL pings until the server answers. The port opens before the init
// scripts have created the application user.
func waitForMySQL(ctx context.Context, d *Database) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", d.Options.User, d.Options.Password, d.Host, d.Port.Port(), d.Options.Database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("%s not ready after 30 seconds: %w", d.Options.Type, err)
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName || strings.TrimPrefix(tag, "docker.io/library/") == imageName {
				return true, nil
			}
		}
	}
	return false, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
