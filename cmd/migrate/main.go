// Command migrate manages the Plume Postgres schema with goose. The
// migrations under sql/ mirror the entity schemas the API registers at
// startup; the target database comes from PLM_POSTGRES_DSN.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/plumehq/plume-backend/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	flags = flag.NewFlagSet("migrate", flag.ExitOnError)
	dir   = flags.String("dir", "sql", "directory holding the Plume goose migrations")
)

const usage = `Usage: migrate [-dir sql] COMMAND

Applies the Plume schema migrations (users, posts, tags, post_tags)
to the Postgres instance named by PLM_POSTGRES_DSN.

Commands:
  up        migrate to the latest version
  up-to N   migrate up to version N
  down      roll back one version
  status    print the state of every migration
  version   print the current schema version
`

func main() {
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		flags.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Database.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	switch command := args[0]; command {
	case "up":
		if err := goose.Up(db, *dir); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Plume schema is up to date")
	case "up-to":
		if len(args) < 2 {
			log.Fatal("up-to requires a version number")
		}
		version, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			log.Fatalf("Invalid version %q: %v", args[1], err)
		}
		if err := goose.UpTo(db, *dir, version); err != nil {
			log.Fatalf("Migration up-to %d failed: %v", version, err)
		}
	case "down":
		if err := goose.Down(db, *dir); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
	case "status":
		if err := goose.Status(db, *dir); err != nil {
			log.Fatalf("Migration status failed: %v", err)
		}
	case "version":
		version, err := goose.GetDBVersion(db)
		if err != nil {
			log.Fatalf("Reading schema version failed: %v", err)
		}
		log.Printf("Plume schema version: %d", version)
	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
