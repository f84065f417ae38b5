// Инструмент миграций схемы PostgreSQL хранилища событий.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	dbURL := flag.String("database-url", os.Getenv("BANKCORE_POSTGRES_DSN"), "PostgreSQL connection string")
	migrationsDir := flag.String("migrations-dir", "./migrations/postgres", "Path to migrations directory")
	_ = flag.CommandLine.Parse(os.Args[2:])

	if err := run(command, *dbURL, *migrationsDir, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command, dbURL, migrationsDir string, args []string) error {
	if command == "create" {
		if len(args) == 0 {
			return fmt.Errorf("migration name is required")
		}
		return goose.Create(nil, migrationsDir, args[0], "sql")
	}

	if dbURL == "" {
		return fmt.Errorf("--database-url is required")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		return goose.Up(db, migrationsDir)
	case "down":
		return goose.Down(db, migrationsDir)
	case "status":
		return goose.Status(db, migrationsDir)
	case "version":
		return goose.Version(db, migrationsDir)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Println("Bankcore Migration Tool")
	fmt.Println()
	fmt.Println("Usage: bankcore-migrate <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up            - Apply all pending migrations")
	fmt.Println("  down          - Rollback the last migration")
	fmt.Println("  status        - Show status of all migrations")
	fmt.Println("  version       - Show current migration version")
	fmt.Println("  create <name> - Create a new SQL migration")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --database-url    - PostgreSQL connection string (or BANKCORE_POSTGRES_DSN)")
	fmt.Println("  --migrations-dir  - Path to migrations directory (default: ./migrations/postgres)")
}
