package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/TechnoExperience/texnewweb-sub000/internal/config"
	"github.com/TechnoExperience/texnewweb-sub000/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

// migrator is the subset of *migrate.Migrate the command drives.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
}

var newMigrator = func(sourceURL, databaseURL string) (migrator, func(), error) {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, func() { m.Close() }, nil
}

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "up", "migration mode: up, down, version or force")
	steps := flag.Int("steps", 1, "number of migrations to roll back in down mode")
	version := flag.Int("version", -1, "version to force in force mode")
	dir := flag.String("dir", "./migrations", "migrations directory")
	flag.Parse()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		dbURL = db.URL(config.LoadConfig())
	}

	m, closeFn, err := newMigrator("file://"+*dir, dbURL)
	if err != nil {
		log.Fatal(err)
	}
	defer closeFn()

	if err := run(m, *mode, *steps, *version); err != nil {
		log.Fatal(err)
	}
}

func run(m migrator, mode string, steps, version int) error {
	switch mode {
	case "up":
		return runUp(m)
	case "down":
		return runDown(m, steps)
	case "version":
		return printVersion(m)
	case "force":
		if version < 0 {
			return errors.New("force mode needs -version")
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("failed to force version %d: %w", version, err)
		}
		fmt.Printf("Forced schema version to %d\n", version)
		return nil
	default:
		return fmt.Errorf("unknown mode: %s (use 'up', 'down', 'version' or 'force')", mode)
	}
}

func runUp(m migrator) error {
	err := m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("⏭ No new migrations to apply.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("❌ Migration failed: %w", err)
	}
	fmt.Println("✅ All new migrations applied successfully.")
	return printVersion(m)
}

func runDown(m migrator, steps int) error {
	if steps < 1 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}

	err := m.Steps(-steps)
	if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, migrate.ErrNilVersion) || errors.Is(err, os.ErrNotExist) {
		fmt.Println("⚠️  No migrations to roll back.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("❌ Rollback failed: %w", err)
	}
	fmt.Println("✅ Rollback successful.")
	return nil
}

func printVersion(m migrator) error {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("No migrations applied yet.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	fmt.Printf("Schema version %d (dirty: %t)\n", v, dirty)
	return nil
}
