package main

// Run database migrations:
//   go run ./cmd/migrate
//
// SESSION_DB selects postgres (DATABASE_URL) or sqlite (SQLITE_PATH).

import (
	"context"
	"database/sql"
	"log"
	"os"

	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	var (
		sqlDB   *sql.DB
		dialect string
		err     error
	)
	switch cfg.SessionDB {
	case "postgres":
		dialect = db.DialectPostgres
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	case "sqlite":
		dialect = db.DialectSQLite
		sqlDB, err = db.OpenSQLite(ctx, cfg.SQLitePath, opts)
	default:
		log.Printf("SESSION_DB=%q has no schema to migrate", cfg.SessionDB)
		return
	}
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("%s migrations applied", dialect)
}
