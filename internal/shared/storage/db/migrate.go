package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps dialect and base FS in package globals.
var migrateMu sync.Mutex

// RunMigrations applies embedded SQL migrations for dialect via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, dialect string) error {
	if database == nil {
		return nil
	}

	var gooseDialect, dir string
	switch dialect {
	case DialectPostgres:
		gooseDialect, dir = "postgres", "migrations/postgres"
	case DialectSQLite:
		gooseDialect, dir = "sqlite3", "migrations/sqlite"
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, dir)
}
