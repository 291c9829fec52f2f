package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// DriverPostgres and DriverSQLite name the two database/sql drivers this
// package registers. Driver resolution also accepts the aliases callers
// commonly configure ("postgresql", "pg", "sqlite").
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ResolveDriver normalizes a configured driver name to the registered
// database/sql driver it maps to.
func ResolveDriver(name string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "":
		return "", fmt.Errorf("sqlstore: driver is required")
	default:
		return "", fmt.Errorf("sqlstore: unsupported driver %q", name)
	}
}

// DialectFor returns the bun schema dialect matching a driver name.
func DialectFor(name string) (schema.Dialect, error) {
	driver, err := ResolveDriver(name)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverPostgres:
		return pgdialect.New(), nil
	default:
		return sqlitedialect.New(), nil
	}
}

// Open opens a bun database over the named driver and DSN. Callers own the
// returned handle and close it when done.
func Open(driver, dsn string) (*bun.DB, error) {
	resolved, err := ResolveDriver(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}

	sqlDB, err := sql.Open(resolved, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s database: %w", resolved, err)
	}
	if resolved == DriverSQLite {
		// Shared-cache in-memory databases misbehave past one connection.
		sqlDB.SetMaxOpenConns(1)
	}

	dialect, err := DialectFor(resolved)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return bun.NewDB(sqlDB, dialect), nil
}
