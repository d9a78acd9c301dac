package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/maragudk/migrate"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite3"
)

//go:embed migrations
var migrations embed.FS

// Connect opens the database, checks the connection and brings the
// schema up to date.
func Connect(ctx context.Context, driver, datasource string) (*sqlx.DB, error) {
	if driver != DriverPostgres && driver != DriverSqlite {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.Open(driver, datasource)
	if err != nil {
		return nil, fmt.Errorf("cannot open db: %w", err)
	}

	// an in-memory sqlite database lives and dies with its connection.
	if driver == DriverSqlite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot connect to db: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot initialize db schema: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded migrations for the db's driver.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	fsys, err := fs.Sub(migrations, "migrations/"+db.DriverName())
	if err != nil {
		return err
	}
	return migrate.Up(ctx, db.DB, fsys)
}

// PostgresDSN builds a lib/pq connection string.
func PostgresDSN(host, port, user, password, dbname, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)
}
