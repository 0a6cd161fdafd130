package store

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect holds the driver name and the schema of one SQL backend.
// Queries are written with '?' placeholders and rebound per driver.
type Dialect struct {
	Name   string
	Driver string
	// Schema statements are executed one at a time on open
	Schema []string
	// LockClause is appended to the SELECT of a read-modify-write
	LockClause string
	// SingleConnection limits the pool to one connection
	SingleConnection bool
}

// SQLite stores both tables in a local file
var SQLite = Dialect{
	Name:             "sqlite",
	Driver:           "sqlite3",
	SingleConnection: true,
	Schema: []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS occurrences (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			source       TEXT NOT NULL DEFAULT '',
			email        TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			first_name   TEXT NOT NULL DEFAULT '',
			last_name    TEXT NOT NULL DEFAULT '',
			name         TEXT NOT NULL DEFAULT '',
			header_role  TEXT NOT NULL,
			occurred_at  INTEGER,
			markers      TEXT NOT NULL DEFAULT '',
			raw_headers  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_occurrences_email ON occurrences(email)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			email        TEXT PRIMARY KEY,
			first_name   TEXT NOT NULL DEFAULT '',
			last_name    TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			source       TEXT NOT NULL DEFAULT '',
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		)`,
	},
}

// MySQL stores both tables in a MySQL database
var MySQL = Dialect{
	Name:       "mysql",
	Driver:     "mysql",
	LockClause: " FOR UPDATE",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS occurrences (
			id           BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id       VARCHAR(36) NOT NULL,
			source       VARCHAR(1024) NOT NULL DEFAULT '',
			email        VARCHAR(255) NOT NULL,
			display_name TEXT NOT NULL,
			first_name   TEXT NOT NULL,
			last_name    TEXT NOT NULL,
			name         TEXT NOT NULL,
			header_role  VARCHAR(8) NOT NULL,
			occurred_at  BIGINT NULL,
			markers      VARCHAR(64) NOT NULL DEFAULT '',
			raw_headers  TEXT NOT NULL,
			INDEX idx_occurrences_email (email)
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			email        VARCHAR(255) PRIMARY KEY,
			first_name   TEXT NOT NULL,
			last_name    TEXT NOT NULL,
			display_name TEXT NOT NULL,
			source       VARCHAR(1024) NOT NULL DEFAULT '',
			created_at   BIGINT NOT NULL,
			updated_at   BIGINT NOT NULL
		)`,
	},
}

// Postgres stores both tables in a PostgreSQL database through pgx
var Postgres = Dialect{
	Name:       "postgres",
	Driver:     "pgx",
	LockClause: " FOR UPDATE",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS occurrences (
			id           BIGSERIAL PRIMARY KEY,
			run_id       TEXT NOT NULL,
			source       TEXT NOT NULL DEFAULT '',
			email        TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			first_name   TEXT NOT NULL DEFAULT '',
			last_name    TEXT NOT NULL DEFAULT '',
			name         TEXT NOT NULL DEFAULT '',
			header_role  TEXT NOT NULL,
			occurred_at  BIGINT,
			markers      TEXT NOT NULL DEFAULT '',
			raw_headers  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_occurrences_email ON occurrences(email)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			email        TEXT PRIMARY KEY,
			first_name   TEXT NOT NULL DEFAULT '',
			last_name    TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			source       TEXT NOT NULL DEFAULT '',
			created_at   BIGINT NOT NULL,
			updated_at   BIGINT NOT NULL
		)`,
	},
}

// DialectByName returns the dialect registered under name
func DialectByName(name string) (Dialect, error) {
	switch name {
	case SQLite.Name:
		return SQLite, nil
	case MySQL.Name:
		return MySQL, nil
	case Postgres.Name:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported SQL dialect: %s", name)
	}
}
