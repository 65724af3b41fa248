// Package sqlite adapts the auth storage ports to an embedded SQLite
// database, for development and single-node deployments.
package sqlite

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/morgante/graph-auth/core"
)

type Adapter struct {
	db *sql.DB
}

var _ core.AuthStorage = (*Adapter)(nil)

// Open opens (or creates) the database at path and prepares the schema.
func Open(path string) (*Adapter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	a := &Adapter{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// New wraps an existing handle. The schema must already exist.
func New(db *sql.DB) *Adapter {
	return &Adapter{db: db}
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) migrate() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			is_staff INTEGER NOT NULL DEFAULT 0,
			last_login TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS users_email ON users (email);
		CREATE UNIQUE INDEX IF NOT EXISTS users_username ON users (username) WHERE username <> '';

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users (id),
			token_hash TEXT NOT NULL UNIQUE,
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS sessions_user_id ON sessions (user_id);
	`)
	return err
}

var userColumns = map[string]string{
	"email":      "email",
	"username":   "username",
	"first_name": "first_name",
	"last_name":  "last_name",
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
