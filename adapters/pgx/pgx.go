// Package pgx adapts the auth storage ports to PostgreSQL.
package pgx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morgante/graph-auth/core"
)

type Adapter struct {
	pool *pgxpool.Pool
}

var _ core.AuthStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
	}
}

// userColumns maps accessor-table field names to columns; anything outside
// this map never reaches SQL.
var userColumns = map[string]string{
	"email":      "email",
	"username":   "username",
	"first_name": "first_name",
	"last_name":  "last_name",
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
