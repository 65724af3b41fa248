package pgx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/morgante/graph-auth/core"
)

const userSelectColumns = `id, email, username, first_name, last_name, password_hash, is_staff, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	user := &core.User{}
	var lastLogin *time.Time
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.IsStaff, &lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}
	user.LastLogin = lastLogin
	return user, nil
}

func (a *Adapter) CreateUser(user *core.User) error {
	ctx := context.Background()

	query := `INSERT INTO public.users (id, email, username, first_name, last_name, password_hash, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`

	err := a.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.FirstName, user.LastName,
		user.PasswordHash, user.IsStaff,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return err
	}
	return nil
}

func (a *Adapter) GetUserByID(id string) (*core.User, error) {
	ctx := context.Background()
	q := `SELECT ` + userSelectColumns + ` FROM public.users WHERE id = $1`
	return scanUser(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) GetUserByField(field, value string) (*core.User, error) {
	column, ok := userColumns[field]
	if !ok {
		return nil, core.ErrUserNotFound
	}

	ctx := context.Background()
	q := `SELECT ` + userSelectColumns + ` FROM public.users WHERE ` + column + ` = $1`
	return scanUser(a.pool.QueryRow(ctx, q, value))
}

func (a *Adapter) FindUsersByEmail(email string) ([]*core.User, error) {
	ctx := context.Background()
	q := `SELECT ` + userSelectColumns + ` FROM public.users WHERE email = $1 ORDER BY id`

	rows, err := a.pool.Query(ctx, q, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*core.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (a *Adapter) UpdateUser(user *core.User) error {
	ctx := context.Background()

	query := `UPDATE public.users
		SET email = $2, username = $3, first_name = $4, last_name = $5,
			password_hash = $6, is_staff = $7, last_login = $8, updated_at = now()
		WHERE id = $1 RETURNING updated_at`

	err := a.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.FirstName, user.LastName,
		user.PasswordHash, user.IsStaff, user.LastLogin,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return core.ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return err
	}
	return nil
}

func (a *Adapter) ListUsers(f core.UserFilter) ([]*core.User, error) {
	ctx := context.Background()

	var conditions []string
	var args []any
	for field, value := range f.Fields {
		column, ok := userColumns[field]
		if !ok {
			continue
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	q := `SELECT ` + userSelectColumns + ` FROM public.users`
	if len(conditions) > 0 {
		q += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := a.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*core.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
