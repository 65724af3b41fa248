package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/morgante/graph-auth/core"
)

const userSelectColumns = `id, email, username, first_name, last_name, password_hash, is_staff, last_login, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*core.User, error) {
	user := &core.User{}
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.IsStaff, &lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return user, nil
}

func (a *Adapter) CreateUser(user *core.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := a.db.Exec(`INSERT INTO users (id, email, username, first_name, last_name, password_hash, is_staff, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Username, user.FirstName, user.LastName,
		user.PasswordHash, user.IsStaff, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return err
	}
	return nil
}

func (a *Adapter) GetUserByID(id string) (*core.User, error) {
	row := a.db.QueryRow(`SELECT `+userSelectColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (a *Adapter) GetUserByField(field, value string) (*core.User, error) {
	column, ok := userColumns[field]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	row := a.db.QueryRow(`SELECT `+userSelectColumns+` FROM users WHERE `+column+` = ?`, value)
	return scanUser(row)
}

func (a *Adapter) FindUsersByEmail(email string) ([]*core.User, error) {
	rows, err := a.db.Query(`SELECT `+userSelectColumns+` FROM users WHERE email = ? ORDER BY id`, email)
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
	user.UpdatedAt = time.Now().UTC()

	result, err := a.db.Exec(`UPDATE users
		SET email = ?, username = ?, first_name = ?, last_name = ?,
			password_hash = ?, is_staff = ?, last_login = ?, updated_at = ?
		WHERE id = ?`,
		user.Email, user.Username, user.FirstName, user.LastName,
		user.PasswordHash, user.IsStaff, user.LastLogin, user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (a *Adapter) ListUsers(f core.UserFilter) ([]*core.User, error) {
	var conditions []string
	var args []any
	for field, value := range f.Fields {
		column, ok := userColumns[field]
		if !ok {
			continue
		}
		conditions = append(conditions, column+" = ?")
		args = append(args, value)
	}

	q := `SELECT ` + userSelectColumns + ` FROM users`
	if len(conditions) > 0 {
		q += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		if f.Limit <= 0 {
			q += " LIMIT -1"
		}
		q += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := a.db.Query(q, args...)
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
