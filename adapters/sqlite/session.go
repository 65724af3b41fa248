package sqlite

import (
	"database/sql"
	"time"

	"github.com/morgante/graph-auth/core"
)

const sessionSelectColumns = `id, user_id, token_hash, ip_address, user_agent, expires_at, created_at, updated_at`

func scanSession(row rowScanner) (*core.Session, error) {
	s := &core.Session{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.IPAddress, &s.UserAgent,
		&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (a *Adapter) CreateSession(s *core.Session) error {
	_, err := a.db.Exec(`INSERT INTO sessions (id, user_id, token_hash, ip_address, user_agent, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenHash, s.IPAddress, s.UserAgent, s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (a *Adapter) GetSessionByHash(tokenHash string) (*core.Session, error) {
	row := a.db.QueryRow(`SELECT `+sessionSelectColumns+` FROM sessions WHERE token_hash = ?`, tokenHash)
	return scanSession(row)
}

func (a *Adapter) GetSessionByID(id string) (*core.Session, error) {
	row := a.db.QueryRow(`SELECT `+sessionSelectColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (a *Adapter) DeleteSessionByID(id string) error {
	_, err := a.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (a *Adapter) DeleteSessionByHash(tokenHash string) error {
	_, err := a.db.Exec(`DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return err
}

func (a *Adapter) DeleteUserSessions(userID string) (int, error) {
	result, err := a.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func (a *Adapter) DeleteExpiredSessions() (int, error) {
	result, err := a.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}
