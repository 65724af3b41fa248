package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/morgante/graph-auth/core"
)

const sessionSelectColumns = `id, user_id, token_hash, ip_address, user_agent, expires_at, created_at, updated_at`

func scanSession(row pgx.Row) (*core.Session, error) {
	s := &core.Session{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.IPAddress, &s.UserAgent,
		&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, core.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (a *Adapter) CreateSession(s *core.Session) error {
	ctx := context.Background()

	query := `INSERT INTO public.sessions (id, user_id, token_hash, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`

	return a.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.TokenHash, s.IPAddress, s.UserAgent, s.ExpiresAt,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (a *Adapter) GetSessionByHash(tokenHash string) (*core.Session, error) {
	ctx := context.Background()
	q := `SELECT ` + sessionSelectColumns + ` FROM public.sessions WHERE token_hash = $1`
	return scanSession(a.pool.QueryRow(ctx, q, tokenHash))
}

func (a *Adapter) GetSessionByID(id string) (*core.Session, error) {
	ctx := context.Background()
	q := `SELECT ` + sessionSelectColumns + ` FROM public.sessions WHERE id = $1`
	return scanSession(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) DeleteSessionByID(id string) error {
	ctx := context.Background()
	_, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE id = $1`, id)
	return err
}

func (a *Adapter) DeleteSessionByHash(tokenHash string) error {
	ctx := context.Background()
	_, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (a *Adapter) DeleteUserSessions(userID string) (int, error) {
	ctx := context.Background()
	tag, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (a *Adapter) DeleteExpiredSessions() (int, error) {
	ctx := context.Background()
	tag, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
