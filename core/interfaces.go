package core

import "time"

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// UserStorage defines user-related database operations.
//
// CreateUser must return ErrUserExists when a uniqueness constraint on the
// login-key column is violated. Lookup methods return ErrUserNotFound when
// no row matches.
type UserStorage interface {
	CreateUser(u *User) error
	GetUserByID(id string) (*User, error)
	// GetUserByField looks a user up by one of the accessor-table fields
	// (the configured login key in practice).
	GetUserByField(field, value string) (*User, error)
	// FindUsersByEmail returns every user registered with the address.
	// Email is not required to be unique when the login key is username.
	FindUsersByEmail(email string) ([]*User, error)
	UpdateUser(u *User) error
	ListUsers(f UserFilter) ([]*User, error)
}

// SessionStorage defines session-related database operations
type SessionStorage interface {
	CreateSession(session *Session) error
	GetSessionByHash(tokenHash string) (*Session, error)
	GetSessionByID(id string) (*Session, error)
	DeleteSessionByID(id string) error
	DeleteSessionByHash(tokenHash string) error
	DeleteUserSessions(userID string) (int, error)
	DeleteExpiredSessions() (int, error)
}

type AuthStorage interface {
	UserStorage
	SessionStorage
}

// ============================================
// CACHE PORT
// ============================================

// Cache defines session caching operations
type Cache interface {
	Get(tokenHash string) (*Session, error)
	Set(tokenHash string, session *Session) error
	Delete(tokenHash string) error
	Clear() error
}

// CacheWithStats extends Cache with statistics tracking
type CacheWithStats interface {
	Cache
	Stats() CacheStats
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// CacheStats are simple counters for cache behavior.
// These are intended for diagnostics and monitoring.
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}

// ============================================
// CRYPTO PORTS
// ============================================

// TokenIssuer signs identity claims into an auth token (the token field on
// the user type).
type TokenIssuer interface {
	Issue(u *User) (string, error)
}

// ResetTokenGenerator issues and checks one-time password-reset tokens bound
// to a fingerprint of the user's credential state.
type ResetTokenGenerator interface {
	Make(u *User) (string, error)
	Check(u *User, token string) bool
}

// ============================================
// MAIL PORT
// ============================================

// EmailMessage is a templated email: the template is resolved by name from
// the mail template registry and rendered with Context.
type EmailMessage struct {
	TemplateName string
	From         string
	To           []string
	Context      map[string]any
}

// Mailer delivers templated email.
type Mailer interface {
	Send(msg EmailMessage) error
}

// ============================================
// SESSION CONFIG
// ============================================

type SessionConfig struct {
	MaxAge time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxAge: 24 * time.Hour,
	}
}

type CreateSessionResult struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"`
}
