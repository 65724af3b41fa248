package core

import "time"

// User represents a user record in the system.
//
// PasswordHash is write-only from the caller's point of view: it is set by
// the password handler and never serialized. CurrentForRequest is transient
// request state - it marks the record that was just authenticated or created
// within the current request and is never persisted. It gates whether the
// token field may be resolved for this record.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	IsStaff      bool       `json:"isStaff"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	CurrentForRequest bool `json:"-"` // Transient, never persisted
}

// Session represents an active login session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"-"` // Never expose in JSON (security!)
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionData combines user and session info.
// The model returned to viewers of the current request.
type SessionData struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

// UserFilter narrows and pages a user listing. Fields maps configured field
// names to exact-match values. Offset/Limit implement cursor pagination at
// the storage level; Limit <= 0 means no limit.
type UserFilter struct {
	Fields map[string]string
	Offset int
	Limit  int
}
