package core

import (
	"errors"
	"fmt"
)

// User errors
var (
	ErrUserExists   = errors.New("user already exists")       // 409 Conflict
	ErrUserNotFound = errors.New("user not found")            // 404 Not Found
	ErrBadLogin     = errors.New("invalid login or password") // 401 Unauthorized
)

// Session errors
var (
	ErrMissingAuthHeader = errors.New("missing authorization header") // 401
	ErrInvalidSession    = errors.New("invalid session token")        // 401
	ErrSessionNotFound   = errors.New("session not found")            // 401
	ErrSessionExpired    = errors.New("session expired")              // 401
	ErrCacheNotFound     = errors.New("session not found in cache")
)

// Mutation errors (client input)
var (
	ErrAuthenticationRequired  = errors.New("you must be logged in to update your profile")                 // 401
	ErrCurrentPasswordRequired = errors.New("please provide your current password to change your password") // 400
	ErrWrongPassword           = errors.New("current password is incorrect")                                // 401
	ErrInvalidResetToken       = errors.New("the token is not valid")                                       // 400
	ErrInvalidResetID          = errors.New("id has an invalid value")                                      // 400
	ErrInvalidEmail            = errors.New("the email is not valid")                                       // 400
	ErrEmailRequired           = errors.New("email is required")                                            // 400
	ErrPasswordRequired        = errors.New("password is required")                                         // 400
	ErrUnknownUserField        = errors.New("field is not in the configured user field set")                // 400
)

// Config errors (server-side configuration)
var (
	ErrStorageRequired     = errors.New("storage adapter is required") // 500
	ErrHTTPAdapterRequired = errors.New("http adapter is required")    // 500
	ErrMailerRequired      = errors.New("mailer is required when email templates are configured")
	ErrSecretRequired      = errors.New("secret is required")  // 500
	ErrSecretTooShort      = errors.New("secret too short")    // 500
)

// ConfigurationError reports a read of a setting outside the recognized set.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid graph auth setting: %q", e.Setting)
}

// ImportError reports an import-string setting whose value could not be
// resolved against the registry.
type ImportError struct {
	Path    string
	Setting string
	Cause   error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("could not import %q for graph auth setting %q: %v", e.Path, e.Setting, e.Cause)
}

func (e *ImportError) Unwrap() error { return e.Cause }
