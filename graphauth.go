// Package graphauth exposes user registration, login, password reset, and
// profile update as GraphQL mutations over a pluggable user store.
package graphauth

import (
	"fmt"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/morgante/graph-auth/core"
	"github.com/morgante/graph-auth/pkg/crypto"
	"github.com/morgante/graph-auth/pkg/jwt"
	"github.com/morgante/graph-auth/schema"
	"github.com/morgante/graph-auth/services"
)

// interfaces
type (
	AuthStorage = core.AuthStorage
	Cache       = core.Cache
	Mailer      = core.Mailer

	PasswordHandler = crypto.PasswordHandler
)

// HTTPAdapter mounts the GraphQL endpoint on a web framework.
type HTTPAdapter interface {
	RegisterRoutes(g *GraphAuth) error
}

// structs
type (
	Settings      = core.Settings
	SessionConfig = core.SessionConfig
	CacheConfig   = core.CacheConfig
)

type (
	User         = core.User
	Session      = core.Session
	SessionData  = core.SessionData
	EmailMessage = core.EmailMessage
	CacheStats   = core.CacheStats
)

const (
	defaultBasePath  = "/graphql"
	defaultSecretLen = 32
)

// Constructors & helpers (convenience re-exports)
var (
	NewInMemoryCache     = core.NewInMemoryCache
	NewArgon2            = crypto.NewArgon2
	NewSettings          = core.NewSettings
	OverridesFromEnv     = core.OverridesFromEnv
	RegisterImport       = core.RegisterImport
	DefaultSessionConfig = core.DefaultSessionConfig
)

var (
	ErrUserExists   = core.ErrUserExists
	ErrUserNotFound = core.ErrUserNotFound
	ErrBadLogin     = core.ErrBadLogin
)

var (
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrInvalidSession    = core.ErrInvalidSession
	ErrSessionNotFound   = core.ErrSessionNotFound
	ErrSessionExpired    = core.ErrSessionExpired
	ErrCacheNotFound     = core.ErrCacheNotFound
)

var (
	ErrAuthenticationRequired  = core.ErrAuthenticationRequired
	ErrCurrentPasswordRequired = core.ErrCurrentPasswordRequired
	ErrWrongPassword           = core.ErrWrongPassword
	ErrInvalidResetToken       = core.ErrInvalidResetToken
	ErrInvalidResetID          = core.ErrInvalidResetID
	ErrInvalidEmail            = core.ErrInvalidEmail
	ErrEmailRequired           = core.ErrEmailRequired
	ErrPasswordRequired        = core.ErrPasswordRequired
	ErrUnknownUserField        = core.ErrUnknownUserField
)

var (
	ErrStorageRequired     = core.ErrStorageRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrMailerRequired      = core.ErrMailerRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
)

// Config assembles the library. Secret, Database, and HTTP are required;
// everything else has a sensible default.
type Config struct {
	Secret string

	Database core.AuthStorage

	HTTP HTTPAdapter

	// Optional config
	Mailer            core.Mailer
	SettingsOverrides map[string]any
	ImportStrings     []string
	DefaultFromEmail  string
	CacheAdapter      core.Cache
	DisableCache      bool
	SessionConfig     *core.SessionConfig
	PasswordHasher    crypto.PasswordHandler
	BasePath          string
	TokenTTL          time.Duration
	ResetTokenMaxAge  time.Duration
}

// GraphAuth is the assembled library instance.
type GraphAuth struct {
	Settings       *core.Settings
	SessionManager *services.SessionManager
	Auth           *services.AuthService
	Users          *services.UserService
	Schema         graphql.Schema
	BasePath       string
}

func New(config Config) (*GraphAuth, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Database == nil {
		return nil, ErrStorageRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	settings := core.NewSettings(config.SettingsOverrides, config.ImportStrings...)

	if config.Mailer == nil {
		_, welcome := settings.WelcomeEmailTemplate()
		_, reset := settings.CustomPasswordResetTemplate()
		if welcome || reset {
			return nil, ErrMailerRequired
		}
	}

	cacheAdapter := config.CacheAdapter
	if cacheAdapter == nil && !config.DisableCache {
		cacheAdapter = core.NewInMemoryCache(core.CacheConfig{
			TTL:     5 * time.Minute,
			MaxSize: 500,
		})
	}

	sessionConfig := config.SessionConfig
	if sessionConfig == nil {
		defaults := core.DefaultSessionConfig()
		sessionConfig = &defaults
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	sessionManager := services.NewSessionManager(
		*sessionConfig,
		config.Database,
		cacheAdapter,
	)

	resetTokens := crypto.NewResetTokens(config.Secret, config.ResetTokenMaxAge)
	tokens := jwt.NewIssuer(config.Secret, config.TokenTTL)

	auth := services.NewAuthService(
		config.Database,
		settings,
		passwordHasher,
		sessionManager,
		resetTokens,
		config.Mailer,
		config.DefaultFromEmail,
	)
	users := services.NewUserService(config.Database, settings)

	executable, err := schema.New(schema.Config{
		Settings: settings,
		Auth:     auth,
		Users:    users,
		Tokens:   tokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}

	g := &GraphAuth{
		Settings:       settings,
		SessionManager: sessionManager,
		Auth:           auth,
		Users:          users,
		Schema:         executable,
		BasePath:       basePath,
	}

	if err := config.HTTP.RegisterRoutes(g); err != nil {
		return nil, err
	}

	return g, nil
}
