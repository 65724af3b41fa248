package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/caarlos0/env/v11"
)

// Recognized setting names. Reading any other name through Settings.Get
// fails with a ConfigurationError.
const (
	SettingUserFields                  = "USER_FIELDS"
	SettingUsernameField               = "USERNAME_FIELD"
	SettingOnlyAdminRegistration       = "ONLY_ADMIN_REGISTRATION"
	SettingWelcomeEmailTemplate        = "WELCOME_EMAIL_TEMPLATE"
	SettingEmailFrom                   = "EMAIL_FROM"
	SettingCustomPasswordResetTemplate = "CUSTOM_PASSWORD_RESET_TEMPLATE"
	SettingPasswordResetURLTemplate    = "PASSWORD_RESET_URL_TEMPLATE"
)

// defaultSettings returns the documented defaults. A nil value means the
// option is recognized but not configured.
func defaultSettings() map[string]any {
	return map[string]any{
		SettingUserFields:                  []string{"email", "first_name", "last_name"},
		SettingUsernameField:               "email",
		SettingOnlyAdminRegistration:       false,
		SettingWelcomeEmailTemplate:        nil,
		SettingEmailFrom:                   nil,
		SettingCustomPasswordResetTemplate: nil,
		SettingPasswordResetURLTemplate:    nil,
	}
}

// importRegistry maps import-string names to registered objects. It is the
// process-level stand-in for dotted import paths: callers register the
// objects their configuration refers to before settings are read.
var importRegistry sync.Map // string -> any

// RegisterImport makes obj resolvable by import-string settings under name.
func RegisterImport(name string, obj any) {
	importRegistry.Store(name, obj)
}

var errImportNotRegistered = errors.New("name is not registered")

func importFromString(path, setting string) (any, error) {
	obj, ok := importRegistry.Load(path)
	if !ok {
		return nil, &ImportError{Path: path, Setting: setting, Cause: errImportNotRegistered}
	}
	return obj, nil
}

// settingsSnapshot is one immutable resolution of overrides onto defaults.
// Resolved import strings are cached per snapshot; the cache dies with the
// snapshot on reload, so a rebuild can never corrupt an in-flight reader.
type settingsSnapshot struct {
	overrides     map[string]any
	defaults      map[string]any
	importStrings map[string]bool

	mu       sync.Mutex
	resolved map[string]any
}

func (s *settingsSnapshot) get(name string) (any, error) {
	if _, known := s.defaults[name]; !known {
		return nil, &ConfigurationError{Setting: name}
	}

	val, ok := s.overrides[name]
	if !ok {
		val = s.defaults[name]
	}

	if !s.importStrings[name] || val == nil {
		return val, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.resolved[name]; ok {
		return cached, nil
	}

	path, ok := val.(string)
	if !ok {
		return nil, &ImportError{
			Path:    fmt.Sprintf("%v", val),
			Setting: name,
			Cause:   errors.New("import-string value must be a string"),
		}
	}
	obj, err := importFromString(path, name)
	if err != nil {
		return nil, err
	}
	s.resolved[name] = obj
	return obj, nil
}

// Settings resolves option values by overlaying a user-supplied partial
// mapping onto the documented defaults. The whole object is replaced
// atomically on Reload; readers that captured a value keep it.
type Settings struct {
	snapshot atomic.Pointer[settingsSnapshot]
}

// NewSettings builds a resolver from overrides. Names listed in
// importStrings are treated as import-string options: their values are
// resolved through the import registry lazily on first access.
func NewSettings(overrides map[string]any, importStrings ...string) *Settings {
	s := &Settings{}
	s.Reload(overrides, importStrings...)
	return s
}

// Reload swaps in a fresh snapshot built from overrides. Import-string
// caches are invalidated.
func (s *Settings) Reload(overrides map[string]any, importStrings ...string) {
	imports := make(map[string]bool, len(importStrings))
	for _, name := range importStrings {
		imports[name] = true
	}
	snap := &settingsSnapshot{
		overrides:     overrides,
		defaults:      defaultSettings(),
		importStrings: imports,
		resolved:      make(map[string]any),
	}
	s.snapshot.Store(snap)
}

// Get resolves a setting by name, user overrides first, then defaults.
func (s *Settings) Get(name string) (any, error) {
	return s.snapshot.Load().get(name)
}

// UserFields returns the ordered set of user field names exposed on the
// user type and accepted as filters.
func (s *Settings) UserFields() []string {
	v, _ := s.Get(SettingUserFields)
	fields, _ := v.([]string)
	return fields
}

// UsernameField returns the login-key field name.
func (s *Settings) UsernameField() string {
	v, _ := s.Get(SettingUsernameField)
	field, _ := v.(string)
	return field
}

// OnlyAdminRegistration reports whether registration is restricted to
// staff requesters.
func (s *Settings) OnlyAdminRegistration() bool {
	v, _ := s.Get(SettingOnlyAdminRegistration)
	flag, _ := v.(bool)
	return flag
}

func (s *Settings) optionalString(name string) (string, bool) {
	v, err := s.Get(name)
	if err != nil || v == nil {
		return "", false
	}
	str, ok := v.(string)
	return str, ok && str != ""
}

// WelcomeEmailTemplate returns the welcome-email template name, if set.
func (s *Settings) WelcomeEmailTemplate() (string, bool) {
	return s.optionalString(SettingWelcomeEmailTemplate)
}

// EmailFrom returns the sender address, if set.
func (s *Settings) EmailFrom() (string, bool) {
	return s.optionalString(SettingEmailFrom)
}

// CustomPasswordResetTemplate returns the reset-email template name, if set.
func (s *Settings) CustomPasswordResetTemplate() (string, bool) {
	return s.optionalString(SettingCustomPasswordResetTemplate)
}

// PasswordResetURLTemplate returns the reset-link template, if set. The
// template carries {uid} and {token} placeholders.
func (s *Settings) PasswordResetURLTemplate() (string, bool) {
	return s.optionalString(SettingPasswordResetURLTemplate)
}

// envSettings mirrors the recognized options as GRAPH_AUTH_* environment
// variables for deployments that configure through the environment.
type envSettings struct {
	UserFields                  []string `env:"GRAPH_AUTH_USER_FIELDS"`
	UsernameField               string   `env:"GRAPH_AUTH_USERNAME_FIELD"`
	OnlyAdminRegistration       *bool    `env:"GRAPH_AUTH_ONLY_ADMIN_REGISTRATION"`
	WelcomeEmailTemplate        string   `env:"GRAPH_AUTH_WELCOME_EMAIL_TEMPLATE"`
	EmailFrom                   string   `env:"GRAPH_AUTH_EMAIL_FROM"`
	CustomPasswordResetTemplate string   `env:"GRAPH_AUTH_CUSTOM_PASSWORD_RESET_TEMPLATE"`
	PasswordResetURLTemplate    string   `env:"GRAPH_AUTH_PASSWORD_RESET_URL_TEMPLATE"`
}

// OverridesFromEnv builds an override mapping from GRAPH_AUTH_* environment
// variables. Unset variables contribute no override.
func OverridesFromEnv() (map[string]any, error) {
	var parsed envSettings
	if err := env.Parse(&parsed); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	overrides := make(map[string]any)
	if len(parsed.UserFields) > 0 {
		overrides[SettingUserFields] = parsed.UserFields
	}
	if parsed.UsernameField != "" {
		overrides[SettingUsernameField] = parsed.UsernameField
	}
	if parsed.OnlyAdminRegistration != nil {
		overrides[SettingOnlyAdminRegistration] = *parsed.OnlyAdminRegistration
	}
	if parsed.WelcomeEmailTemplate != "" {
		overrides[SettingWelcomeEmailTemplate] = parsed.WelcomeEmailTemplate
	}
	if parsed.EmailFrom != "" {
		overrides[SettingEmailFrom] = parsed.EmailFrom
	}
	if parsed.CustomPasswordResetTemplate != "" {
		overrides[SettingCustomPasswordResetTemplate] = parsed.CustomPasswordResetTemplate
	}
	if parsed.PasswordResetURLTemplate != "" {
		overrides[SettingPasswordResetURLTemplate] = parsed.PasswordResetURLTemplate
	}
	return overrides, nil
}
