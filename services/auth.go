package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/morgante/graph-auth/core"
	graphmail "github.com/morgante/graph-auth/mail"
	"github.com/morgante/graph-auth/pkg/crypto"
)

// defaultResetURLTemplate is the relative link used by the built-in reset
// flow when no PASSWORD_RESET_URL_TEMPLATE is configured.
const defaultResetURLTemplate = "/password-reset/{uid}/{token}"

// AuthService implements the mutation contracts: register, login, password
// reset request/confirm, and profile update. Each method is one synchronous
// transaction against the user store; expected business failures come back
// as OK=false results, everything else as an error.
type AuthService struct {
	db          core.AuthStorage
	settings    *core.Settings
	passwords   crypto.PasswordHandler
	sessions    *SessionManager
	resetTokens core.ResetTokenGenerator
	mailer      core.Mailer
	defaultFrom string
}

func NewAuthService(
	db core.AuthStorage,
	settings *core.Settings,
	passwords crypto.PasswordHandler,
	sessions *SessionManager,
	resetTokens core.ResetTokenGenerator,
	mailer core.Mailer,
	defaultFrom string,
) *AuthService {
	return &AuthService{
		db:          db,
		settings:    settings,
		passwords:   passwords,
		sessions:    sessions,
		resetTokens: resetTokens,
		mailer:      mailer,
		defaultFrom: defaultFrom,
	}
}

// RegisterInput contains the data needed to register a new user. Login is
// the value of the dynamically named login-key argument; it is ignored when
// the login key is email.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Login     string
}

// RegisterResult carries the mutation payload plus the session token the
// transport hands back to the client.
type RegisterResult struct {
	OK           bool       `json:"ok"`
	User         *core.User `json:"user"`
	SessionToken string     `json:"-"`
}

// Register creates a new user record. Blocked registration (admin-only
// policy) and a duplicate email both return OK=false without error; a
// duplicate login key surfaces the storage uniqueness error.
func (s *AuthService) Register(viewer *core.User, input RegisterInput, ip, userAgent string) (*RegisterResult, error) {
	if s.settings.OnlyAdminRegistration() && (viewer == nil || !viewer.IsStaff) {
		return &RegisterResult{OK: false}, nil
	}

	if input.Email == "" {
		return nil, core.ErrEmailRequired
	}

	password := input.Password
	if password == "" {
		// Admin-driven registration may omit the password; the account gets
		// a random one, delivered once via the welcome email.
		generated, err := crypto.GeneratePassword(0)
		if err != nil {
			return nil, fmt.Errorf("failed to generate password: %w", err)
		}
		password = generated
	}

	existing, err := s.db.FindUsersByEmail(input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if len(existing) > 0 {
		return &RegisterResult{OK: false}, nil
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := crypto.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ID: %w", err)
	}

	user := &core.User{
		ID:           id,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hashed,
	}
	if s.settings.UsernameField() == "username" {
		user.Username = input.Login
	}

	if err := s.db.CreateUser(user); err != nil {
		return nil, err
	}
	user.CurrentForRequest = true

	session, err := s.sessions.Create(user.ID, ip, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.sendWelcomeEmail(user, password); err != nil {
		return nil, err
	}

	return &RegisterResult{OK: true, User: user, SessionToken: session.Token}, nil
}

// sendWelcomeEmail delivers the welcome template when both the template and
// the sender address are configured. The plaintext password exists only in
// the template context of this one message; it must never reach a log line
// or the store.
func (s *AuthService) sendWelcomeEmail(user *core.User, password string) error {
	template, hasTemplate := s.settings.WelcomeEmailTemplate()
	from, hasFrom := s.settings.EmailFrom()
	if !hasTemplate || !hasFrom || s.mailer == nil {
		return nil
	}

	msg := core.EmailMessage{
		TemplateName: template,
		From:         from,
		To:           []string{user.Email},
		Context: map[string]any{
			"email":      user.Email,
			"username":   user.Username,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"password":   password,
		},
	}
	if err := s.mailer.Send(msg); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

// LoginInput contains the credentials for authentication. Login is the
// value of the dynamically named login-key argument.
type LoginInput struct {
	Login    string
	Password string
}

type LoginResult struct {
	OK           bool       `json:"ok"`
	User         *core.User `json:"user"`
	SessionToken string     `json:"-"`
}

// Login verifies credentials against the configured login-key field. A
// failed login returns OK=false with no user and never an error, so it is
// indistinguishable from other expected failures at the transport level.
func (s *AuthService) Login(input LoginInput, ip, userAgent string) (*LoginResult, error) {
	user, err := s.db.GetUserByField(s.settings.UsernameField(), input.Login)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return &LoginResult{OK: false}, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	valid, err := s.passwords.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return &LoginResult{OK: false}, nil
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.UpdateUser(user); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.CurrentForRequest = true

	session, err := s.sessions.Create(user.ID, ip, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &LoginResult{OK: true, User: user, SessionToken: session.Token}, nil
}

// RequestPasswordReset sends a reset email to every account registered with
// the address. When a custom template, sender, and URL template are all
// configured the custom flow runs; otherwise the built-in flow validates the
// address syntactically and uses the built-in template. The return value
// never reveals whether the address exists.
func (s *AuthService) RequestPasswordReset(email string) error {
	customTemplate, hasCustom := s.settings.CustomPasswordResetTemplate()
	from, hasFrom := s.settings.EmailFrom()
	urlTemplate, hasURL := s.settings.PasswordResetURLTemplate()

	if hasCustom && hasFrom && hasURL {
		return s.sendCustomResetEmails(email, customTemplate, from, urlTemplate)
	}

	// Built-in flow: form-level validation of the address, then the
	// built-in template. Note this path can leak address validity through
	// the validation error.
	if _, err := mail.ParseAddress(email); err != nil {
		return core.ErrInvalidEmail
	}

	if !hasFrom {
		from = s.defaultFrom
	}
	if !hasURL {
		urlTemplate = defaultResetURLTemplate
	}
	return s.sendCustomResetEmails(email, graphmail.DefaultResetTemplate, from, urlTemplate)
}

func (s *AuthService) sendCustomResetEmails(email, template, from, urlTemplate string) error {
	users, err := s.db.FindUsersByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to find users: %w", err)
	}

	for _, user := range users {
		token, err := s.resetTokens.Make(user)
		if err != nil {
			return fmt.Errorf("failed to make reset token: %w", err)
		}
		uid := core.EncodeUID(user.ID)
		link := strings.NewReplacer("{uid}", uid, "{token}", token).Replace(urlTemplate)

		msg := core.EmailMessage{
			TemplateName: template,
			From:         from,
			To:           []string{user.Email},
			Context: map[string]any{
				"email":      user.Email,
				"first_name": user.FirstName,
				"last_name":  user.LastName,
				"link":       link,
			},
		}
		if s.mailer == nil {
			continue
		}
		if err := s.mailer.Send(msg); err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
	}
	return nil
}

// ResetPassword confirms a reset token and sets the new password. Both a
// malformed identifier and a stale or foreign token fail with an
// invalid-token error; the token stops verifying once the password changes
// because it is bound to the credential fingerprint.
func (s *AuthService) ResetPassword(id, token, password string) (*core.User, error) {
	if password == "" {
		return nil, core.ErrPasswordRequired
	}

	pk, err := core.DecodeUID(id)
	if err != nil {
		return nil, core.ErrInvalidResetID
	}

	user, err := s.db.GetUserByID(pk)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidResetID
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.resetTokens.Check(user, token) {
		return nil, core.ErrInvalidResetToken
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hashed

	if err := s.db.UpdateUser(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// UpdateUserInput is the subset of fields to overwrite on the viewer's own
// record. Fields maps configured field names to new values; Password and
// CurrentPassword are nil when no password change is requested.
type UpdateUserInput struct {
	Fields          map[string]string
	Password        *string
	CurrentPassword *string
}

// UpdateUser applies field overwrites and an optional password change to the
// viewer's record, then re-reads it from storage so the result reflects what
// was actually persisted.
func (s *AuthService) UpdateUser(viewer *core.User, input UpdateUserInput) (*core.User, error) {
	if viewer == nil {
		return nil, core.ErrAuthenticationRequired
	}

	if input.Password != nil {
		if input.CurrentPassword == nil {
			return nil, core.ErrCurrentPasswordRequired
		}
		valid, err := s.passwords.Verify(*input.CurrentPassword, viewer.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("failed to verify password: %w", err)
		}
		if !valid {
			return nil, core.ErrWrongPassword
		}
		hashed, err := s.passwords.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		viewer.PasswordHash = hashed
	}

	allowed := make(map[string]bool)
	for _, name := range s.settings.UserFields() {
		allowed[name] = true
	}
	for name, value := range input.Fields {
		if !allowed[name] {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownUserField, name)
		}
		accessor, ok := core.FieldAccessorFor(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownUserField, name)
		}
		accessor.Set(viewer, value)
	}

	if err := s.db.UpdateUser(viewer); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	// Re-read so the caller sees what storage holds, not what is in memory.
	refreshed, err := s.db.GetUserByID(viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	refreshed.CurrentForRequest = true
	return refreshed, nil
}
