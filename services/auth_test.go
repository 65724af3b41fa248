package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/morgante/graph-auth/core"
	"github.com/morgante/graph-auth/pkg/crypto"
)

func newTestAuthService(storage *FakeStorage, mailer *FakeMailer, overrides map[string]any) *AuthService {
	settings := core.NewSettings(overrides)
	passwords := crypto.NewArgon2()
	sm := NewSessionManager(core.SessionConfig{MaxAge: 24 * time.Hour}, storage, nil)
	resetTokens := crypto.NewResetTokens("test-secret-test-secret-test-sec", 0)
	var m core.Mailer
	if mailer != nil {
		m = mailer
	}
	return NewAuthService(storage, settings, passwords, sm, resetTokens, m, "noreply@example.com")
}

func seedUser(t *testing.T, storage *FakeStorage, email, password string) *core.User {
	t.Helper()
	passwords := crypto.NewArgon2()
	hashed, err := passwords.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	user := &core.User{Email: email, PasswordHash: hashed}
	if err := storage.CreateUser(user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

// Requirement: Register creates a user, opens a session, and reports expected
// business failures as OK=false rather than errors.
func TestAuthService_Register(t *testing.T) {
	staff := &core.User{ID: "staff-1", Email: "admin@example.com", IsStaff: true}
	regular := &core.User{ID: "user-0", Email: "someone@example.com"}

	tests := []struct {
		name      string
		overrides map[string]any
		viewer    *core.User
		input     RegisterInput
		setup     func(*FakeStorage)
		wantErr   error
		wantOK    bool
		wantUser  bool
		wantToken bool
	}{
		{
			name:      "creates user and session for valid input",
			input:     RegisterInput{Email: "alice@example.com", Password: "SecurePass123!", FirstName: "Alice"},
			wantOK:    true,
			wantUser:  true,
			wantToken: true,
		},
		{
			name:    "returns error for empty email",
			input:   RegisterInput{Password: "SecurePass123!"},
			wantErr: core.ErrEmailRequired,
		},
		{
			name:      "generates a password when none is given",
			input:     RegisterInput{Email: "alice@example.com"},
			wantOK:    true,
			wantUser:  true,
			wantToken: true,
		},
		{
			name:  "returns ok=false for duplicate email",
			input: RegisterInput{Email: "alice@example.com", Password: "SecurePass123!"},
			setup: func(storage *FakeStorage) {
				seedUser(t, storage, "alice@example.com", "OtherPass123!")
			},
			wantOK: false,
		},
		{
			name:      "returns ok=false for anonymous requester under admin-only policy",
			overrides: map[string]any{core.SettingOnlyAdminRegistration: true},
			input:     RegisterInput{Email: "alice@example.com", Password: "SecurePass123!"},
			wantOK:    false,
		},
		{
			name:      "returns ok=false for non-staff requester under admin-only policy",
			overrides: map[string]any{core.SettingOnlyAdminRegistration: true},
			viewer:    regular,
			input:     RegisterInput{Email: "alice@example.com", Password: "SecurePass123!"},
			wantOK:    false,
		},
		{
			name:      "allows staff requester under admin-only policy",
			overrides: map[string]any{core.SettingOnlyAdminRegistration: true},
			viewer:    staff,
			input:     RegisterInput{Email: "alice@example.com", Password: "SecurePass123!"},
			wantOK:    true,
			wantUser:  true,
			wantToken: true,
		},
		{
			name:      "returns storage error for duplicate username login key",
			overrides: map[string]any{core.SettingUsernameField: "username"},
			input:     RegisterInput{Email: "alice@example.com", Password: "SecurePass123!", Login: "alice"},
			setup: func(storage *FakeStorage) {
				_ = storage.CreateUser(&core.User{Email: "other@example.com", Username: "alice"})
			},
			wantErr: core.ErrUserExists,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			if test.setup != nil {
				test.setup(storage)
			}
			service := newTestAuthService(storage, nil, test.overrides)

			// Act
			result, err := service.Register(test.viewer, test.input, "127.0.0.1", "test-agent")

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("Register() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			if result.OK != test.wantOK {
				t.Fatalf("Register() OK = %v, want %v", result.OK, test.wantOK)
			}
			if test.wantUser && result.User == nil {
				t.Error("Register() should return user")
			}
			if test.wantToken && result.SessionToken == "" {
				t.Error("Register() should return session token")
			}
			if test.wantUser && result.User != nil && !result.User.CurrentForRequest {
				t.Error("Register() should mark the user as the requester")
			}
			if !test.wantOK && result.User != nil {
				t.Error("Register() should not return user on ok=false")
			}
		})
	}
}

// Requirement: a registered user never has a plaintext password in storage.
func TestAuthService_Register_HashesPassword(t *testing.T) {
	// Arrange
	storage := NewFakeStorage()
	service := newTestAuthService(storage, nil, nil)

	// Act
	result, err := service.Register(nil, RegisterInput{
		Email:    "alice@example.com",
		Password: "SecurePass123!",
	}, "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Assert
	stored, err := storage.GetUserByID(result.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if stored.PasswordHash == "SecurePass123!" {
		t.Error("password stored in plaintext")
	}
	if !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Errorf("PasswordHash = %q, want argon2id encoding", stored.PasswordHash)
	}
}

// Requirement: the welcome email is sent only when both the template and the
// sender address are configured, and carries the plaintext password once.
func TestAuthService_Register_WelcomeEmail(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		wantSent  int
	}{
		{
			name: "sends welcome email when template and sender are set",
			overrides: map[string]any{
				core.SettingWelcomeEmailTemplate: "welcome",
				core.SettingEmailFrom:            "noreply@example.com",
			},
			wantSent: 1,
		},
		{
			name: "skips welcome email without sender",
			overrides: map[string]any{
				core.SettingWelcomeEmailTemplate: "welcome",
			},
			wantSent: 0,
		},
		{
			name:     "skips welcome email without template",
			wantSent: 0,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			mailer := NewFakeMailer()
			service := newTestAuthService(storage, mailer, test.overrides)

			// Act
			_, err := service.Register(nil, RegisterInput{
				Email:    "alice@example.com",
				Password: "SecurePass123!",
			}, "127.0.0.1", "test-agent")
			if err != nil {
				t.Fatalf("Register() error = %v", err)
			}

			// Assert
			sent := mailer.Sent()
			if len(sent) != test.wantSent {
				t.Fatalf("sent %d emails, want %d", len(sent), test.wantSent)
			}
			if test.wantSent == 1 {
				msg := sent[0]
				if msg.TemplateName != "welcome" {
					t.Errorf("TemplateName = %q, want %q", msg.TemplateName, "welcome")
				}
				if msg.Context["password"] != "SecurePass123!" {
					t.Error("welcome email context should carry the plaintext password")
				}
			}
		})
	}
}

// Requirement: Login authenticates against the configured login-key field and
// reports bad credentials as OK=false without error.
func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		login     string
		password  string
		setup     func(*FakeStorage)
		wantOK    bool
	}{
		{
			name:     "logs in with valid credentials",
			login:    "alice@example.com",
			password: "SecurePass123!",
			setup: func(storage *FakeStorage) {
				seedUser(t, storage, "alice@example.com", "SecurePass123!")
			},
			wantOK: true,
		},
		{
			name:     "returns ok=false for unknown user",
			login:    "nobody@example.com",
			password: "SecurePass123!",
			wantOK:   false,
		},
		{
			name:     "returns ok=false for wrong password",
			login:    "alice@example.com",
			password: "WrongPass123!",
			setup: func(storage *FakeStorage) {
				seedUser(t, storage, "alice@example.com", "SecurePass123!")
			},
			wantOK: false,
		},
		{
			name:      "logs in by username when configured as login key",
			overrides: map[string]any{core.SettingUsernameField: "username"},
			login:     "alice",
			password:  "SecurePass123!",
			setup: func(storage *FakeStorage) {
				user := seedUser(t, storage, "alice@example.com", "SecurePass123!")
				user.Username = "alice"
				_ = storage.UpdateUser(user)
			},
			wantOK: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			if test.setup != nil {
				test.setup(storage)
			}
			service := newTestAuthService(storage, nil, test.overrides)

			// Act
			result, err := service.Login(LoginInput{
				Login:    test.login,
				Password: test.password,
			}, "127.0.0.1", "test-agent")

			// Assert
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if result.OK != test.wantOK {
				t.Fatalf("Login() OK = %v, want %v", result.OK, test.wantOK)
			}
			if test.wantOK {
				if result.User == nil {
					t.Fatal("Login() should return user")
				}
				if result.SessionToken == "" {
					t.Error("Login() should return session token")
				}
				if result.User.LastLogin == nil {
					t.Error("Login() should record last login")
				}
				if !result.User.CurrentForRequest {
					t.Error("Login() should mark the user as the requester")
				}
			} else if result.User != nil {
				t.Error("Login() should not return user on ok=false")
			}
		})
	}
}

// Requirement: RequestPasswordReset uses the custom flow only when template,
// sender, and URL template are all configured, and otherwise validates the
// address and falls back to the built-in template.
func TestAuthService_RequestPasswordReset(t *testing.T) {
	customOverrides := map[string]any{
		core.SettingCustomPasswordResetTemplate: "graph_auth/password_reset",
		core.SettingEmailFrom:                   "support@example.com",
		core.SettingPasswordResetURLTemplate:    "https://app.example.com/reset/{uid}/{token}",
	}

	tests := []struct {
		name         string
		overrides    map[string]any
		email        string
		seed         bool
		wantErr      error
		wantSent     int
		wantTemplate string
		wantLinkHost string
	}{
		{
			name:         "custom flow sends configured template",
			overrides:    customOverrides,
			email:        "alice@example.com",
			seed:         true,
			wantSent:     1,
			wantTemplate: "graph_auth/password_reset",
			wantLinkHost: "https://app.example.com/reset/",
		},
		{
			name:      "custom flow accepts syntactically invalid address",
			overrides: customOverrides,
			email:     "not-an-address",
			wantSent:  0,
		},
		{
			name:         "built-in flow sends built-in template",
			email:        "alice@example.com",
			seed:         true,
			wantSent:     1,
			wantTemplate: "graph_auth/password_reset",
			wantLinkHost: "/password-reset/",
		},
		{
			name:    "built-in flow rejects invalid address",
			email:   "not-an-address",
			wantErr: core.ErrInvalidEmail,
		},
		{
			name:     "unknown address sends nothing and reports success",
			email:    "nobody@example.com",
			wantSent: 0,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			mailer := NewFakeMailer()
			if test.seed {
				seedUser(t, storage, test.email, "SecurePass123!")
			}
			service := newTestAuthService(storage, mailer, test.overrides)

			// Act
			err := service.RequestPasswordReset(test.email)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("RequestPasswordReset() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RequestPasswordReset() error = %v", err)
			}
			sent := mailer.Sent()
			if len(sent) != test.wantSent {
				t.Fatalf("sent %d emails, want %d", len(sent), test.wantSent)
			}
			if test.wantSent == 1 {
				msg := sent[0]
				if msg.TemplateName != test.wantTemplate {
					t.Errorf("TemplateName = %q, want %q", msg.TemplateName, test.wantTemplate)
				}
				link, _ := msg.Context["link"].(string)
				if !strings.HasPrefix(link, test.wantLinkHost) {
					t.Errorf("link = %q, want prefix %q", link, test.wantLinkHost)
				}
				if strings.Contains(link, "{uid}") || strings.Contains(link, "{token}") {
					t.Errorf("link %q has unexpanded placeholders", link)
				}
			}
		})
	}
}

// Requirement: ResetPassword accepts its own issued identifiers and tokens
// exactly once and rejects everything else with an invalid-id or
// invalid-token error.
func TestAuthService_ResetPassword(t *testing.T) {
	// Arrange
	storage := NewFakeStorage()
	service := newTestAuthService(storage, nil, nil)
	user := seedUser(t, storage, "alice@example.com", "OldPass123!")

	uid := core.EncodeUID(user.ID)
	token, err := service.resetTokens.Make(user)
	if err != nil {
		t.Fatalf("Make() error = %v", err)
	}

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := service.ResetPassword(uid, token, "")
		if !errors.Is(err, core.ErrPasswordRequired) {
			t.Fatalf("ResetPassword() error = %v, want %v", err, core.ErrPasswordRequired)
		}
	})

	t.Run("rejects malformed identifier", func(t *testing.T) {
		_, err := service.ResetPassword("%%%", token, "NewPass123!")
		if !errors.Is(err, core.ErrInvalidResetID) {
			t.Fatalf("ResetPassword() error = %v, want %v", err, core.ErrInvalidResetID)
		}
	})

	t.Run("rejects identifier of unknown user", func(t *testing.T) {
		_, err := service.ResetPassword(core.EncodeUID("no-such-user"), token, "NewPass123!")
		if !errors.Is(err, core.ErrInvalidResetID) {
			t.Fatalf("ResetPassword() error = %v, want %v", err, core.ErrInvalidResetID)
		}
	})

	t.Run("rejects tampered token", func(t *testing.T) {
		_, err := service.ResetPassword(uid, token+"x", "NewPass123!")
		if !errors.Is(err, core.ErrInvalidResetToken) {
			t.Fatalf("ResetPassword() error = %v, want %v", err, core.ErrInvalidResetToken)
		}
	})

	t.Run("sets the new password for a valid token", func(t *testing.T) {
		updated, err := service.ResetPassword(uid, token, "NewPass123!")
		if err != nil {
			t.Fatalf("ResetPassword() error = %v", err)
		}
		valid, err := service.passwords.Verify("NewPass123!", updated.PasswordHash)
		if err != nil || !valid {
			t.Errorf("new password does not verify: valid=%v err=%v", valid, err)
		}
	})

	t.Run("rejects the token after it was used", func(t *testing.T) {
		_, err := service.ResetPassword(uid, token, "AnotherPass123!")
		if !errors.Is(err, core.ErrInvalidResetToken) {
			t.Fatalf("ResetPassword() error = %v, want %v", err, core.ErrInvalidResetToken)
		}
	})
}

// Requirement: UpdateUser requires an authenticated requester, validates the
// password change, restricts writes to configured fields, and returns the
// record as persisted.
func TestAuthService_UpdateUser(t *testing.T) {
	newPass := "NewPass123!"
	currentPass := "SecurePass123!"
	wrongPass := "WrongPass123!"

	tests := []struct {
		name    string
		input   UpdateUserInput
		noAuth  bool
		wantErr error
	}{
		{
			name:    "returns error without authentication",
			noAuth:  true,
			input:   UpdateUserInput{Fields: map[string]string{"first_name": "Alice"}},
			wantErr: core.ErrAuthenticationRequired,
		},
		{
			name:  "updates configured fields",
			input: UpdateUserInput{Fields: map[string]string{"first_name": "Alice", "last_name": "Smith"}},
		},
		{
			name:    "rejects unconfigured field",
			input:   UpdateUserInput{Fields: map[string]string{"is_staff": "true"}},
			wantErr: core.ErrUnknownUserField,
		},
		{
			name:    "requires current password for a password change",
			input:   UpdateUserInput{Password: &newPass},
			wantErr: core.ErrCurrentPasswordRequired,
		},
		{
			name:    "rejects wrong current password",
			input:   UpdateUserInput{Password: &newPass, CurrentPassword: &wrongPass},
			wantErr: core.ErrWrongPassword,
		},
		{
			name:  "changes password with correct current password",
			input: UpdateUserInput{Password: &newPass, CurrentPassword: &currentPass},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			service := newTestAuthService(storage, nil, nil)
			var viewer *core.User
			if !test.noAuth {
				viewer = seedUser(t, storage, "alice@example.com", currentPass)
			}

			// Act
			updated, err := service.UpdateUser(viewer, test.input)

			// Assert
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("UpdateUser() error = %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateUser() error = %v", err)
			}
			if !updated.CurrentForRequest {
				t.Error("UpdateUser() should mark the user as the requester")
			}
			for name, want := range test.input.Fields {
				accessor, ok := core.FieldAccessorFor(name)
				if !ok {
					t.Fatalf("no accessor for %q", name)
				}
				if got := accessor.Get(updated); got != want {
					t.Errorf("field %q = %q, want %q", name, got, want)
				}
			}
			if test.input.Password != nil {
				stored, _ := storage.GetUserByID(viewer.ID)
				valid, _ := service.passwords.Verify(newPass, stored.PasswordHash)
				if !valid {
					t.Error("new password does not verify against stored hash")
				}
			}
		})
	}
}
