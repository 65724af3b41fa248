package services

import (
	"errors"
	"fmt"

	"github.com/morgante/graph-auth/core"
)

// UserService implements the query-side contracts: fetch by identifier,
// filtered listing, and viewer lookup. Access-control failures resolve to
// nothing rather than an error so a denied lookup is indistinguishable from
// a missing record.
type UserService struct {
	db       core.UserStorage
	settings *core.Settings
}

func NewUserService(db core.UserStorage, settings *core.Settings) *UserService {
	return &UserService{db: db, settings: settings}
}

// GetUser fetches a user by primary key on behalf of viewer. The record is
// returned only when the viewer is authenticated and is either the subject
// or staff; every other case yields nil without error.
func (s *UserService) GetUser(viewer *core.User, id string) (*core.User, error) {
	if viewer == nil {
		return nil, nil
	}

	user, err := s.db.GetUserByID(id)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.ID == viewer.ID || viewer.IsStaff {
		return user, nil
	}
	return nil, nil
}

// Me resolves the requesting identity, or nothing when unauthenticated.
func (s *UserService) Me(viewer *core.User) *core.User {
	return viewer
}

// ListUsers returns a filtered page of users. Filter fields outside the
// configured field set are rejected.
func (s *UserService) ListUsers(f core.UserFilter) ([]*core.User, error) {
	if len(f.Fields) > 0 {
		allowed := make(map[string]bool)
		for _, name := range s.settings.UserFields() {
			allowed[name] = true
		}
		for name := range f.Fields {
			if !allowed[name] {
				return nil, fmt.Errorf("%w: %q", core.ErrUnknownUserField, name)
			}
		}
	}

	users, err := s.db.ListUsers(f)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ResolveViewer loads the user behind a verified session.
func (s *UserService) ResolveViewer(session *core.Session) (*core.User, error) {
	if session == nil {
		return nil, nil
	}
	user, err := s.db.GetUserByID(session.UserID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load viewer: %w", err)
	}
	return user, nil
}
