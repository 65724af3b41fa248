package services

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/morgante/graph-auth/core"
)

// FakeStorage is a test-only fake implementing core.AuthStorage. It stores
// users and sessions in maps and exposes error fields for behavior
// injection.
type FakeStorage struct {
	mu       sync.RWMutex
	users    map[string]*core.User // key: user ID
	sessions map[string]*core.Session

	createUserErr error
	getUserErr    error
	updateUserErr error
	sessionErr    error
	seq           int
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		users:    make(map[string]*core.User),
		sessions: make(map[string]*core.Session),
	}
}

func copyUser(u *core.User) *core.User {
	dup := *u
	dup.CurrentForRequest = false
	return &dup
}

func (f *FakeStorage) CreateUser(u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createUserErr != nil {
		return f.createUserErr
	}

	for _, existing := range f.users {
		if existing.Email == u.Email || (u.Username != "" && existing.Username == u.Username) {
			return core.ErrUserExists
		}
	}

	f.seq++
	if u.ID == "" {
		u.ID = "user-" + strconv.Itoa(f.seq)
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	f.users[u.ID] = copyUser(u)
	return nil
}

func (f *FakeStorage) GetUserByID(id string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (f *FakeStorage) GetUserByField(field, value string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	accessor, ok := core.FieldAccessorFor(field)
	if !ok {
		return nil, core.ErrUserNotFound
	}
	for _, u := range f.users {
		if accessor.Get(u) == value {
			return copyUser(u), nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorage) FindUsersByEmail(email string) ([]*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	var out []*core.User
	for _, u := range f.users {
		if u.Email == email {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeStorage) UpdateUser(u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateUserErr != nil {
		return f.updateUserErr
	}
	if _, ok := f.users[u.ID]; !ok {
		return core.ErrUserNotFound
	}
	u.UpdatedAt = time.Now()
	f.users[u.ID] = copyUser(u)
	return nil
}

func (f *FakeStorage) ListUsers(filter core.UserFilter) ([]*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}

	var matched []*core.User
	for _, u := range f.users {
		match := true
		for name, want := range filter.Fields {
			accessor, ok := core.FieldAccessorFor(name)
			if !ok || accessor.Get(u) != want {
				match = false
				break
			}
		}
		if match {
			matched = append(matched, copyUser(u))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// SessionStorage methods

func (f *FakeStorage) CreateSession(s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return f.sessionErr
	}
	f.sessions[s.TokenHash] = s
	return nil
}

func (f *FakeStorage) GetSessionByHash(tokenHash string) (*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	s, ok := f.sessions[tokenHash]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return s, nil
}

func (f *FakeStorage) GetSessionByID(id string) (*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, core.ErrSessionNotFound
}

func (f *FakeStorage) DeleteSessionByID(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, s := range f.sessions {
		if s.ID == id {
			delete(f.sessions, k)
			return nil
		}
	}
	return core.ErrSessionNotFound
}

func (f *FakeStorage) DeleteSessionByHash(tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[tokenHash]; !ok {
		return core.ErrSessionNotFound
	}
	delete(f.sessions, tokenHash)
	return nil
}

func (f *FakeStorage) DeleteUserSessions(userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for k, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, k)
			count++
		}
	}
	return count, nil
}

func (f *FakeStorage) DeleteExpiredSessions() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	now := time.Now()
	for k, s := range f.sessions {
		if now.After(s.ExpiresAt) {
			delete(f.sessions, k)
			count++
		}
	}
	return count, nil
}

var _ core.AuthStorage = (*FakeStorage)(nil)

// FakeMailer is a test-only mailer that records sent messages.
type FakeMailer struct {
	mu      sync.Mutex
	sent    []core.EmailMessage
	sendErr error
}

func NewFakeMailer() *FakeMailer {
	return &FakeMailer{}
}

func (f *FakeMailer) Send(msg core.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *FakeMailer) Sent() []core.EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.EmailMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

var _ core.Mailer = (*FakeMailer)(nil)
