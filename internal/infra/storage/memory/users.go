package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	domainauth "hlopg/internal/domain/auth"
	domainuser "hlopg/internal/domain/user"
)

// UserRepository keeps accounts in memory with unique email and phone indexes.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[domainuser.ID]domainuser.User
	unique map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:  make(map[domainuser.ID]domainuser.User),
		unique: make(map[string]domainuser.ID),
	}
}

func emailKey(email string) string { return "email:" + domainuser.NormalizeEmail(email) }
func phoneKey(phone string) string { return "phone:" + domainuser.NormalizePhone(phone) }

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.byUnique(emailKey(email))
}

func (r *UserRepository) ByPhone(ctx context.Context, phone string) (*domainuser.User, error) {
	return r.byUnique(phoneKey(phone))
}

func (r *UserRepository) byUnique(key string) (*domainuser.User, error) {
	r.mu.RLock()
	id, ok := r.unique[key]
	r.mu.RUnlock()
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return r.ByID(context.Background(), id)
}

// Save upserts u. Another account holding the same email or phone is a conflict.
func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	switch {
	case u == nil || strings.TrimSpace(string(u.ID)) == "":
		return domainuser.ErrIDRequired
	case domainuser.NormalizeEmail(u.Email) == "":
		return domainuser.ErrEmailRequired
	case domainuser.NormalizePhone(u.Phone) == "":
		return domainuser.ErrPhoneRequired
	}
	keys := []struct {
		key      string
		conflict error
	}{
		{emailKey(u.Email), domainuser.ErrEmailAlreadyUsed},
		{phoneKey(u.Phone), domainuser.ErrPhoneAlreadyUsed},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		if owner, taken := r.unique[k.key]; taken && owner != u.ID {
			return k.conflict
		}
	}
	if prev, ok := r.users[u.ID]; ok {
		delete(r.unique, emailKey(prev.Email))
		delete(r.unique, phoneKey(prev.Phone))
	}
	for _, k := range keys {
		r.unique[k.key] = u.ID
	}
	r.users[u.ID] = *u
	return nil
}

// SessionStore keeps bearer sessions in memory.
type SessionStore struct {
	mu        sync.RWMutex
	tokens    map[domainauth.Token]*domainauth.Session
	userIndex map[domainuser.ID]map[domainauth.Token]struct{}
	clock     func() time.Time
}

func NewSessionStore(clock func() time.Time) *SessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &SessionStore{
		tokens:    make(map[domainauth.Token]*domainauth.Session),
		userIndex: make(map[domainuser.ID]map[domainauth.Token]struct{}),
		clock:     clock,
	}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copySession := *session
	s.tokens[session.Token] = &copySession
	if _, ok := s.userIndex[session.UserID]; !ok {
		s.userIndex[session.UserID] = make(map[domainauth.Token]struct{})
	}
	s.userIndex[session.UserID][session.Token] = struct{}{}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	session, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if session.Expired(s.clock()) {
		_ = s.Delete(ctx, token)
		return nil, domainauth.ErrSessionNotFound
	}
	copySession := *session
	return &copySession, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(token)
	return nil
}

func (s *SessionStore) deleteLocked(token domainauth.Token) {
	session, ok := s.tokens[token]
	if !ok {
		return
	}
	delete(s.tokens, token)
	if index, ok := s.userIndex[session.UserID]; ok {
		delete(index, token)
		if len(index) == 0 {
			delete(s.userIndex, session.UserID)
		}
	}
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.userIndex[userID]
	if !ok {
		return nil
	}
	for token := range index {
		delete(s.tokens, token)
	}
	delete(s.userIndex, userID)
	return nil
}

// Purge removes expired sessions.
func (s *SessionStore) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, session := range s.tokens {
		if session.Expired(now) {
			s.deleteLocked(token)
			removed++
		}
	}
	return removed
}

// ChallengeStore keeps one pending OTP per identifier.
type ChallengeStore struct {
	mu    sync.Mutex
	items map[string]*domainauth.Challenge
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{items: make(map[string]*domainauth.Challenge)}
}

func (s *ChallengeStore) Save(ctx context.Context, challenge *domainauth.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *challenge
	s.items[challenge.Identifier] = &c
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, identifier string) (*domainauth.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[identifier]
	if !ok {
		return nil, domainauth.ErrChallengeNotFound
	}
	out := *c
	return &out, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, identifier)
	return nil
}

func (s *ChallengeStore) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, c := range s.items {
		if !c.ExpiresAt.After(now) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

var (
	_ domainuser.Repository     = (*UserRepository)(nil)
	_ domainauth.SessionStore   = (*SessionStore)(nil)
	_ domainauth.ChallengeStore = (*ChallengeStore)(nil)
)
