package account

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store used in development and tests.
// Uniqueness checks run under a single mutex, so concurrent conflicting
// writes resolve to exactly one winner.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*Account
	byEmail map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ByID returns the account with the given id, or ErrNotFound.
func (s *MemoryStore) ByID(ctx context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return acct.Clone(), nil
}

// ByEmail returns the account with the given email, or ErrNotFound.
func (s *MemoryStore) ByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// List returns copies of all accounts.
func (s *MemoryStore) List(ctx context.Context) ([]*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]*Account, 0, len(s.byID))
	for _, acct := range s.byID {
		accounts = append(accounts, acct.Clone())
	}
	return accounts, nil
}

// Create inserts a new account, enforcing id and email uniqueness.
func (s *MemoryStore) Create(ctx context.Context, acct *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(acct.Email)

	if _, ok := s.byID[acct.ID]; ok {
		return ErrIDTaken
	}
	if _, ok := s.byEmail[email]; ok {
		return ErrEmailTaken
	}

	cp := acct.Clone()
	cp.Email = email
	s.byID[cp.ID] = cp
	s.byEmail[email] = cp.ID

	return nil
}

// Save overwrites an existing account keyed by its id.
func (s *MemoryStore) Save(ctx context.Context, acct *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[acct.ID]
	if !ok {
		return ErrNotFound
	}

	email := normalizeEmail(acct.Email)
	if email != prev.Email {
		if _, taken := s.byEmail[email]; taken {
			return ErrEmailTaken
		}
		delete(s.byEmail, prev.Email)
		s.byEmail[email] = acct.ID
	}

	cp := acct.Clone()
	cp.Email = email
	s.byID[cp.ID] = cp

	return nil
}

// RenameID changes an account's identity id.
func (s *MemoryStore) RenameID(ctx context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[oldID]
	if !ok {
		return ErrNotFound
	}
	if _, taken := s.byID[newID]; taken {
		return ErrIDTaken
	}

	delete(s.byID, oldID)
	acct.ID = newID
	s.byID[newID] = acct
	s.byEmail[acct.Email] = newID

	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}
