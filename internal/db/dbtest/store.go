// Package dbtest provides an in-memory session store for tests.
package dbtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RichardoC/healthpad/internal/db"
	"github.com/RichardoC/healthpad/internal/models"
)

// Store implements db.AccountStore and db.TurnStore. Setting AppendErr or
// RecentErr makes the matching call fail.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	nextID   int64
	turns    []models.Turn

	AppendErr error
	RecentErr error
}

func New() *Store {
	return &Store{accounts: map[string]*models.Account{}}
}

func (s *Store) CreateAccount(_ context.Context, username, passwordHash string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; ok {
		return nil, db.ErrDuplicate
	}
	s.nextID++
	acc := &models.Account{ID: s.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	s.accounts[username] = acc
	cp := *acc
	return &cp, nil
}

func (s *Store) AccountByUsername(_ context.Context, username string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

// DeleteAccount removes an account; there is no such operation in the
// service itself.
func (s *Store) DeleteAccount(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, username)
}

func (s *Store) AppendTurns(_ context.Context, turns ...models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.turns = append(s.turns, turns...)
	return nil
}

func (s *Store) RecentTurns(_ context.Context, userID string, limit int) ([]models.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecentErr != nil {
		return []models.Turn{}, s.RecentErr
	}
	out := make([]models.Turn, 0)
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].UserID == userID {
			out = append(out, s.turns[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Turns returns every stored turn in insertion order.
func (s *Store) Turns() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Turn(nil), s.turns...)
}
