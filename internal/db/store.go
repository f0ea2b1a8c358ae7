// Package db holds the session store: account rows and the append-only
// conversation memory. Each backend implements AccountStore, TurnStore or
// both.
package db

import (
	"context"
	"errors"

	"github.com/RichardoC/healthpad/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type AccountStore interface {
	CreateAccount(ctx context.Context, username, passwordHash string) (*models.Account, error)
	// AccountByUsername returns ErrNotFound when no such account exists.
	AccountByUsername(ctx context.Context, username string) (*models.Account, error)
}

type TurnStore interface {
	// AppendTurns stores turns in the given order.
	AppendTurns(ctx context.Context, turns ...models.Turn) error
	// RecentTurns returns at most limit turns for userID, newest first.
	RecentTurns(ctx context.Context, userID string, limit int) ([]models.Turn, error)
}

// Chronological reverses a newest-first slice in place and returns it.
func Chronological(turns []models.Turn) []models.Turn {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns
}
