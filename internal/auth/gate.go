// Package auth implements the credential gate: account signup, password
// login and bearer-token authentication.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RichardoC/healthpad/internal/db"
	"github.com/RichardoC/healthpad/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("username and password cannot be empty")
	ErrUsernameTaken      = errors.New("Username already exists")
	ErrInvalidCredentials = errors.New("Incorrect username or password")
	ErrInvalidToken       = errors.New("Could not validate credentials")
)

const TokenType = "bearer"

// Session is what a successful signup or login hands back to the client.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
}

type Gate struct {
	accounts db.AccountStore
	tokens   *Tokens
	cost     int
	logger   *zap.Logger
}

func NewGate(accounts db.AccountStore, tokens *Tokens, logger *zap.Logger) *Gate {
	return &Gate{
		accounts: accounts,
		tokens:   tokens,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
}

// Signup creates an account. The existence check happens before the insert
// and is not transactional; a racing duplicate is still caught by the
// store's unique constraint.
func (g *Gate) Signup(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	_, err := g.accounts.AccountByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acc, err := g.accounts.CreateAccount(ctx, username, string(hash))
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	g.logger.Info("account created", zap.Int64("user_id", acc.ID), zap.String("username", acc.Username))
	return g.session(acc)
}

func (g *Gate) Login(ctx context.Context, username, password string) (*Session, error) {
	acc, err := g.accounts.AccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return g.session(acc)
}

// Authenticate resolves a bearer token to its account. The account is
// re-read on every call so tokens naming a removed account stop working.
func (g *Gate) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	username, err := g.tokens.Subject(token)
	if err != nil {
		g.logger.Debug("token rejected", zap.Error(err))
		return nil, ErrInvalidToken
	}

	acc, err := g.accounts.AccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	return acc, nil
}

func (g *Gate) session(acc *models.Account) (*Session, error) {
	token, err := g.tokens.Issue(acc.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{
		AccessToken: token,
		TokenType:   TokenType,
		UserID:      acc.ID,
		Username:    acc.Username,
	}, nil
}
