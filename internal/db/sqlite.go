package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/healthpad/internal/models"
	"github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS health_memory (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS health_memory_user_created
    ON health_memory (user_id, created_at DESC);`

// SQLite serves both accounts and conversation memory from one file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateAccount(ctx context.Context, username, passwordHash string) (*models.Account, error) {
	query := `
        INSERT INTO users (username, password, created_at)
        VALUES (?, ?, ?)
        RETURNING id`

	acc := &models.Account{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	err := s.db.QueryRowContext(ctx, query, username, passwordHash, acc.CreatedAt).Scan(&acc.ID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

func (s *SQLite) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `
        SELECT id, username, password, created_at
        FROM users
        WHERE username = ?`

	var acc models.Account
	err := s.db.QueryRowContext(ctx, query, username).
		Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acc, nil
}

func (s *SQLite) AppendTurns(ctx context.Context, turns ...models.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range turns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO health_memory (user_id, role, content, created_at)
			VALUES (?, ?, ?, ?)
		`, t.UserID, t.Role, t.Content, t.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) RecentTurns(ctx context.Context, userID string, limit int) ([]models.Turn, error) {
	query := `
        SELECT user_id, role, content, created_at
        FROM health_memory
        WHERE user_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return []models.Turn{}, err
	}
	defer rows.Close()

	turns := make([]models.Turn, 0)
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.UserID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return []models.Turn{}, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
