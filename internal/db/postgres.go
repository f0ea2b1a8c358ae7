package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/healthpad/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const pgUniqueViolation = "23505"

type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing handle, e.g. a sqlmock connection.
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: sqlx.NewDb(db, "pgx")}
}

// Migrate brings the schema up to date with the embedded goose migrations.
func (p *Postgres) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, p.db.DB, "migrations")
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type accountRow struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
}

func (p *Postgres) CreateAccount(ctx context.Context, username, passwordHash string) (*models.Account, error) {
	query := `
		INSERT INTO users (username, password)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	acc := &models.Account{Username: username, PasswordHash: passwordHash}
	err := p.db.QueryRowxContext(ctx, query, username, passwordHash).Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

func (p *Postgres) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `
		SELECT id, username, password, created_at
		FROM users
		WHERE username = $1
	`
	var row accountRow
	if err := p.db.GetContext(ctx, &row, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &models.Account{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.Password,
		CreatedAt:    row.CreatedAt,
	}, nil
}

type turnRow struct {
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

func (p *Postgres) AppendTurns(ctx context.Context, turns ...models.Turn) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range turns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO health_memory (user_id, role, content, created_at)
			VALUES ($1, $2, $3, $4)
		`, t.UserID, t.Role, t.Content, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) RecentTurns(ctx context.Context, userID string, limit int) ([]models.Turn, error) {
	query := `
		SELECT user_id, role, content, created_at
		FROM health_memory
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	var rows []turnRow
	if err := p.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return []models.Turn{}, fmt.Errorf("failed to list turns: %w", err)
	}

	turns := make([]models.Turn, 0, len(rows))
	for _, r := range rows {
		turns = append(turns, models.Turn(r))
	}
	return turns, nil
}
