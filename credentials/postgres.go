package credentials

import (
	"context"
	"crypto/rand"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const uniqueViolation = "23505"

// PostgresSource reads users from the users table. The pool is owned by the
// caller and is not closed here.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) (*PostgresSource, error) {
	if pool == nil {
		return nil, errors.New("credentials: nil pool")
	}
	return &PostgresSource{pool: pool}, nil
}

// Migrate applies the embedded schema migrations.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	migrations, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("credentials: migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("credentials: migrate: %w", err)
	}
	return nil
}

func (s *PostgresSource) FindByUsername(ctx context.Context, username string) (User, error) {
	const q = `SELECT id, username, email, password_hash FROM users WHERE lower(username) = lower($1)`

	var u User
	err := s.pool.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("credentials: find user: %w", err)
	}
	return u, nil
}

// CreateUser inserts a user with an already hashed password.
func (s *PostgresSource) CreateUser(ctx context.Context, username, email, hash string) (User, error) {
	const q = `INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $3, $4)`

	u := User{
		ID:           ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if _, err := s.pool.Exec(ctx, q, u.ID, u.Username, u.Email, u.PasswordHash); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("credentials: create user: %w", err)
	}
	return u, nil
}

func (s *PostgresSource) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, userID, hash)
	if err != nil {
		return fmt.Errorf("credentials: update hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
