//go:build integration

package credentials

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Requires BLOGAUTH_DATABASE_URL pointing at a disposable database.
func mustOpenPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("BLOGAUTH_DATABASE_URL")
	if dsn == "" {
		t.Skip("BLOGAUTH_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("postgres unreachable: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresSourceLifecycle(t *testing.T) {
	pool := mustOpenPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	src, err := NewPostgresSource(pool)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if err := src.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// migrations are idempotent
	if err := src.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	username := "it_" + time.Now().Format("150405.000000")[:13]
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE username = $1`, username)
	})

	created, err := src.CreateUser(ctx, username, "it@example.com", "$2a$04$placeholder")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := src.CreateUser(ctx, username, "", "x"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	got, err := src.FindByUsername(ctx, username)
	if err != nil || got.ID != created.ID {
		t.Fatalf("find: %+v %v", got, err)
	}
	if err := src.UpdatePasswordHash(ctx, created.ID, "$argon2id$new"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := src.FindByUsername(ctx, "missing-"+username); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
