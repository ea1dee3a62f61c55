package credentials

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned by a [Source] when no user has the username.
var ErrUserNotFound = errors.New("credentials: user not found")

// ErrUserExists is returned when creating a user whose username is taken.
var ErrUserExists = errors.New("credentials: username already taken")

// User is a stored account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
}

// Source looks users up by username.
type Source interface {
	FindByUsername(ctx context.Context, username string) (User, error)
}

// HashUpdater is implemented by sources that can store an upgraded hash.
type HashUpdater interface {
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}
