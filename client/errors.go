package client

import "errors"

var (
	// ErrRefreshExhausted is returned to every request waiting on a refresh
	// that failed. It wraps the cause. The session should be treated as ended.
	ErrRefreshExhausted = errors.New("session refresh failed")
	// ErrNotAuthenticated means the server rejected the credentials or no
	// session is held.
	ErrNotAuthenticated = errors.New("not authenticated")
)
