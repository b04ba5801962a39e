package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds quick infrastructure calls such as health pings.
	DefaultTimeout = 10 * time.Second

	// SyncTimeout bounds a single user's Instagram media sync.
	SyncTimeout = 5 * time.Minute
)

func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

func WithSyncTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, SyncTimeout)
}
