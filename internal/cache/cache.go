// Package cache defines the shared cache store used for metric rings and
// cached health snapshots.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrKeyNotFound signals a missing cache key.
var ErrKeyNotFound = errors.New("key not found")

// Store is the contract the engine needs from the shared cache. Rings are
// append-bounded: PushBounded must be atomic on the backend so concurrent
// writers never lose updates to read-modify-write races.
type Store interface {
	// PushBounded prepends value to the list at key and trims the list to
	// maxLen entries, atomically, refreshing ttl when ttl > 0.
	PushBounded(ctx context.Context, key string, value []byte, maxLen int64, ttl time.Duration) error
	// GetList returns all entries of the list at key, newest first.
	GetList(ctx context.Context, key string) ([][]byte, error)
	// Get returns the value at key or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value at key with an expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

// Op names for error reporting.
const (
	OpPush = "push"
	OpList = "list"
	OpGet  = "get"
	OpSet  = "set"
)

// Error wraps a backend failure with the operation that caused it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("cache %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }
