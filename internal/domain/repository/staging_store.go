package repository

import (
	"context"
	"errors"
	"time"
)

// ErrStagedEntryNotFound is returned when a staged entry is missing or expired
var ErrStagedEntryNotFound = errors.New("staged entry not found")

// StagingStore holds in-flight transaction state between the steps of one transaction
type StagingStore interface {
	Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get decodes the entry into dst or returns ErrStagedEntryNotFound
	Get(ctx context.Context, key string, dst interface{}) error
	Delete(ctx context.Context, keys ...string) error
}
