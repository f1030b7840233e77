package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
)

// ErrNotFound is returned by Get when the key is absent, distinguishing a
// cache miss from a store failure.
var ErrNotFound = errors.New("key not found in store")

// Storage is used to hold recent authorization decisions, keyed by an opaque
// hash of the request identity tuple. Only settled verdicts are stored;
// general errors are never cached.
type Storage interface {
	// Set stores a value with an expiration
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	// Get retrieves a value from the store
	Get(ctx context.Context, key string) (string, error)
	// Exists checks if key exists in store
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes a key from the store
	Delete(ctx context.Context, key string) error
	// Close is used to close off any resources
	Close() error
}

// CreateStorage creates the store client for use.
func CreateStorage(location string) (Storage, error) {
	var store Storage
	var err error

	uri, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidStoreURL, location)
	}

	switch uri.Scheme {
	case "redis":
		store, err = newRedisStore(location)
	default:
		return nil, fmt.Errorf("%w: unsupported store scheme %s", apperrors.ErrInvalidStoreURL, uri.Scheme)
	}

	return store, err
}
