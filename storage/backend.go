package storage

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the durable store cannot be reached or
// rejects an operation.
var ErrUnavailable = errors.New("storage unavailable")

// Backend is a string-keyed durable store scoped to one client origin.
//
// Get reports ok=false when the key does not exist. Delete of a missing key
// is not an error.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
