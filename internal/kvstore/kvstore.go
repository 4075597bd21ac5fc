// Package kvstore provides the local key-value storage used for credential
// caching and template persistence. It is eventually-consistent local storage
// with no cross-device sync guarantee.
package kvstore

import (
	"context"
	"errors"
)

// ErrQuotaExceeded indicates a Set would push the store past its byte quota.
// The classifier matches on the "quota" keyword in its message.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Usage reports bytes-based capacity accounting.
type Usage struct {
	Used  int64
	Quota int64
}

// Store is the key-value contract the pipeline depends on. Absent keys are
// reported via the bool return, not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Usage(ctx context.Context) (Usage, error)
}
