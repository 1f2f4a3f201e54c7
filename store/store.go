// Package store defines the durable key-value store that holds the session
// credential and the cached identity between runs.
package store

import "context"

// Keys written by the session manager. The transport gateway reads only
// KeyAccessToken.
const (
	KeyAccessToken      = "access_token"
	KeyRefreshToken     = "refresh_token"
	KeyUserEmail        = "user_email"
	KeyUserFullName     = "user_full_name"
	KeyUserBusinessName = "user_business_name"
)

// SessionKeys lists every key owned by a session, in the order they are
// cleared on logout.
var SessionKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyUserEmail,
	KeyUserFullName,
	KeyUserBusinessName,
}

// Store is a durable string key-value store.
//
// SetMany and Delete apply all of their keys together: a reader never
// observes some of the keys written and others not.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetMany writes every entry of values.
	SetMany(ctx context.Context, values map[string]string) error

	// Delete removes the keys. Absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close releases any resources held by the store.
	Close() error
}

// Set writes a single key.
func Set(ctx context.Context, s Store, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// GetString returns the value for key, or "" when absent.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	v, _, err := s.Get(ctx, key)
	return v, err
}
