// Package token holds the bearer credential issued by the backend and the
// store-backed token source the transport gateway attaches to requests.
package token

import (
	"context"

	"github.com/jrsteele09/vendoriq-client/store"
	"golang.org/x/oauth2"
)

const tokenTypeBearer = "Bearer"

// Credential is the access/refresh pair returned by a successful login.
// Its lifetime is opaque: it is only known to be invalid once the backend
// rejects it.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

// IsZero reports whether c carries no access token.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// OAuth2 converts the credential into an oauth2 bearer token.
func (c Credential) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    tokenTypeBearer,
	}
}

// StoreValues returns the store entries that persist c.
func (c Credential) StoreValues() map[string]string {
	return map[string]string{
		store.KeyAccessToken:  c.AccessToken,
		store.KeyRefreshToken: c.RefreshToken,
	}
}

// Load reads the persisted credential. It returns nil when no access token
// is stored.
func Load(ctx context.Context, s store.Store) (*Credential, error) {
	access, ok, err := s.Get(ctx, store.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	if !ok || access == "" {
		return nil, nil
	}
	refresh, err := store.GetString(ctx, s, store.KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	return &Credential{AccessToken: access, RefreshToken: refresh}, nil
}
