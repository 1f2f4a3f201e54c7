package token

import (
	"context"

	"github.com/jrsteele09/vendoriq-client/internal/errors"
	"github.com/jrsteele09/vendoriq-client/store"
	"golang.org/x/oauth2"
)

// StoreSource reads the bearer token from the store every time it is asked.
// Nothing is cached, so a logout performed through any handle on the same
// store takes effect on the very next request.
type StoreSource struct {
	store store.Store
}

func NewStoreSource(s store.Store) *StoreSource {
	return &StoreSource{store: s}
}

// CurrentToken returns the persisted token, or nil when there is none.
func (s *StoreSource) CurrentToken(ctx context.Context) (*oauth2.Token, error) {
	cred, err := Load(ctx, s.store)
	if err != nil {
		return nil, errors.Wrapf(err, "[StoreSource] read credential")
	}
	if cred == nil {
		return nil, nil
	}
	return cred.OAuth2(), nil
}

// TokenSource adapts s to oauth2.TokenSource for callers that want an
// oauth2-authorised *http.Client. Token fails with ErrNoCredential when
// nobody is logged in.
func (s *StoreSource) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) {
		tok, err := s.CurrentToken(ctx)
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return nil, errors.ErrNoCredential
		}
		return tok, nil
	})
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) {
	return f()
}
