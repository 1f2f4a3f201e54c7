package fakebackend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type middleware func(http.HandlerFunc) http.HandlerFunc

// ContextKey is the type of request context keys set by the middleware.
type ContextKey string

const ContextKeyVendor ContextKey = "vendor"

func chainMiddleware(routeFunction http.HandlerFunc, mw ...middleware) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// recoverMiddleware turns a handler panic into the 500 body Django returns.
func (b *Backend) recoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("[fakebackend] handler panicked")
				writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "A server error occurred."})
			}
		}()
		next(w, r)
	}
}

// requireAuth validates the bearer access token the way the backend's JWT
// authentication does and puts the vendor in the request context.
func (b *Backend) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authorization header must contain two space-delimited values", "code": "bad_authorization_header"})
			return
		}

		v, err := b.verify(parts[1])
		if err != nil {
			log.Debug().Err(err).Msg("[fakebackend] rejected token")
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": InvalidTokenDetail, "code": "token_not_valid"})
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyVendor, v)
		next(w, r.WithContext(ctx))
	}
}

func (b *Backend) verify(raw string) (*vendor, error) {
	token, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(signingSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwtlib.MapClaims); !ok || claims["token_type"] != "access" {
		return nil, fmt.Errorf("not an access token")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.tokens[raw]
	if !ok {
		return nil, fmt.Errorf("token revoked")
	}
	v := b.vendors[email]
	if v == nil {
		return nil, fmt.Errorf("no vendor for token")
	}
	return v, nil
}

func vendorFrom(r *http.Request) *vendor {
	v, _ := r.Context().Value(ContextKeyVendor).(*vendor)
	return v
}
