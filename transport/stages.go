package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const RequestIDHeader = "X-Request-ID"

// TokenReader yields the bearer token to attach, or nil when there is none.
type TokenReader interface {
	CurrentToken(ctx context.Context) (*oauth2.Token, error)
}

// BearerStage attaches "Authorization: Bearer <token>" when tokens holds a
// token. The token is read as the request is dispatched, never earlier, so
// a credential cleared by logout is not attached to later requests.
func BearerStage(tokens TokenReader) RequestStage {
	return func(req *http.Request) error {
		tok, err := tokens.CurrentToken(req.Context())
		if err != nil {
			return fmt.Errorf("[BearerStage] %w", err)
		}
		if tok == nil || tok.AccessToken == "" {
			return nil
		}
		tok.SetAuthHeader(req)
		return nil
	}
}

// RequestIDStage tags each request with a fresh X-Request-ID unless one is
// already set.
func RequestIDStage() RequestStage {
	return func(req *http.Request) error {
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}
		return nil
	}
}

func UserAgentStage(userAgent string) RequestStage {
	return func(req *http.Request) error {
		req.Header.Set("User-Agent", userAgent)
		return nil
	}
}

// LoggingStage logs each exchange: debug for successes, warn for failures.
// Headers are never logged.
func LoggingStage(logger zerolog.Logger) ResponseStage {
	return func(ex *Exchange) {
		var event *zerolog.Event
		if ex.Failure != nil {
			event = logger.Warn().
				Str("kind", string(ex.Failure.Kind())).
				Str("backend_message", ex.Failure.BackendMessage)
			if ex.Failure.Err != nil {
				event = event.AnErr("cause", ex.Failure.Err)
			}
		} else {
			event = logger.Debug()
		}
		if ex.Request != nil {
			event = event.Str("method", ex.Request.Method).
				Str("request_id", ex.Request.Header.Get(RequestIDHeader))
		}
		event.Str("path", ex.Path).
			Int("status", ex.StatusCode).
			Dur("duration", ex.Duration).
			Msg("backend request")
	}
}

// MetricsStage records each exchange on m.
func MetricsStage(m *Metrics) ResponseStage {
	return func(ex *Exchange) {
		m.observe(ex)
	}
}
