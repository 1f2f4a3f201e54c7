package transport

import (
	"net/http"

	"github.com/jrsteele09/vendoriq-client/internal/errors"
)

// Describe renders err as a one-line message suitable for showing an end
// user, distinguishing a slow backend, a rejecting backend and an
// unreachable one.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	f, ok := AsFailure(err)
	if !ok {
		return err.Error()
	}
	switch {
	case f.IsTimeout:
		return "Server took too long to respond (Timeout)."
	case f.IsNetworkUnreachable:
		return "No response from server. Check your internet connection."
	case errors.Is(f, errors.ErrUnexpectedResponse):
		return "Server returned an unexpected response."
	case f.HTTPStatus != 0:
		if f.BackendMessage != "" {
			return f.BackendMessage
		}
		if f.HTTPStatus == http.StatusUnauthorized {
			return "Invalid email or password"
		}
		return "Server error."
	}
	return f.Error()
}
