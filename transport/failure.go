package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/vendoriq-client/internal/errors"
	"github.com/jrsteele09/vendoriq-client/internal/utils"
)

// Kind is a coarse classification of a Failure, used for log fields and
// metric labels.
type Kind string

const (
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindValidationRejected Kind = "validation_rejected"
	KindClient             Kind = "client_error"
	KindServer             Kind = "server_error"
	KindTimeout            Kind = "timeout"
	KindNetworkUnreachable Kind = "network_unreachable"
	KindCanceled           Kind = "canceled"
	KindUnexpected         Kind = "unexpected"
)

// Failure is the normalized form of every error the gateway returns. It
// tells a caller whether the backend was reached and rejected the call
// (HTTPStatus set), never answered (IsNetworkUnreachable) or answered too
// slowly (IsTimeout).
type Failure struct {
	Method string
	Path   string

	// HTTPStatus is 0 when no response was received.
	HTTPStatus int
	// BackendMessage is the human-readable message from the error body,
	// "detail" when present, otherwise the flattened field errors.
	BackendMessage string
	// Code is the backend's machine-readable error code, if any.
	Code string
	// FieldErrors holds per-field validation messages.
	FieldErrors map[string][]string

	IsTimeout            bool
	IsNetworkUnreachable bool

	// Err is the underlying transport, encoding or decoding error.
	Err error
}

var _ error = (*Failure)(nil)

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: ", f.Method, f.Path)
	switch {
	case f.IsTimeout:
		b.WriteString("timed out")
	case f.IsNetworkUnreachable:
		b.WriteString("backend unreachable")
	case f.HTTPStatus != 0:
		fmt.Fprintf(&b, "%d %s", f.HTTPStatus, http.StatusText(f.HTTPStatus))
		if f.BackendMessage != "" {
			fmt.Fprintf(&b, ": %s", f.BackendMessage)
		}
	default:
		b.WriteString("request failed")
	}
	if f.Err != nil && f.HTTPStatus < http.StatusBadRequest {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	return b.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is maps the failure onto the sentinel errors in internal/errors so callers
// can write errors.Is(err, errors.ErrUnauthorized).
func (f *Failure) Is(target error) bool {
	switch target {
	case errors.ErrUnauthorized:
		return f.HTTPStatus == http.StatusUnauthorized
	case errors.ErrForbidden:
		return f.HTTPStatus == http.StatusForbidden
	case errors.ErrNotFound:
		return f.HTTPStatus == http.StatusNotFound
	case errors.ErrValidationRejected:
		return f.Kind() == KindValidationRejected
	case errors.ErrServer:
		return f.HTTPStatus >= http.StatusInternalServerError
	case errors.ErrTimeout:
		return f.IsTimeout
	case errors.ErrNetworkUnreachable:
		return f.IsNetworkUnreachable
	}
	return false
}

func (f *Failure) Kind() Kind {
	switch {
	case f.IsTimeout:
		return KindTimeout
	case f.IsNetworkUnreachable:
		return KindNetworkUnreachable
	case f.HTTPStatus == http.StatusUnauthorized:
		return KindUnauthorized
	case f.HTTPStatus == http.StatusForbidden:
		return KindForbidden
	case f.HTTPStatus == http.StatusNotFound:
		return KindNotFound
	case f.HTTPStatus == http.StatusBadRequest, f.HTTPStatus == http.StatusUnprocessableEntity:
		return KindValidationRejected
	case f.HTTPStatus >= http.StatusBadRequest && f.HTTPStatus < http.StatusInternalServerError:
		if len(f.FieldErrors) > 0 {
			return KindValidationRejected
		}
		return KindClient
	case f.HTTPStatus >= http.StatusInternalServerError:
		return KindServer
	case errors.Is(f.Err, context.Canceled):
		return KindCanceled
	}
	return KindUnexpected
}

// AsFailure extracts a *Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// transportFailure classifies an error from http.Client.Do or from reading a
// response body.
func transportFailure(method, path string, err error) *Failure {
	f := &Failure{Method: method, Path: path, Err: err}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		f.IsTimeout = true
	case errors.As(err, &netErr) && netErr.Timeout():
		f.IsTimeout = true
	case errors.Is(err, context.Canceled):
	default:
		f.IsNetworkUnreachable = true
	}
	return f
}

// responseFailure builds a Failure from a 4xx/5xx response, extracting the
// backend's message from the usual error body shapes:
//
//	{"detail": "...", "code": "..."}
//	{"email": ["..."], "non_field_errors": ["..."]}
//	["..."]
func responseFailure(method, path string, status int, body []byte) *Failure {
	f := &Failure{Method: method, Path: path, HTTPStatus: status}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return f
	}

	switch v := decoded.(type) {
	case string:
		f.BackendMessage = v
	case []any:
		f.BackendMessage = strings.Join(utils.ToStringSlice(v), "; ")
	case map[string]any:
		if detail, ok := v["detail"].(string); ok {
			f.BackendMessage = detail
			f.Code, _ = v["code"].(string)
			return f
		}
		f.FieldErrors = fieldErrors(v)
		f.BackendMessage = flattenFieldErrors(f.FieldErrors)
	}
	return f
}

func fieldErrors(body map[string]any) map[string][]string {
	out := make(map[string][]string, len(body))
	for field, raw := range body {
		switch v := raw.(type) {
		case string:
			out[field] = []string{v}
		case []any:
			if msgs := utils.ToStringSlice(v); len(msgs) > 0 {
				out[field] = msgs
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// flattenFieldErrors renders field errors as "field: msg, field: msg" with
// fields sorted.
func flattenFieldErrors(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(fields[name], " ")))
	}
	return strings.Join(parts, ", ")
}
