package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// Postgres / PostgREST error codes the client cares about.
const (
	CodeUniqueViolation = "23505"
	CodeNoRows          = "PGRST116"
)

var (
	// ErrNoSession is returned by operations that need a signed-in user.
	ErrNoSession = errors.New("no active session")

	// ErrNotConfigured is returned for every request when no backend URL is set.
	// It counts as a network failure so callers degrade to offline behavior.
	ErrNotConfigured = errors.New("backend URL not configured")
)

// Error is an error response from the backend.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("remote: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString("request failed")
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " (code %s, status %d)", e.Code, e.Status)
	} else {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	return b.String()
}

// decodeError builds an *Error from a non-2xx response body. It understands the
// row API shape {code,message,details,hint} and the auth API shapes
// {error,error_description} and {msg,error_code}.
func decodeError(status int, body io.Reader) *Error {
	raw, _ := io.ReadAll(io.LimitReader(body, 64<<10))

	var payload struct {
		Code             json.RawMessage `json:"code"`
		Message          string          `json:"message"`
		Details          string          `json:"details"`
		Hint             string          `json:"hint"`
		Msg              string          `json:"msg"`
		ErrorCode        string          `json:"error_code"`
		ErrorName        string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	e := &Error{Status: status}
	if err := json.Unmarshal(raw, &payload); err != nil {
		e.Message = strings.TrimSpace(string(raw))
		return e
	}

	e.Code = rawCode(payload.Code)
	if e.Code == "" {
		e.Code = firstNonEmpty(payload.ErrorCode, payload.ErrorName)
	}
	e.Message = firstNonEmpty(payload.Message, payload.Msg, payload.ErrorDescription, payload.ErrorName)
	e.Details = payload.Details
	e.Hint = payload.Hint
	return e
}

// rawCode accepts both "23505" and 400 style codes.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsDuplicate reports whether err is a unique-constraint violation.
func IsDuplicate(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeUniqueViolation
}

// IsNoRows reports whether err means a single-row read found nothing.
func IsNoRows(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeNoRows
}

// IsNetwork reports whether err is a transport failure (offline, DNS, timeout,
// unconfigured backend) rather than an answer from the backend.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUnauthorized reports whether the backend rejected the credentials.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Status == 401 || e.Status == 403)
}
