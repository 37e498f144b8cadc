package ledger

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Sentinel errors forming the store error taxonomy. Callers classify with
// errors.Is; the API layer maps them onto HTTP status codes.
var (
	// ErrNotFound indicates an operation targeted a missing asset id.
	ErrNotFound = errors.New("asset not found")
	// ErrAlreadyExists indicates a duplicate create.
	ErrAlreadyExists = errors.New("asset already exists")
	// ErrValidation indicates malformed input, e.g. an unparseable numeric
	// field or an unknown enum value.
	ErrValidation = errors.New("invalid input")
	// ErrEndorsement indicates a write was rejected by the store's
	// endorsement policy. Never retried.
	ErrEndorsement = errors.New("endorsement rejected")
	// ErrUnavailable indicates the store could not be reached. Transient.
	ErrUnavailable = errors.New("store unavailable")
	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("ledger client closed")
)

// IsTransient reports whether err is a transient connectivity failure
// (timeout, unavailable, connect failure) that the gateway may retry exactly
// once against a fresh connection. Definitive rejections are never
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrEndorsement),
		errors.Is(err, ErrClosed):
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Remote store clients do not always wrap our sentinels; fall back to
	// the connectivity phrases their drivers emit.
	msg := strings.ToLower(err.Error())
	for _, frag := range []string{"unavailable", "timeout", "deadline", "failed to connect", "connection refused", "connect failed"} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
