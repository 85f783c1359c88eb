package errprocess

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Handlers map these onto HTTP status codes and
// websocket error frames; they are reported to the originating caller
// only and never enter the broadcast path.
var (
	// ErrUnauthenticated credential missing or failed to resolve
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrPermissionDenied membership or role check failed
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound chat, message or user id does not resolve
	ErrNotFound = errors.New("not found")
	// ErrInvalidOperation operation not valid for the target entity
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrChecksumMismatch merged upload does not match the declared checksum
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Wrap attaches context to one of the sentinel errors above so that
// errors.Is keeps matching the sentinel.
func Wrap(sentinel error, msg string) error {
	return fmt.Errorf("%s: %w", msg, sentinel)
}
