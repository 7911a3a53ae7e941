package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	ErrNetwork          = errors.New("vgmdb: network failure")
	ErrDecode           = errors.New("vgmdb: response could not be decoded")
	ErrMalformedPayload = errors.New("vgmdb: album payload is missing a required field")
	ErrAuth             = errors.New("vgmdb: authentication failed")
	ErrNotFound         = errors.New("vgmdb: resource not found")

	// Application/Flow specific errors
	ErrNotLoggedIn     = errors.New("collection: not logged in")
	ErrFolderNotFound  = errors.New("collection: folder could not be found or created")
	ErrInvalidAlbumRef = errors.New("vgmdb: invalid album reference")
	ErrQueued          = errors.New("collection: request failed, operation queued for retry")
)

// NetworkError is returned when a request could not complete or the server
// answered with an unexpected status.
type NetworkError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("vgmdb: request to %s failed: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("vgmdb: request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// DecodeError is returned when a response body is not the expected JSON or HTML.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("vgmdb: could not decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// MalformedPayloadError names the required album field that was absent.
type MalformedPayloadError struct {
	AlbumID string
	Field   string
}

func (e *MalformedPayloadError) Error() string {
	if e.AlbumID == "" {
		return fmt.Sprintf("vgmdb: album payload has no %q field", e.Field)
	}
	return fmt.Sprintf("vgmdb: album %s payload has no %q field", e.AlbumID, e.Field)
}

func (e *MalformedPayloadError) Is(target error) bool { return target == ErrMalformedPayload }

// AuthError is returned when the site rejected the supplied credentials.
type AuthError struct {
	Username string
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("vgmdb: login for %q failed: %s", e.Username, e.Reason)
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// Kind classifies err into a short label used in diagnostics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, ErrAuth), errors.Is(err, ErrNotLoggedIn):
		return "auth"
	default:
		return "unknown"
	}
}

// IsTransient reports whether err is a failure worth retrying later.
func IsTransient(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.StatusCode == 0 || netErr.StatusCode >= 500 || netErr.StatusCode == 429
	}
	return false
}
