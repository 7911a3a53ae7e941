package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"network", &NetworkError{URL: "http://x", Err: errors.New("refused")}, "network"},
		{"wrapped decode", fmt.Errorf("search: %w", &DecodeError{URL: "http://x", Err: errors.New("eof")}), "decode"},
		{"malformed", &MalformedPayloadError{AlbumID: "1", Field: "discs"}, "malformed"},
		{"auth", &AuthError{Username: "u", Reason: "no cookie"}, "auth"},
		{"not logged in", ErrNotLoggedIn, "auth"},
		{"not found", fmt.Errorf("album 9: %w", ErrNotFound), "not_found"},
		{"other", errors.New("boom"), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&NetworkError{URL: "u", Err: errors.New("timeout")}))
	assert.True(t, IsTransient(&NetworkError{URL: "u", StatusCode: 503}))
	assert.False(t, IsTransient(&NetworkError{URL: "u", StatusCode: 400}))
	assert.False(t, IsTransient(&AuthError{}))
}

func TestMalformedPayloadErrorMessage(t *testing.T) {
	err := &MalformedPayloadError{AlbumID: "79", Field: "catalog"}
	assert.Contains(t, err.Error(), "79")
	assert.Contains(t, err.Error(), "catalog")
	assert.True(t, errors.Is(err, ErrMalformedPayload))
	assert.False(t, errors.Is(err, ErrNetwork))
}
