package registration_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	registration "github.com/scionlab/go-registration"
)

func TestIsError(t *testing.T) {
	annotated := registration.ErrActivationKeyInvalid.Clone().WithMetadata(map[string]any{"reason": "unknown"})
	wrapped := goerrors.Wrap(registration.ErrAlreadyActivated, goerrors.CategoryInternal, "transaction failed")

	tests := []struct {
		name   string
		err    error
		target *goerrors.Error
		want   bool
	}{
		{name: "same sentinel", err: registration.ErrUserPending, target: registration.ErrUserPending, want: true},
		{name: "annotated copy", err: annotated, target: registration.ErrActivationKeyInvalid, want: true},
		{name: "wrapped copy", err: wrapped, target: registration.ErrAlreadyActivated, want: true},
		{name: "different sentinel", err: registration.ErrUserPending, target: registration.ErrDuplicateAccount},
		{name: "plain error", err: errors.New("boom"), target: registration.ErrUserPending},
		{name: "nil error", err: nil, target: registration.ErrUserPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, registration.IsError(tt.err, tt.target))
		})
	}

	assert.Empty(t, registration.ErrActivationKeyInvalid.Metadata, "sentinel must not be mutated")
}

func TestTextCode(t *testing.T) {
	assert.Equal(t, "USER_PENDING", registration.TextCode(registration.ErrUserPending))
	assert.Equal(t, "", registration.TextCode(errors.New("boom")))
	assert.Equal(t, "", registration.TextCode(nil))
}

func TestTokenErrorHelpers(t *testing.T) {
	assert.True(t, registration.IsTokenExpiredError(registration.ErrTokenExpired))
	assert.True(t, registration.IsTokenExpiredError(errors.New("token has invalid claims: token is expired")))
	assert.False(t, registration.IsTokenExpiredError(nil))
	assert.False(t, registration.IsTokenExpiredError(registration.ErrTokenMalformed))

	assert.True(t, registration.IsMalformedError(registration.ErrTokenMalformed))
	assert.True(t, registration.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, registration.IsMalformedError(nil))
}
