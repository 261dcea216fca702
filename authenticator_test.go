package registration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	registration "github.com/scionlab/go-registration"
	"github.com/scionlab/go-registration/config"
)

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (registration.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if id := args.Get(0); id != nil {
		return id.(registration.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (registration.Identity, error) {
	args := m.Called(ctx, identifier)
	if id := args.Get(0); id != nil {
		return id.(registration.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

type statusIdentity struct {
	testIdentity
	status registration.UserStatus
}

func (s statusIdentity) Status() registration.UserStatus { return s.status }

func newTestAuther(provider registration.IdentityProvider, sink registration.ActivitySink) *registration.Auther {
	cfg := config.Defaults().GetAuth()
	ts := registration.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		quietLogger{},
	)
	return registration.NewAuthenticator(provider, cfg).
		WithLogger(quietLogger{}).
		WithActivitySink(sink).
		WithTokenService(ts)
}

func TestAutherLoginSuccess(t *testing.T) {
	ctx := context.Background()
	identity := newTestIdentity()

	provider := new(MockIdentityProvider)
	provider.On("VerifyIdentity", ctx, testEmail, testPassword).Return(identity, nil)
	provider.On("FindIdentityByIdentifier", mock.Anything, identity.ID()).Return(identity, nil)

	sink := &registration.MemoryActivitySink{}
	auther := newTestAuther(provider, sink)

	token, err := auther.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID(), claims.UserID())

	found, err := auther.IdentityFromClaims(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, identity.Email(), found.Email())

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, registration.ActivityEventLoginSuccess, events[0].EventType)
	assert.Equal(t, identity.ID(), events[0].UserID)
	assert.Equal(t, "user", events[0].Actor.Type)

	provider.AssertExpectations(t)
}

func TestAutherLoginFailure(t *testing.T) {
	ctx := context.Background()

	provider := new(MockIdentityProvider)
	provider.On("VerifyIdentity", ctx, testEmail, "wrong").Return(nil, registration.ErrMismatchedHashAndPassword)

	sink := &registration.MemoryActivitySink{}
	auther := newTestAuther(provider, sink)

	token, err := auther.Login(ctx, testEmail, "wrong")
	assert.ErrorIs(t, err, registration.ErrMismatchedHashAndPassword)
	assert.Empty(t, token)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, registration.ActivityEventLoginFailure, events[0].EventType)
	assert.Equal(t, "INVALID_CREDENTIALS", events[0].Metadata["text_code"])
	assert.Equal(t, testEmail, events[0].Metadata["identifier"])
}

func TestAutherLoginBlocksPendingIdentity(t *testing.T) {
	ctx := context.Background()
	identity := statusIdentity{testIdentity: newTestIdentity(), status: registration.UserStatusPending}

	provider := new(MockIdentityProvider)
	provider.On("VerifyIdentity", ctx, testEmail, testPassword).Return(identity, nil)

	sink := &registration.MemoryActivitySink{}
	auther := newTestAuther(provider, sink)

	_, err := auther.Login(ctx, testEmail, testPassword)
	assert.ErrorIs(t, err, registration.ErrUserPending)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, registration.ActivityEventLoginFailure, events[0].EventType)
	assert.Equal(t, registration.UserStatusPending, events[0].Metadata["status"])
}

func TestAutherIdentityFromClaimsRequiresClaims(t *testing.T) {
	auther := newTestAuther(new(MockIdentityProvider), nil)

	_, err := auther.IdentityFromClaims(context.Background(), nil)
	assert.ErrorIs(t, err, registration.ErrUnableToDecodeSession)
}

func TestAutherSessionFromExpiredToken(t *testing.T) {
	clock := &testClock{now: time.Now().UTC()}
	cfg := config.Defaults().GetAuth()

	ts := registration.NewTokenService([]byte(cfg.GetSigningKey()), 1, cfg.GetIssuer(), cfg.GetAudience(), quietLogger{}).
		WithClock(clock.Now)
	auther := registration.NewAuthenticator(new(MockIdentityProvider), cfg).
		WithLogger(quietLogger{}).
		WithTokenService(ts)

	token, err := ts.Generate(newTestIdentity(), 0)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, err = auther.SessionFromToken(token)
	assert.True(t, registration.IsTokenExpiredError(err))
}
