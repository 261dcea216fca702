package registration_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	registration "github.com/scionlab/go-registration"
)

type testIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (i testIdentity) ID() string       { return i.id }
func (i testIdentity) Username() string { return i.username }
func (i testIdentity) Email() string    { return i.email }
func (i testIdentity) Role() string     { return i.role }

func newTestIdentity() testIdentity {
	return testIdentity{
		id:       uuid.NewString(),
		username: testEmail,
		email:    testEmail,
		role:     registration.RoleUser,
	}
}

func newTestTokenService(clock registration.Clock) *registration.TokenServiceImpl {
	return registration.NewTokenService(
		[]byte("test-signing-key"),
		24,
		"scionlab",
		jwt.ClaimStrings{"scionlab:portal"},
		quietLogger{},
	).WithClock(clock)
}

func TestTokenServiceGenerateAndValidate(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(clock.Now)
	identity := newTestIdentity()

	token, err := ts.Generate(identity, 0)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.ID(), claims.UserID())
	assert.Equal(t, identity.ID(), claims.Subject())
	assert.Equal(t, registration.RoleUser, claims.Role())
	assert.True(t, claims.HasRole(registration.RoleUser))
	assert.False(t, claims.HasRole(registration.RoleAdmin))
	assert.WithinDuration(t, clock.Now(), claims.IssuedAt(), time.Second)
	assert.WithinDuration(t, clock.Now().Add(24*time.Hour), claims.Expires(), time.Second)

	jwtClaims, ok := claims.(*registration.JWTClaims)
	require.True(t, ok)
	assert.Equal(t, testEmail, jwtClaims.Email)
	assert.NotEmpty(t, jwtClaims.ID)
}

func TestTokenServiceCustomTTL(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(clock.Now)

	token, err := ts.Generate(newTestIdentity(), time.Hour)
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.WithinDuration(t, clock.Now().Add(time.Hour), claims.Expires(), time.Second)
}

func TestTokenServiceExpiredToken(t *testing.T) {
	clock := &testClock{now: time.Now().UTC()}
	ts := newTestTokenService(clock.Now)

	token, err := ts.Generate(newTestIdentity(), time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, err = ts.Validate(token)
	assert.ErrorIs(t, err, registration.ErrTokenExpired)
	assert.True(t, registration.IsTokenExpiredError(err))
}

func TestTokenServiceRejectsForeignTokens(t *testing.T) {
	clock := &testClock{now: time.Now().UTC()}
	ts := newTestTokenService(clock.Now)

	other := registration.NewTokenService([]byte("another-key"), 24, "scionlab", jwt.ClaimStrings{"scionlab:portal"}, nil).
		WithClock(clock.Now)
	foreign, err := other.Generate(newTestIdentity(), 0)
	require.NoError(t, err)

	otherIssuer := registration.NewTokenService([]byte("test-signing-key"), 24, "elsewhere", jwt.ClaimStrings{"scionlab:portal"}, nil).
		WithClock(clock.Now)
	wrongIssuer, err := otherIssuer.Generate(newTestIdentity(), 0)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong key":    foreign,
		"wrong issuer": wrongIssuer,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Validate(token)
			require.Error(t, err)
			assert.True(t, registration.IsMalformedError(err))
			assert.Equal(t, registration.ErrTokenMalformed.TextCode, registration.TextCode(err))
		})
	}
}

func TestTokenServiceSigningMethod(t *testing.T) {
	clock := &testClock{now: time.Now().UTC()}
	hs256 := newTestTokenService(clock.Now)
	hs512 := newTestTokenService(clock.Now).WithSigningMethod("HS512")

	assert.Equal(t, "HS256", hs256.SigningMethod())
	assert.Equal(t, "HS512", hs512.SigningMethod())
	assert.Equal(t, "HS256", newTestTokenService(clock.Now).WithSigningMethod("RS256").SigningMethod())

	token, err := hs512.Generate(newTestIdentity(), 0)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &jwt.MapClaims{})
	require.NoError(t, err)
	assert.Equal(t, "HS512", parsed.Method.Alg())

	_, err = hs512.Validate(token)
	require.NoError(t, err)

	_, err = hs256.Validate(token)
	assert.True(t, registration.IsMalformedError(err))
}

func TestTokenServiceRequiresIdentity(t *testing.T) {
	ts := newTestTokenService(time.Now)

	_, err := ts.Generate(nil, 0)
	assert.ErrorIs(t, err, registration.ErrIdentityNotFound)

	_, err = ts.SignClaims(nil)
	assert.Error(t, err)
}
