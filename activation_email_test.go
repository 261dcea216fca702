package registration_test

import (
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	registration "github.com/scionlab/go-registration"
	"github.com/scionlab/go-registration/config"
	"github.com/scionlab/go-registration/views"
)

func newTestComposer(t *testing.T) *registration.ActivationEmailComposer {
	t.Helper()
	composer, err := registration.NewActivationEmailComposer(
		views.Templates(),
		registration.DefaultRoutes(),
		config.Defaults().GetRegistration(),
	)
	require.NoError(t, err)
	return composer
}

func testActivationKey() *registration.ActivationKey {
	return &registration.ActivationKey{
		ID:     uuid.MustParse("5f0c6c2e-2a4b-4c3f-9d55-3b0a5e7a1c01"),
		Email:  testEmail,
		Status: "pending",
	}
}

func TestActivationURL(t *testing.T) {
	composer := newTestComposer(t)
	key := testActivationKey()

	tests := []struct {
		name   string
		scheme string
		host   string
		want   string
	}{
		{"test server", "http", "testserver", "http://testserver/registration/activate/" + key.Key() + "/"},
		{"https", "https", "www.scionlab.org", "https://www.scionlab.org/registration/activate/" + key.Key() + "/"},
		{"default scheme", "", "testserver", "http://testserver/registration/activate/" + key.Key() + "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := composer.ActivationURL(tt.scheme, tt.host, key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComposeActivationEmail(t *testing.T) {
	composer := newTestComposer(t)
	key := testActivationKey()
	user := &registration.User{Email: testEmail, Username: testEmail}

	msg, err := composer.Compose(registration.ActivationEmailContext{
		User:   user,
		Key:    key,
		Scheme: "http",
		Host:   "testserver",
	})
	require.NoError(t, err)

	assert.Equal(t, "scionlab-admins@sympa.ethz.ch", msg.From)
	assert.Equal(t, []string{testEmail}, msg.To)
	assert.Equal(t, "Activate your SCIONLab account", msg.Subject)
	assert.Contains(t, msg.Body, "http://testserver/registration/activate/"+key.Key()+"/")
	assert.Contains(t, msg.Body, "registered the account "+testEmail+" on SCIONLab")
	assert.Contains(t, msg.Body, "within 7 days")
}

func TestComposeRequiresUserAndKey(t *testing.T) {
	composer := newTestComposer(t)

	_, err := composer.Compose(registration.ActivationEmailContext{Key: testActivationKey(), Host: "testserver"})
	assert.Error(t, err)

	_, err = composer.Compose(registration.ActivationEmailContext{User: &registration.User{Email: testEmail}})
	assert.Error(t, err)
}

func TestComposeStripsSubjectNewlines(t *testing.T) {
	templates := fstest.MapFS{
		registration.ActivationEmailSubjectTemplate: {Data: []byte("Welcome to\n{{ site_name }}\n")},
		registration.ActivationEmailBodyTemplate:    {Data: []byte("{{ activation_key }} {{ expiration_days }}")},
	}

	cfg := config.Defaults().GetRegistration()
	cfg.ActivationDays = 0

	composer, err := registration.NewActivationEmailComposer(templates, registration.DefaultRoutes(), cfg)
	require.NoError(t, err)

	key := testActivationKey()
	msg, err := composer.Compose(registration.ActivationEmailContext{
		User: &registration.User{Email: testEmail},
		Key:  key,
		Host: "testserver",
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome toSCIONLab", msg.Subject)
	assert.Equal(t, key.Key()+" 7", msg.Body)
}

func TestNewActivationEmailComposerMissingTemplate(t *testing.T) {
	_, err := registration.NewActivationEmailComposer(fstest.MapFS{}, registration.DefaultRoutes(), config.Defaults().GetRegistration())
	assert.Error(t, err)
}
