package views_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionlab/go-registration/views"
)

func TestRecorderRecordsRenderedTemplates(t *testing.T) {
	rec := views.NewRecorder(views.New())
	require.NoError(t, rec.Load())

	var buf bytes.Buffer
	err := rec.Render(&buf, "django_registration/activation_complete", map[string]any{
		"site_name": "SCIONLab",
		"urls":      map[string]string{"login": "/login/"},
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Your account is active")
	assert.Contains(t, buf.String(), `href="/login/"`)
	assert.Equal(t, []string{"django_registration/activation_complete.html"}, rec.Names())
	assert.True(t, rec.Used("django_registration/activation_complete.html"))

	rec.Reset()
	assert.Empty(t, rec.Names())
	assert.False(t, rec.Used("django_registration/activation_complete.html"))
}

func TestRecorderRecordsFailedRenders(t *testing.T) {
	rec := views.NewRecorder(views.New())
	require.NoError(t, rec.Load())

	var buf bytes.Buffer
	err := rec.Render(&buf, "does/not/exist", nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"does/not/exist.html"}, rec.Names())
}

func TestTemplatesArePresent(t *testing.T) {
	names := []string{
		"registration/login.html",
		"django_registration/registration_form.html",
		"django_registration/registration_complete.html",
		"django_registration/registration_closed.html",
		"django_registration/activation_complete.html",
		"django_registration/activation_failed.html",
		"django_registration/activation_email_subject.txt",
		"django_registration/activation_email_body.txt",
		"scionlab/ASes_overview.html",
		"errors/500.html",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			raw, err := views.ReadTemplate(name)
			require.NoError(t, err)
			assert.NotEmpty(t, raw)
		})
	}
}

func TestSubjectTemplateIsSingleLine(t *testing.T) {
	raw, err := views.ReadTemplate("django_registration/activation_email_subject.txt")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "\n")
}
