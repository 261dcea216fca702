package registration

import (
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"
	goerrors "github.com/goliatone/go-errors"

	"github.com/scionlab/go-registration/mail"
)

// DefaultActivationDays is used when the configuration does not set a window
const DefaultActivationDays = 7

const (
	ActivationEmailSubjectTemplate = "django_registration/activation_email_subject.txt"
	ActivationEmailBodyTemplate    = "django_registration/activation_email_body.txt"
)

// ActivationEmailContext carries what the activation templates need
type ActivationEmailContext struct {
	User   *User
	Key    *ActivationKey
	Scheme string
	Host   string
}

// ActivationEmailComposer renders the activation message for a new account
type ActivationEmailComposer struct {
	subject *pongo2.Template
	body    *pongo2.Template
	routes  RouteTable
	cfg     RegistrationConfig
}

// NewActivationEmailComposer compiles the subject and body templates found in templates
func NewActivationEmailComposer(templates fs.FS, routes RouteTable, cfg RegistrationConfig) (*ActivationEmailComposer, error) {
	subject, err := compileTemplate(templates, ActivationEmailSubjectTemplate)
	if err != nil {
		return nil, err
	}

	body, err := compileTemplate(templates, ActivationEmailBodyTemplate)
	if err != nil {
		return nil, err
	}

	return &ActivationEmailComposer{
		subject: subject,
		body:    body,
		routes:  routes,
		cfg:     cfg,
	}, nil
}

func compileTemplate(templates fs.FS, name string) (*pongo2.Template, error) {
	raw, err := fs.ReadFile(templates, name)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read mail template").
			WithMetadata(map[string]any{"template": name})
	}

	tpl, err := pongo2.FromBytes(raw)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compile mail template").
			WithMetadata(map[string]any{"template": name})
	}

	return tpl, nil
}

// ActivationURL returns the absolute activation link for key
func (c *ActivationEmailComposer) ActivationURL(scheme, host string, key *ActivationKey) (string, error) {
	path, err := c.routes.Reverse(RouteActivate, map[string]string{
		ActivationKeyParam: key.Key(),
	})
	if err != nil {
		return "", err
	}

	if scheme == "" {
		scheme = "http"
	}

	return scheme + "://" + host + path, nil
}

// Compose renders the activation message. Newlines in the rendered subject
// are removed so a template with a trailing newline still yields one line.
func (c *ActivationEmailComposer) Compose(ectx ActivationEmailContext) (mail.Message, error) {
	if ectx.User == nil || ectx.Key == nil {
		return mail.Message{}, goerrors.New("activation email needs a user and a key", goerrors.CategoryInternal)
	}

	activationURL, err := c.ActivationURL(ectx.Scheme, ectx.Host, ectx.Key)
	if err != nil {
		return mail.Message{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build activation url")
	}

	days := c.cfg.GetActivationDays()
	if days <= 0 {
		days = DefaultActivationDays
	}

	data := pongo2.Context{
		"activation_key":  ectx.Key.Key(),
		"activation_url":  activationURL,
		"expiration_days": days,
		"site_name":       c.cfg.GetSiteName(),
		"site_host":       ectx.Host,
		"scheme":          ectx.Scheme,
		"user":            ectx.User,
	}

	subject, err := c.subject.Execute(data)
	if err != nil {
		return mail.Message{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render activation subject")
	}

	body, err := c.body.Execute(data)
	if err != nil {
		return mail.Message{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render activation body")
	}

	return mail.Message{
		From:    c.cfg.GetDefaultFromEmail(),
		To:      []string{ectx.User.Email},
		Subject: strings.Join(strings.Split(subject, "\n"), ""),
		Body:    body,
	}, nil
}
