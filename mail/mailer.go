package mail

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to the Mailer interface
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Logger is the subset of the portal logger used by the backends
type Logger interface {
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// ErrNoRecipients is returned when a message has nobody to deliver to
var ErrNoRecipients = goerrors.New("message has no recipients", goerrors.CategoryValidation).
	WithTextCode("MAIL_NO_RECIPIENTS").
	WithCode(goerrors.CodeBadRequest)

// ErrUnknownBackend is returned by New for unsupported backend names
var ErrUnknownBackend = goerrors.New("unknown mail backend", goerrors.CategoryBadInput).
	WithTextCode("MAIL_UNKNOWN_BACKEND").
	WithCode(goerrors.CodeBadRequest)

// Validate checks the message can be handed to a backend
func Validate(msg Message) error {
	if len(msg.Recipients()) == 0 {
		return ErrNoRecipients
	}
	for _, addr := range msg.Recipients() {
		if strings.TrimSpace(addr) == "" {
			return ErrNoRecipients.Clone().WithMetadata(map[string]any{"reason": "empty address"})
		}
	}
	return nil
}

// Config selects and configures a backend
type Config interface {
	GetBackend() string
	GetHost() string
	GetPort() int
	GetUsername() string
	GetPassword() string
}

// New returns the backend named by cfg
func New(cfg Config, logger Logger) (Mailer, error) {
	switch cfg.GetBackend() {
	case "", "console":
		return NewConsole(logger), nil
	case "memory":
		return NewOutbox(), nil
	case "smtp":
		return NewSMTP(cfg.GetHost(), cfg.GetPort(), cfg.GetUsername(), cfg.GetPassword()), nil
	default:
		return nil, ErrUnknownBackend.Clone().WithMetadata(map[string]any{
			"backend": cfg.GetBackend(),
		})
	}
}
