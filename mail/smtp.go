package mail

import (
	"context"
	"fmt"
	"net/smtp"

	goerrors "github.com/goliatone/go-errors"
)

// SMTP relays messages through an SMTP server using PLAIN auth when a
// username is configured.
type SMTP struct {
	addr     string
	host     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ Mailer = (*SMTP)(nil)

func NewSMTP(host string, port int, username, password string) *SMTP {
	if port == 0 {
		port = 25
	}

	s := &SMTP{
		addr:     fmt.Sprintf("%s:%d", host, port),
		host:     host,
		sendMail: smtp.SendMail,
	}

	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}

	return s
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := Validate(msg); err != nil {
		return err
	}

	if err := s.sendMail(s.addr, s.auth, msg.From, msg.Recipients(), msg.Bytes()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver mail").
			WithMetadata(map[string]any{
				"addr":    s.addr,
				"subject": msg.Subject,
			})
	}

	return nil
}
