package mail

import (
	"context"
	"strings"

	"github.com/goliatone/go-print"
)

// Console writes messages to the logger instead of delivering them
type Console struct {
	logger Logger
}

var _ Mailer = (*Console)(nil)

func NewConsole(logger Logger) *Console {
	return &Console{logger: logger}
}

func (c *Console) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := Validate(msg); err != nil {
		return err
	}

	if c.logger == nil {
		return nil
	}

	c.logger.Info("outgoing mail %s\n%s", print.MaybePrettyJSON(map[string]any{
		"from":    msg.From,
		"to":      strings.Join(msg.To, ", "),
		"subject": msg.Subject,
	}), msg.Body)

	return nil
}
