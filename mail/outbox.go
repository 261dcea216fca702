package mail

import (
	"context"
	"sync"
	"time"
)

// Outbox keeps sent messages in memory, in send order
type Outbox struct {
	mu       sync.Mutex
	messages []Message
}

var _ Mailer = (*Outbox)(nil)

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := Validate(msg); err != nil {
		return err
	}

	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, cloneMessage(msg))
	return nil
}

// Messages returns a snapshot of the outbox
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	for i, m := range o.messages {
		out[i] = cloneMessage(m)
	}
	return out
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}

// Last returns the most recent message
func (o *Outbox) Last() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return Message{}, false
	}
	return cloneMessage(o.messages[len(o.messages)-1]), true
}

func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = nil
}

func cloneMessage(m Message) Message {
	m.To = append([]string(nil), m.To...)
	m.Cc = append([]string(nil), m.Cc...)
	m.Bcc = append([]string(nil), m.Bcc...)
	return m
}
