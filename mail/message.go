package mail

import (
	"bytes"
	"fmt"
	"io"
	netmail "net/mail"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Message is a plain text email. To holds the primary recipients, Cc and
// Bcc are only used for delivery.
type Message struct {
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
	SentAt  time.Time
}

// Recipients returns every address the message is delivered to
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	out = append(out, m.Bcc...)
	return out
}

// Bytes renders the message as an RFC 5322 document. Bcc is never written.
func (m Message) Bytes() []byte {
	var buf bytes.Buffer

	date := m.SentAt
	if date.IsZero() {
		date = time.Now()
	}

	fmt.Fprintf(&buf, "From: %s\r\n", m.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.To, ", "))
	if len(m.Cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(m.Cc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))

	return buf.Bytes()
}

// Payload parses the rendered document and returns its body section, with
// the CRLF line endings used on the wire.
func (m Message) Payload() (string, error) {
	parsed, err := netmail.ReadMessage(bytes.NewReader(m.Bytes()))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse rendered message")
	}

	body, err := io.ReadAll(parsed.Body)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read message payload")
	}

	return string(body), nil
}
