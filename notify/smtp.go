package notify

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// SMTPNotifier sends HTML mail through an SMTP relay.
type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, to string, kind Kind, data Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := Render(kind, data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s mail: %w", kind, err)
	}
	return nil
}

// LogNotifier renders notifications into the log instead of sending them.
// Used when no SMTP relay is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, to string, kind Kind, data Data) error {
	subject, _, err := Render(kind, data)
	if err != nil {
		return err
	}
	n.Logger.Info("notification (not sent, smtp disabled)", "to", to, "kind", kind, "subject", subject, "link", data["link"])
	return nil
}
