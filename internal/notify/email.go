package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/resend/resend-go/v2"
)

// EmailSender is the minimal contract an email backend must satisfy. The
// same split the teacher uses for sign-in emails applies here: a LogSender
// for local dev, a ResendSender for everywhere else.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type LogEmailSender struct {
	logger *slog.Logger
}

func (s *LogEmailSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("job notification email (local dev)", "to", to, "subject", subject, "body", body)
	return nil
}

type ResendEmailSender struct {
	client *resend.Client
	from   string
}

func (s *ResendEmailSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NewEmailSender returns a LogEmailSender for ENV=local, a ResendEmailSender
// otherwise.
func NewEmailSender(env, apiKey, from string, logger *slog.Logger) EmailSender {
	if env == "local" {
		return &LogEmailSender{logger: logger}
	}
	return &ResendEmailSender{client: resend.NewClient(apiKey), from: from}
}

// EmailNotifier sends one email per failed/timed-out run to a fixed
// operator address.
type EmailNotifier struct {
	sender EmailSender
	to     string
	logger *slog.Logger
}

func NewEmailNotifier(sender EmailSender, to string, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, to: to, logger: logger.With("component", "notify.email")}
}

func (n *EmailNotifier) Notify(ctx context.Context, ev domain.EngineEvent) error {
	subject := fmt.Sprintf("cronhost: job %q %s", ev.JobName, eventVerb(ev.Type))
	body := fmt.Sprintf(
		"Job: %s\nRun: %d\nEvent: %s\nAt: %s\nDetail: %s\n",
		ev.JobName, ev.RunID, ev.Type, ev.Timestamp.Format("2006-01-02T15:04:05Z07:00"), ev.Detail,
	)
	if err := n.sender.Send(ctx, n.to, subject, body); err != nil {
		return fmt.Errorf("notify by email: %w", err)
	}
	return nil
}

func eventVerb(t domain.EventType) string {
	if t == domain.JobTimedOut {
		return "timed out"
	}
	return "failed"
}
