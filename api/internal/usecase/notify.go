package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"text/template"

	"github.com/you-humble/printq/api/internal/domain"
	"github.com/you-humble/printq/core/pricing"
)

const DefaultFooter = "Your documents will be ready for pickup at the print desk within one business day. " +
	"Please bring this confirmation with you and pay at pickup."

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	`Hello {{.Name}},

we received your print order:

{{range .Entries}}- {{.FileName}}: {{.Pages}} {{if eq .Pages 1}}page{{else}}pages{{end}}, {{.Cost}}
{{end}}
Total: {{.Total}}

{{.Footer}}
`))

type NotificationService struct {
	notifier Notifier
	footer   string
}

func NewNotificationService(n Notifier, footer string) *NotificationService {
	if strings.TrimSpace(footer) == "" {
		footer = DefaultFooter
	}
	return &NotificationService{notifier: n, footer: footer}
}

// Compose renders one confirmation listing entries and their total.
func (s *NotificationService) Compose(customer domain.Customer, entries []domain.FileOutcome, total pricing.Money) (domain.Message, error) {
	var body strings.Builder
	err := confirmationTmpl.Execute(&body, struct {
		Name    string
		Entries []domain.FileOutcome
		Total   pricing.Money
		Footer  string
	}{
		Name:    customer.Name,
		Entries: entries,
		Total:   total,
		Footer:  s.footer,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("render confirmation: %w", err)
	}

	return domain.Message{
		To:      customer.Email,
		Subject: fmt.Sprintf("Print order confirmation: %d file(s), total %s", len(entries), total),
		Body:    body.String(),
	}, nil
}

// Confirm sends the confirmation for the successful entries of res.
func (s *NotificationService) Confirm(ctx context.Context, customer domain.Customer, res domain.BatchResult) error {
	msg, err := s.Compose(customer, res.Successful(), res.TotalCost)
	if err != nil {
		return err
	}
	return s.Send(ctx, msg)
}

func (s *NotificationService) Send(ctx context.Context, msg domain.Message) error {
	to := strings.TrimSpace(msg.To)
	if addr, err := mail.ParseAddress(to); err != nil || addr.Address != to {
		return domain.ErrInvalidRecipient.WithDetail(fmt.Sprintf("recipient %q is not a valid address", msg.To))
	}
	if strings.TrimSpace(msg.Subject) == "" || strings.TrimSpace(msg.Body) == "" {
		return domain.ErrInvalidMessage.WithDetail("subject and body are required")
	}
	msg.To = to

	if err := s.notifier.Send(ctx, msg); err != nil {
		return err
	}

	slog.Info("notification sent", slog.String("to", to), slog.String("subject", msg.Subject))
	return nil
}
