package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/velora-co/velora-backend/pkg/config"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/logger"
)

var (
	errAPIKeyRequired = errors.New("sendgrid api key is required")
	errFromRequired   = errors.New("sendgrid from address is required")
)

// Message is a single transactional email.
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	PlainVer string
	HTMLVer  string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer sends transactional email through Sendgrid.
type Mailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logger.Logger
}

// New builds a Mailer from config and validates the credentials.
func New(cfg config.SendgridConfig, logg *logger.Logger) (*Mailer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	fromEmail := strings.TrimSpace(cfg.DefaultFrom)
	if fromEmail == "" {
		return nil, errFromRequired
	}
	return &Mailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  strings.TrimSpace(cfg.FromName),
		logger:    logg,
	}, nil
}

// Send delivers one message and maps provider failures to domain errors.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.ToEmail)
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email subject is required")
	}

	from := mail.NewEmail(m.fromName, m.fromEmail)
	recipient := mail.NewEmail(strings.TrimSpace(msg.ToName), to)
	plain := msg.PlainVer
	if plain == "" {
		plain = stripTags(msg.HTMLVer)
	}
	email := mail.NewSingleEmail(from, subject, recipient, plain, msg.HTMLVer)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid send failed")
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, truncate(resp.Body, 256))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid send rejected")
	}

	if m.logger != nil {
		ctx = m.logger.WithField(ctx, "subject", subject)
		m.logger.Info(ctx, "transactional email sent")
	}
	return nil
}

func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
