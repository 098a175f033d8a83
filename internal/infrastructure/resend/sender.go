package resend

import (
	"context"
	"errors"
	"fmt"

	"leadflow/internal/core/ports"

	"github.com/resend/resend-go/v2"
)

// Sender delivers email through the Resend API.
type Sender struct {
	client *resend.Client
}

var _ ports.EmailSender = (*Sender)(nil)

// NewSender returns nil when apiKey is empty so the gateway treats email as
// unavailable.
func NewSender(apiKey string) *Sender {
	if apiKey == "" {
		return nil
	}
	return &Sender{client: resend.NewClient(apiKey)}
}

func (s *Sender) Name() string { return "resend" }

func (s *Sender) SendEmail(ctx context.Context, msg ports.EmailMessage) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	if sent == nil || sent.Id == "" {
		return "", errors.New("resend: response carried no message id")
	}
	return sent.Id, nil
}
