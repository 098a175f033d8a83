package plivo

import (
	"context"
	"errors"
	"fmt"

	"leadflow/internal/core/ports"

	"github.com/plivo/plivo-go/v7"
)

// Sender delivers SMS through the Plivo messages API.
type Sender struct {
	client *plivo.Client
}

var _ ports.SMSSender = (*Sender)(nil)

// NewSender returns (nil, nil) when credentials are missing so the gateway
// treats SMS as unavailable.
func NewSender(authID, authToken string) (*Sender, error) {
	if authID == "" || authToken == "" {
		return nil, nil
	}
	client, err := plivo.NewClient(authID, authToken, &plivo.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("plivo: %w", err)
	}
	return &Sender{client: client}, nil
}

func (s *Sender) Name() string { return "plivo" }

// SendSMS ignores ctx: the plivo client has no context-aware calls.
func (s *Sender) SendSMS(_ context.Context, msg ports.SMSMessage) (string, error) {
	resp, err := s.client.Messages.Create(plivo.MessageCreateParams{
		Src:  msg.From,
		Dst:  msg.To,
		Text: msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("plivo: %w", err)
	}
	if resp == nil || len(resp.MessageUUID) == 0 {
		return "", errors.New("plivo: response carried no message uuid")
	}
	return resp.MessageUUID[0], nil
}
