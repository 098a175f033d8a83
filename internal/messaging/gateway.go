// Package messaging resolves message content, hands it to the email and SMS
// providers and records every attempt in the communication log.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
	"leadflow/internal/logging"
	"leadflow/internal/metrics"
	"leadflow/internal/template"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const unconfiguredProvider = "unconfigured"

type Config struct {
	EmailFrom   string
	SMSFrom     string
	CompanyName string
}

// EmailRequest sends either inline Subject/HTML or the template TemplateID.
type EmailRequest struct {
	To         string
	TemplateID string
	Subject    string
	HTML       string
	Variables  map[string]string
	WorkflowID string
	ContactID  string
}

// SMSRequest sends either inline Text or the template TemplateID.
type SMSRequest struct {
	To         string
	TemplateID string
	Text       string
	Variables  map[string]string
	WorkflowID string
	ContactID  string
}

type Gateway struct {
	templates ports.TemplateRepository
	logs      ports.CommunicationLogRepository
	email     ports.EmailSender
	sms       ports.SMSSender
	cfg       Config
	now       func() time.Time
	logger    *slog.Logger
}

// NewGateway wires the providers. A nil sender leaves that channel
// unavailable: every send on it fails and is logged.
func NewGateway(
	templates ports.TemplateRepository,
	logs ports.CommunicationLogRepository,
	email ports.EmailSender,
	sms ports.SMSSender,
	cfg Config,
) *Gateway {
	return &Gateway{
		templates: templates,
		logs:      logs,
		email:     email,
		sms:       sms,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logging.WithModule("messaging"),
	}
}

// WithClock replaces the log timestamp source.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// SendEmail never returns an error: failures come back as an unsuccessful
// Outcome. It returns nil, without logging, when req.To is empty.
func (g *Gateway) SendEmail(ctx context.Context, req EmailRequest) *domain.Outcome {
	to := strings.TrimSpace(req.To)
	if to == "" {
		return nil
	}

	entry := g.newEntry(domain.ChannelEmail, to, req.WorkflowID, req.ContactID)
	if g.email != nil {
		entry.Provider = g.email.Name()
	}
	content := domain.MessageContent{TemplateID: req.TemplateID}

	subject, html, err := g.resolveEmail(ctx, req)
	if err == nil {
		content.Subject = template.Render(subject, req.Variables)
		content.Body = template.Render(html, req.Variables)
	}
	if err == nil && g.email == nil {
		err = fmt.Errorf("%w: email provider is not configured", domain.ErrProviderUnavailable)
	}

	var providerID string
	if err == nil {
		providerID, err = g.email.SendEmail(ctx, ports.EmailMessage{
			From:    g.cfg.EmailFrom,
			To:      to,
			Subject: content.Subject,
			HTML:    content.Body,
		})
	}

	return g.finish(ctx, entry, content, providerID, err)
}

// SendSMS has the same contract as SendEmail.
func (g *Gateway) SendSMS(ctx context.Context, req SMSRequest) *domain.Outcome {
	if strings.TrimSpace(req.To) == "" {
		return nil
	}
	to := NormalizePhone(req.To)

	entry := g.newEntry(domain.ChannelSMS, to, req.WorkflowID, req.ContactID)
	if g.sms != nil {
		entry.Provider = g.sms.Name()
	}
	content := domain.MessageContent{TemplateID: req.TemplateID}

	text, err := g.resolveSMS(ctx, req)
	if err == nil {
		content.Body = template.Render(text, req.Variables)
	}
	if err == nil && g.sms == nil {
		err = fmt.Errorf("%w: sms provider is not configured", domain.ErrProviderUnavailable)
	}

	var providerID string
	if err == nil {
		providerID, err = g.sms.SendSMS(ctx, ports.SMSMessage{
			From: g.cfg.SMSFrom,
			To:   to,
			Text: content.Body,
		})
	}

	return g.finish(ctx, entry, content, providerID, err)
}

func (g *Gateway) resolveEmail(ctx context.Context, req EmailRequest) (string, string, error) {
	if req.HTML != "" {
		return g.subjectOrDefault(req.Subject), req.HTML, nil
	}
	if req.TemplateID == "" {
		return "", "", fmt.Errorf("%w: no html or templateId provided", domain.ErrNoContent)
	}

	tmpl, err := g.templates.GetEmailTemplate(ctx, req.TemplateID)
	switch {
	case err == nil:
		return g.subjectOrDefault(tmpl.Subject), tmpl.HTML, nil
	case !errors.Is(err, domain.ErrNotFound):
		return "", "", err
	}

	html, err := g.templates.GetLegacyEmailTemplate(ctx, req.TemplateID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && html == "") {
		return "", "", fmt.Errorf("%w: email template %q", domain.ErrTemplateNotFound, req.TemplateID)
	}
	if err != nil {
		return "", "", err
	}
	return g.subjectOrDefault(req.Subject), html, nil
}

func (g *Gateway) resolveSMS(ctx context.Context, req SMSRequest) (string, error) {
	if req.Text != "" {
		return req.Text, nil
	}
	if req.TemplateID == "" {
		return "", fmt.Errorf("%w: no message text provided", domain.ErrNoContent)
	}

	tmpl, err := g.templates.GetSMSTemplate(ctx, req.TemplateID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("%w: sms template %q", domain.ErrTemplateNotFound, req.TemplateID)
	}
	if err != nil {
		return "", err
	}
	if tmpl.Body() == "" {
		return "", fmt.Errorf("%w: no message text provided", domain.ErrNoContent)
	}
	return tmpl.Body(), nil
}

func (g *Gateway) subjectOrDefault(subject string) string {
	if subject != "" {
		return subject
	}
	return "Message from " + g.cfg.CompanyName
}

func (g *Gateway) newEntry(channel domain.Channel, to, workflowID, contactID string) *domain.CommunicationLogEntry {
	return &domain.CommunicationLogEntry{
		ID:         uuid.New(),
		Type:       channel,
		ContactID:  contactID,
		WorkflowID: workflowID,
		Provider:   unconfiguredProvider,
		Recipient:  to,
	}
}

// finish writes the log entry and builds the outcome for one attempt.
func (g *Gateway) finish(
	ctx context.Context,
	entry *domain.CommunicationLogEntry,
	content domain.MessageContent,
	providerID string,
	sendErr error,
) *domain.Outcome {
	outcome := domain.Sent(providerID)
	entry.Status = domain.DeliverySent
	entry.ProviderMessageID = providerID
	if sendErr != nil {
		outcome = domain.Failed(sendErr)
		entry.Status = domain.DeliveryFailed
		entry.ProviderMessageID = ""
		entry.Error = sendErr.Error()
	}
	entry.Content = datatypes.NewJSONType(content)
	entry.Timestamp = g.now()

	metrics.Sends.WithLabelValues(string(entry.Type), string(entry.Status)).Inc()

	if err := g.logs.Create(ctx, entry); err != nil {
		g.logger.Error("failed to write communication log",
			"channel", entry.Type,
			"recipient", entry.Recipient,
			"error", err)
	}

	if sendErr != nil {
		g.logger.Warn("send failed",
			"channel", entry.Type,
			"provider", entry.Provider,
			"recipient", entry.Recipient,
			"workflow_id", entry.WorkflowID,
			"error", sendErr)
	} else {
		g.logger.Info("message sent",
			"channel", entry.Type,
			"provider", entry.Provider,
			"provider_message_id", providerID,
			"workflow_id", entry.WorkflowID)
	}
	return &outcome
}
