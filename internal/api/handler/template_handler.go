package handler

import (
	"context"
	"net/http"

	"leadflow/internal/api/dto"
	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
	"leadflow/internal/messaging"

	"github.com/gin-gonic/gin"
)

// Messenger is the messaging gateway as the admin API uses it.
type Messenger interface {
	SendEmail(ctx context.Context, req messaging.EmailRequest) *domain.Outcome
	SendSMS(ctx context.Context, req messaging.SMSRequest) *domain.Outcome
}

// TemplateHandler serves templates, the communication log and manual sends.
type TemplateHandler struct {
	templates ports.TemplateRepository
	logs      ports.CommunicationLogRepository
	messenger Messenger
}

func NewTemplateHandler(templates ports.TemplateRepository, logs ports.CommunicationLogRepository, messenger Messenger) *TemplateHandler {
	return &TemplateHandler{templates: templates, logs: logs, messenger: messenger}
}

func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	ctx := c.Request.Context()

	email, err := h.templates.ListEmailTemplates(ctx)
	if err != nil {
		internalError(c, err)
		return
	}
	sms, err := h.templates.ListSMSTemplates(ctx)
	if err != nil {
		internalError(c, err)
		return
	}
	if email == nil {
		email = []*domain.EmailTemplate{}
	}
	if sms == nil {
		sms = []*domain.SMSTemplate{}
	}
	c.JSON(http.StatusOK, dto.TemplateListResponse{Email: email, SMS: sms})
}

func (h *TemplateHandler) SaveEmailTemplate(c *gin.Context) {
	var req dto.EmailTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	tmpl := &domain.EmailTemplate{
		ID:       c.Param("id"),
		Name:     req.Name,
		Category: req.Category,
		Subject:  req.Subject,
		HTML:     req.HTML,
	}
	if err := h.templates.SaveEmailTemplate(c.Request.Context(), tmpl); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *TemplateHandler) SaveSMSTemplate(c *gin.Context) {
	var req dto.SMSTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	tmpl := &domain.SMSTemplate{
		ID:        c.Param("id"),
		Name:      req.Name,
		Category:  req.Category,
		Content:   req.Content,
		Message:   req.Message,
		Variables: req.Variables,
	}
	if err := h.templates.SaveSMSTemplate(c.Request.Context(), tmpl); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *TemplateHandler) ListLogs(c *gin.Context) {
	logs, err := h.logs.ListRecent(c.Request.Context(), limitParam(c))
	if err != nil {
		internalError(c, err)
		return
	}
	if logs == nil {
		logs = []*domain.CommunicationLogEntry{}
	}
	c.JSON(http.StatusOK, dto.LogListResponse{Logs: logs})
}

// SendEmail is a one-off send outside any workflow. Provider failures come
// back as 200 with success=false, the same outcome a workflow step sees.
func (h *TemplateHandler) SendEmail(c *gin.Context) {
	var req dto.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	outcome := h.messenger.SendEmail(c.Request.Context(), messaging.EmailRequest{
		To:         req.To,
		TemplateID: req.TemplateID,
		Subject:    req.Subject,
		HTML:       req.HTML,
		Variables:  req.Variables,
		ContactID:  req.ContactID,
	})
	writeOutcome(c, outcome)
}

func (h *TemplateHandler) SendSMS(c *gin.Context) {
	var req dto.SendSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	outcome := h.messenger.SendSMS(c.Request.Context(), messaging.SMSRequest{
		To:         req.To,
		TemplateID: req.TemplateID,
		Text:       req.Message,
		Variables:  req.Variables,
		ContactID:  req.ContactID,
	})
	writeOutcome(c, outcome)
}

func writeOutcome(c *gin.Context, outcome *domain.Outcome) {
	if outcome == nil {
		c.JSON(http.StatusOK, dto.SendResponse{Outcome: domain.Outcome{Success: true, Skipped: true, Message: "no recipient"}})
		return
	}
	c.JSON(http.StatusOK, dto.SendResponse{Outcome: *outcome})
}
