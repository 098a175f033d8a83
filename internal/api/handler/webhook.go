package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"leadflow/internal/api/dto"
	"leadflow/internal/domain"
	"leadflow/internal/logging"
	"leadflow/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

const bookingCreatedEvent = "BOOKING_CREATED"

// WebhookHandler turns booking provider webhooks into booking leads. It
// answers with its own {success, ...} JSON rather than problem documents.
type WebhookHandler struct {
	leads  service.LeadService
	logger *slog.Logger
}

func NewWebhookHandler(leads service.LeadService) *WebhookHandler {
	return &WebhookHandler{leads: leads, logger: logging.WithModule("webhook")}
}

func (h *WebhookHandler) Booking(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")

	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	var req dto.BookingWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("malformed booking payload: %w", err))
		return
	}

	// Anything but a new booking is acknowledged so the provider does not retry
	if req.TriggerEvent != bookingCreatedEvent {
		h.logger.Info("ignoring booking event", "trigger_event", req.TriggerEvent)
		c.JSON(http.StatusOK, dto.BookingWebhookResponse{Success: true, Message: "Event ignored"})
		return
	}

	lead := bookingLead(req.Payload)
	if err := h.leads.CreateLead(c.Request.Context(), lead); err != nil {
		h.fail(c, err)
		return
	}

	h.logger.Info("booking saved as lead", "lead_id", lead.ID, "booking_id", req.Payload.UID)
	c.JSON(http.StatusOK, dto.BookingWebhookResponse{
		Success: true,
		LeadID:  lead.ID.String(),
		Message: "Booking saved as lead",
	})
}

func (h *WebhookHandler) fail(c *gin.Context, err error) {
	h.logger.Error("booking webhook failed", "error", err)
	c.JSON(http.StatusInternalServerError, dto.BookingWebhookResponse{Success: false, Error: err.Error()})
}

func bookingLead(p dto.BookingPayload) *domain.Lead {
	var attendee dto.BookingAttendee
	if len(p.Attendees) > 0 {
		attendee = p.Attendees[0]
	}
	eventType := ""
	if p.EventType != nil {
		eventType = p.EventType.Title
	}

	name := firstNonEmpty(attendee.Name, p.Title, "Cal.com Booking")
	svc := firstNonEmpty(eventType, p.Title, "Consultation")
	message := fmt.Sprintf("Booked: %s\nTime: %s\nEvent ID: %s",
		firstNonEmpty(p.Title, "Appointment"),
		firstNonEmpty(p.StartTime, "N/A"),
		firstNonEmpty(p.UID, "N/A"))

	lead := domain.NewLead(name, attendee.Email, attendee.Phone, svc, message, domain.LeadSourceBooking)
	lead.Booking = datatypes.NewJSONType(domain.BookingDetails{
		BookingID:     p.UID,
		EventType:     eventType,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		Location:      p.Location,
		RescheduleURL: p.RescheduleURL,
		CancelURL:     p.CancelURL,
	})
	return lead
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
