package dto

// BookingWebhookRequest is the booking provider's webhook body. Only the
// fields turned into a lead are declared.
type BookingWebhookRequest struct {
	TriggerEvent string         `json:"triggerEvent"`
	Payload      BookingPayload `json:"payload"`
}

type BookingPayload struct {
	UID           string            `json:"uid"`
	Title         string            `json:"title"`
	StartTime     string            `json:"startTime"`
	EndTime       string            `json:"endTime"`
	Location      string            `json:"location"`
	RescheduleURL string            `json:"rescheduleUrl"`
	CancelURL     string            `json:"cancelUrl"`
	EventType     *BookingEventType `json:"eventType"`
	Attendees     []BookingAttendee `json:"attendees"`
	Organizer     *BookingAttendee  `json:"organizer"`
}

type BookingEventType struct {
	Title string `json:"title"`
}

type BookingAttendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	TimeZone string `json:"timeZone"`
}

type BookingWebhookResponse struct {
	Success bool   `json:"success"`
	LeadID  string `json:"leadId,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
