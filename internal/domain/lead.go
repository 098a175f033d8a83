package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LeadSource string

const (
	LeadSourceWebsite LeadSource = "website"
	LeadSourceBooking LeadSource = "booking"
)

type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQuoted    LeadStatus = "quoted"
	LeadWon       LeadStatus = "won"
	LeadLost      LeadStatus = "lost"
)

// BookingDetails is what the booking provider told us about the appointment.
type BookingDetails struct {
	BookingID     string `json:"bookingId,omitempty"`
	EventType     string `json:"eventType,omitempty"`
	StartTime     string `json:"startTime,omitempty"`
	EndTime       string `json:"endTime,omitempty"`
	Location      string `json:"location,omitempty"`
	RescheduleURL string `json:"rescheduleUrl,omitempty"`
	CancelURL     string `json:"cancelUrl,omitempty"`
}

type Lead struct {
	ID       uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	Name     string     `gorm:"type:varchar(200)" json:"name"`
	Email    string     `gorm:"type:varchar(320);index" json:"email,omitempty"`
	Phone    string     `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Service  string     `gorm:"type:varchar(200)" json:"service,omitempty"`
	Message  string     `gorm:"type:text" json:"message,omitempty"`
	Notes    string     `gorm:"type:text" json:"notes,omitempty"`
	Source   LeadSource `gorm:"type:varchar(20);not null" json:"source"`
	Status   LeadStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Notified bool       `json:"notified"`

	Booking datatypes.JSONType[BookingDetails] `gorm:"type:jsonb" json:"booking"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Lead) TableName() string { return "leads" }

// --- FACTORY ---

func NewLead(name, email, phone, service, message string, source LeadSource) *Lead {
	now := time.Now().UTC()
	if source == "" {
		source = LeadSourceWebsite
	}
	return &Lead{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Service:   service,
		Message:   message,
		Source:    source,
		Status:    LeadNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- METHODS ---

// Trigger is the workflow trigger a newly created lead fires.
func (l *Lead) Trigger() TriggerType {
	if l.Source == LeadSourceBooking {
		return TriggerBooking
	}
	return TriggerFormSubmit
}

func (l *Lead) Contact() ContactSnapshot {
	return ContactSnapshot{
		ID:      l.ID.String(),
		Name:    l.Name,
		Email:   l.Email,
		Phone:   l.Phone,
		Service: l.Service,
	}
}

// EnrollmentVariables are the per-instance template variables seeded from
// the lead. Only booking leads carry any.
func (l *Lead) EnrollmentVariables(loc *time.Location) map[string]string {
	if l.Source != LeadSourceBooking {
		return nil
	}
	booking := l.Booking.Data()
	vars := map[string]string{}
	if start, err := time.Parse(time.RFC3339, booking.StartTime); err == nil {
		if loc != nil {
			start = start.In(loc)
		}
		vars["appointmentDate"] = start.Format("Monday, January 2, 2006")
		vars["appointmentTime"] = start.Format("3:04 PM")
	}
	if booking.Location != "" {
		vars["appointmentAddress"] = booking.Location
	}
	if len(vars) == 0 {
		return nil
	}
	return vars
}
