package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Outcome is the result of one send attempt or step execution. It is stored
// verbatim in instance history.
type Outcome struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

func Sent(id string) Outcome { return Outcome{Success: true, ID: id} }

func Failed(err error) Outcome { return Outcome{Success: false, Error: err.Error()} }

// MessageContent is the snapshot of what was (or would have been) sent.
type MessageContent struct {
	Subject    string `json:"subject,omitempty"`
	Body       string `json:"body,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
}

// CommunicationLogEntry is written once per send attempt and never updated.
type CommunicationLogEntry struct {
	ID                uuid.UUID                          `gorm:"type:uuid;primary_key;" json:"id"`
	Type              Channel                            `gorm:"type:varchar(10);not null" json:"type"`
	ContactID         string                             `gorm:"type:varchar(100);index" json:"contactId,omitempty"`
	WorkflowID        string                             `gorm:"type:varchar(100);index" json:"workflowId,omitempty"`
	Provider          string                             `gorm:"type:varchar(50)" json:"provider"`
	ProviderMessageID string                             `gorm:"type:varchar(200)" json:"providerMessageId,omitempty"`
	Status            DeliveryStatus                     `gorm:"type:varchar(10);not null" json:"status"`
	Recipient         string                             `gorm:"type:varchar(320);not null" json:"recipient"`
	Content           datatypes.JSONType[MessageContent] `gorm:"type:jsonb" json:"content"`
	Error             string                             `gorm:"type:text" json:"error,omitempty"`
	Timestamp         time.Time                          `gorm:"column:logged_at;index;not null" json:"timestamp"`
}

func (CommunicationLogEntry) TableName() string { return "communication_logs" }
