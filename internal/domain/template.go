package domain

import (
	"time"

	"gorm.io/datatypes"
)

// LegacyEmailTemplatesKey is the settings row that held email templates as
// an id -> html map before they had their own table.
const LegacyEmailTemplatesKey = "email_templates"

type EmailTemplate struct {
	ID        string    `gorm:"type:varchar(100);primary_key;" json:"id" yaml:"id"`
	Name      string    `gorm:"type:varchar(200)" json:"name" yaml:"name"`
	Category  string    `gorm:"type:varchar(100)" json:"category,omitempty" yaml:"category"`
	Subject   string    `gorm:"type:text" json:"subject" yaml:"subject"`
	HTML      string    `gorm:"type:text" json:"html" yaml:"html"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

func (EmailTemplate) TableName() string { return "email_templates" }

type SMSTemplate struct {
	ID       string `gorm:"type:varchar(100);primary_key;" json:"id" yaml:"id"`
	Name     string `gorm:"type:varchar(200)" json:"name" yaml:"name"`
	Category string `gorm:"type:varchar(100)" json:"category,omitempty" yaml:"category"`

	// Content is the current body field; Message is what the admin editor writes.
	Content string `gorm:"type:text" json:"content,omitempty" yaml:"content"`
	Message string `gorm:"type:text" json:"message,omitempty" yaml:"message"`

	Variables datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"variables,omitempty" yaml:"variables"`
	UpdatedAt time.Time                   `json:"updatedAt" yaml:"-"`
}

func (SMSTemplate) TableName() string { return "sms_templates" }

func (t *SMSTemplate) Body() string {
	if t.Content != "" {
		return t.Content
	}
	return t.Message
}

// Setting is a keyed JSON blob.
type Setting struct {
	Key       string                                `gorm:"type:varchar(100);primary_key;"`
	Values    datatypes.JSONType[map[string]string] `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (Setting) TableName() string { return "settings" }
