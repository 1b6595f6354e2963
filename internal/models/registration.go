package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegistrationStatus represents the state of a participant's registration
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

// Registration represents a participant registered to an event
type Registration struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	EventID uint  `gorm:"index" json:"event_id"`
	GroupID *uint `gorm:"index" json:"group_id"`

	ParticipantName  string `gorm:"type:varchar(255)" json:"participant_name"`
	ParticipantEmail string `gorm:"type:varchar(255)" json:"participant_email"`

	// Public lookup token for the participant-facing payment page
	UUID string `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`

	TotalAmount decimal.Decimal    `gorm:"type:decimal(12,2)" json:"total_amount"`
	Status      RegistrationStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`

	PaymentPlanID *uint `gorm:"index" json:"payment_plan_id"`

	// Relationships
	Event        Event                `gorm:"foreignKey:EventID" json:"event,omitempty"`
	Group        *ParticipantGroup    `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	PaymentPlan  *PaymentPlan         `gorm:"foreignKey:PaymentPlanID" json:"payment_plan,omitempty"`
	Installments []PaymentInstallment `gorm:"foreignKey:RegistrationID" json:"installments,omitempty"`
}
