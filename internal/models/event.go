package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventStatus represents the lifecycle state of an event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusClosed    EventStatus = "closed"
)

// Event represents an event a participant can register for
type Event struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrganizerID uint        `gorm:"index" json:"organizer_id"`
	Name        string      `gorm:"type:varchar(255)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	Status      EventStatus `gorm:"type:varchar(20);default:'draft'" json:"status"`

	// Free-form keyed policy configuration, e.g.
	// {"type":"flat","amount":"10.00"} or {"type":"percentage","rate":"2.5"}
	LateFeePolicy  datatypes.JSONMap `gorm:"type:jsonb" json:"late_fee_policy"`
	DiscountPolicy datatypes.JSONMap `gorm:"type:jsonb" json:"discount_policy"`

	// Relationships
	Organizer     User               `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	Groups        []ParticipantGroup `gorm:"foreignKey:EventID" json:"groups,omitempty"`
	PaymentPlans  []PaymentPlan      `gorm:"foreignKey:EventID" json:"payment_plans,omitempty"`
	Registrations []Registration     `gorm:"foreignKey:EventID" json:"registrations,omitempty"`
}
