package models

import (
	"time"

	"gorm.io/gorm"
)

// ParticipantGroup is an organizer-defined subset of an event's participants,
// optionally delegated to a secondary manager
type ParticipantGroup struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	EventID     uint   `gorm:"index" json:"event_id"`
	Name        string `gorm:"type:varchar(255)" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	// Relationships
	Event         Event          `gorm:"foreignKey:EventID" json:"event,omitempty"`
	Managers      []GroupManager `gorm:"foreignKey:GroupID" json:"managers,omitempty"`
	Registrations []Registration `gorm:"foreignKey:GroupID" json:"registrations,omitempty"`
}

// GroupManager links a user to a group they were delegated to manage
type GroupManager struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	GroupID uint `gorm:"index:idx_group_managers_group_user,unique" json:"group_id"`
	UserID  uint `gorm:"index:idx_group_managers_group_user,unique" json:"user_id"`
	Role    Role `gorm:"type:varchar(20);default:'manager'" json:"role"`

	// Relationships
	Group ParticipantGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	User  User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
