package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationChannel selects how a user wants to be reached
type NotificationChannel string

const (
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelRealtime NotificationChannel = "realtime"
	NotificationChannelNone     NotificationChannel = "none"
)

// Notification is a stored push record backing the dashboard notification feed
type Notification struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint   `gorm:"index" json:"user_id"`
	Type   string `gorm:"type:varchar(50)" json:"type"` // e.g. "payment_received", "installment_overdue"
	Title  string `gorm:"type:varchar(255)" json:"title"`
	Body   string `gorm:"type:text" json:"body"`

	ReadAt *time.Time `json:"read_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// NotificationPreference stores a user's delivery channel choice
type NotificationPreference struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID  uint                `gorm:"uniqueIndex" json:"user_id"`
	Channel NotificationChannel `gorm:"type:varchar(20);default:'email'" json:"channel"`
}
