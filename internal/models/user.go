package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the platform-level role of a user
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleManager   Role = "manager"
	RoleViewer    Role = "viewer"
)

// Permission is a single enumerated capability
type Permission string

const (
	PermManageEvents     Permission = "manage_events"
	PermManageGroups     Permission = "manage_groups"
	PermManagePayments   Permission = "manage_payments"
	PermViewAnalytics    Permission = "view_analytics"
	PermRecalculateFees  Permission = "recalculate_fees"
	PermManageAllTenants Permission = "manage_all_tenants"
)

// rolePermissions maps each role to its fixed capability set.
// Manager permissions apply only within groups delegated to the manager;
// scoping is enforced where the group is resolved.
var rolePermissions = map[Role][]Permission{
	RoleAdmin:     {PermManageEvents, PermManageGroups, PermManagePayments, PermViewAnalytics, PermRecalculateFees, PermManageAllTenants},
	RoleOrganizer: {PermManageEvents, PermManageGroups, PermManagePayments, PermViewAnalytics, PermRecalculateFees},
	RoleManager:   {PermManagePayments, PermViewAnalytics},
	RoleViewer:    {PermViewAnalytics},
}

// User represents an account on the platform
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FirebaseUID string `gorm:"type:varchar(128);uniqueIndex" json:"firebase_uid"`
	Name        string `gorm:"type:varchar(255)" json:"name"`
	Email       string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Role        Role   `gorm:"type:varchar(20);default:'organizer'" json:"role"`

	// Relationships
	Events        []Event        `gorm:"foreignKey:OrganizerID" json:"events,omitempty"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"notifications,omitempty"`
}

// Permissions returns the capability set for the user's role
func (u User) Permissions() []Permission {
	return rolePermissions[u.Role]
}

// Can reports whether the user's role carries the given permission
func (u User) Can(p Permission) bool {
	for _, perm := range rolePermissions[u.Role] {
		if perm == p {
			return true
		}
	}
	return false
}
