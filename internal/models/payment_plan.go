package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InstallmentInterval is the spacing between consecutive installments
type InstallmentInterval string

const (
	IntervalWeekly   InstallmentInterval = "weekly"
	IntervalBiweekly InstallmentInterval = "biweekly"
	IntervalMonthly  InstallmentInterval = "monthly"
)

// PlanStatus represents whether a plan can still be attached to registrations
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"
)

// PaymentPlan defines how a registration's total is split into installments.
// A plan becomes immutable once installments have been generated from it.
type PaymentPlan struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	EventID uint   `gorm:"index" json:"event_id"`
	Name    string `gorm:"type:varchar(255)" json:"name"`

	InstallmentCount     int                 `json:"installment_count"`
	InstallmentInterval  InstallmentInterval `gorm:"type:varchar(20);default:'monthly'" json:"installment_interval"`
	FirstInstallmentDate time.Time           `json:"first_installment_date"`

	// Plan-level policy overrides; fall back to the event's policies when empty
	DiscountPolicy datatypes.JSONMap `gorm:"type:jsonb" json:"discount_policy"`
	LateFeePolicy  datatypes.JSONMap `gorm:"type:jsonb" json:"late_fee_policy"`

	IsDefault bool       `gorm:"default:false" json:"is_default"`
	Status    PlanStatus `gorm:"type:varchar(20);default:'active'" json:"status"`

	// Relationships
	Event        Event                `gorm:"foreignKey:EventID" json:"event,omitempty"`
	Installments []PaymentInstallment `gorm:"foreignKey:PaymentPlanID" json:"installments,omitempty"`
}

// DueDateAt returns the due date of the i-th installment (0-based).
// Monthly steps follow the calendar, weekly and biweekly are fixed-length.
func (p PaymentPlan) DueDateAt(i int) time.Time {
	switch p.InstallmentInterval {
	case IntervalWeekly:
		return p.FirstInstallmentDate.AddDate(0, 0, 7*i)
	case IntervalBiweekly:
		return p.FirstInstallmentDate.AddDate(0, 0, 14*i)
	default:
		return p.FirstInstallmentDate.AddDate(0, i, 0)
	}
}
