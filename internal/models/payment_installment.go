package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InstallmentStatus is the stored status of an installment.
// "partial" is not stored; it is derived from the amounts (see EffectiveStatus).
type InstallmentStatus string

const (
	InstallmentStatusPending   InstallmentStatus = "pending"
	InstallmentStatusPaid      InstallmentStatus = "paid"
	InstallmentStatusOverdue   InstallmentStatus = "overdue"
	InstallmentStatusWaived    InstallmentStatus = "waived"
	InstallmentStatusCancelled InstallmentStatus = "cancelled"
)

// PaymentInstallment is one scheduled payment obligation of a registration.
// Invariant: RemainingAmount = max(0, OriginalAmount + LateFeeAmount - DiscountAmount - PaidAmount).
type PaymentInstallment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	RegistrationID uint `gorm:"index:idx_installments_reg_plan_number,unique" json:"registration_id"`
	PaymentPlanID  uint `gorm:"index:idx_installments_reg_plan_number,unique" json:"payment_plan_id"`

	// 1-based, unique per registration+plan
	InstallmentNumber int `gorm:"index:idx_installments_reg_plan_number,unique" json:"installment_number"`

	DueDate  time.Time  `gorm:"index" json:"due_date"`
	PaidDate *time.Time `json:"paid_date"`

	OriginalAmount  decimal.Decimal `gorm:"type:decimal(12,2)" json:"original_amount"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"paid_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"remaining_amount"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2)" json:"discount_amount"`
	LateFeeAmount   decimal.Decimal `gorm:"type:decimal(12,2)" json:"late_fee_amount"`

	Status InstallmentStatus `gorm:"type:varchar(20);index;default:'pending'" json:"status"`

	// Set when the late-fee policy has been evaluated for this installment;
	// recalculation never applies a fee twice.
	LateFeeAppliedAt *time.Time `json:"late_fee_applied_at"`

	Notes     string `gorm:"type:text" json:"notes"`
	UpdatedBy string `gorm:"type:varchar(255)" json:"updated_by"`

	// Relationships
	Registration Registration         `gorm:"foreignKey:RegistrationID" json:"registration,omitempty"`
	PaymentPlan  PaymentPlan          `gorm:"foreignKey:PaymentPlanID" json:"payment_plan,omitempty"`
	Transactions []PaymentTransaction `gorm:"foreignKey:InstallmentID" json:"transactions,omitempty"`
}

// ComputeRemaining evaluates the amount invariant, clamped at zero
func (i PaymentInstallment) ComputeRemaining() decimal.Decimal {
	remaining := i.OriginalAmount.Add(i.LateFeeAmount).Sub(i.DiscountAmount).Sub(i.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsPartiallyPaid reports whether some, but not all, of the installment is paid
func (i PaymentInstallment) IsPartiallyPaid() bool {
	return i.PaidAmount.IsPositive() && i.RemainingAmount.IsPositive() &&
		(i.Status == InstallmentStatusPending || i.Status == InstallmentStatusOverdue)
}

// EffectiveStatus is the status the dashboard displays: the stored status,
// except that a partially paid pending/overdue installment reads as "partial"
func (i PaymentInstallment) EffectiveStatus() string {
	if i.IsPartiallyPaid() {
		return "partial"
	}
	return string(i.Status)
}

// Open reports whether the installment can still receive payments
func (i PaymentInstallment) Open() bool {
	switch i.Status {
	case InstallmentStatusWaived, InstallmentStatusCancelled:
		return false
	}
	return true
}
