package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeAdjustment TransactionType = "adjustment"
	TransactionTypeWaiver     TransactionType = "waiver"
)

// PaymentTransaction is an append-only audit record of a mutation applied to
// an installment. Rows are never updated or deleted.
type PaymentTransaction struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	InstallmentID uint `gorm:"index" json:"installment_id"`

	Amount        decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Type          TransactionType `gorm:"type:varchar(20)" json:"type"`
	PaymentMethod string          `gorm:"type:varchar(50)" json:"payment_method"`
	TransactionID string          `gorm:"type:varchar(100);index" json:"transaction_id"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     string          `gorm:"type:varchar(255)" json:"created_by"`

	// Relationships
	Installment PaymentInstallment `gorm:"foreignKey:InstallmentID" json:"installment,omitempty"`
}
