package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CardStatus is the lifecycle state of a card charge
type CardStatus string

const (
	CardStatusPending   CardStatus = "pending"
	CardStatusSucceeded CardStatus = "succeeded"
	CardStatusCancelled CardStatus = "cancelled"
	CardStatusFailed    CardStatus = "failed"
)

// CardPayment mirrors a gateway payment intent created for an installment.
// Without a gateway API key the intent is mocked locally.
type CardPayment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	InstallmentID uint `gorm:"index" json:"installment_id"`

	IntentID     string          `gorm:"type:varchar(100);uniqueIndex" json:"intent_id"`
	ClientSecret string          `gorm:"type:varchar(255)" json:"client_secret"`
	Status       CardStatus      `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`

	// Relationships
	Installment PaymentInstallment `gorm:"foreignKey:InstallmentID" json:"installment,omitempty"`
}
