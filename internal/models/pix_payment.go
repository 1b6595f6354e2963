package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PIXStatus is the lifecycle state of a PIX charge
type PIXStatus string

const (
	PIXStatusPending   PIXStatus = "pending"
	PIXStatusPaid      PIXStatus = "paid"
	PIXStatusCancelled PIXStatus = "cancelled"
	PIXStatusExpired   PIXStatus = "expired"
	PIXStatusFailed    PIXStatus = "failed"
)

// PIXPayment is a PIX charge created for an installment. When no provider API
// key is configured the charge is simulated in-process and can be settled via
// the simulate-pay endpoint.
type PIXPayment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	InstallmentID uint `gorm:"index" json:"installment_id"`

	TxID   string          `gorm:"type:varchar(36);uniqueIndex" json:"txid"`
	Status PIXStatus       `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Amount decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`

	// EMV copy-paste payload and its QR rendering (base64 PNG)
	CopyPasteCode string `gorm:"type:text" json:"copy_paste_code"`
	QRCodeImage   string `gorm:"type:text" json:"qr_code_image"`

	ExpiresAt  time.Time  `json:"expires_at"`
	PaidAt     *time.Time `json:"paid_at"`
	ExternalID string     `gorm:"type:varchar(100);index" json:"external_id"`

	// Relationships
	Installment PaymentInstallment `gorm:"foreignKey:InstallmentID" json:"installment,omitempty"`
}

// Terminal reports whether the charge can no longer change state
func (p PIXPayment) Terminal() bool {
	return p.Status != PIXStatusPending
}
