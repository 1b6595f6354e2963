package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventreg_app/internal/models"
)

const pixChargeTTL = 30 * time.Minute

// PIXService creates and tracks PIX charges for installments. When no API key
// is configured charges are simulated in-process: the copy-paste payload and
// QR image are generated locally and the charge can be settled through
// SimulatePaid.
type PIXService struct {
	db      *gorm.DB
	billing *BillingService
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewPIXService(db *gorm.DB, billing *BillingService) *PIXService {
	url := os.Getenv("PIX_API_URL")
	if url == "" {
		url = "https://api.pix-provider.example"
	}
	return &PIXService{
		db:      db,
		billing: billing,
		baseURL: url,
		apiKey:  os.Getenv("PIX_API_KEY"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Simulated reports whether the service runs without a provider
func (s *PIXService) Simulated() bool {
	return s.apiKey == ""
}

type pixChargeResponse struct {
	ID            string `json:"id"`
	CopyPasteCode string `json:"copy_paste_code"`
	Status        string `json:"status"`
}

func (s *PIXService) makeRequest(method, endpoint string, payload interface{}, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, fmt.Sprintf("%s%s", s.baseURL, endpoint), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// BuildCopyPasteCode renders the EMV-style "copia e cola" payload for a charge
func BuildCopyPasteCode(txid string, amount decimal.Decimal) string {
	return fmt.Sprintf("00020126580014br.gov.bcb.pix0136%s5204000053039865406%s6304", txid, amount.StringFixed(2))
}

// CreateCharge opens a PIX charge for an installment's outstanding amount (or
// a smaller partial amount when given).
func (s *PIXService) CreateCharge(ctx context.Context, installmentID uint, amount decimal.Decimal) (*models.PIXPayment, error) {
	var inst models.PaymentInstallment
	if err := s.db.WithContext(ctx).First(&inst, installmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("installment")
		}
		return nil, err
	}
	if !inst.Open() || inst.Status == models.InstallmentStatusPaid {
		return nil, NewValidationError("installment is %s and cannot be charged", inst.Status)
	}

	if amount.IsZero() {
		amount = inst.RemainingAmount
	}
	if !amount.IsPositive() {
		return nil, NewValidationError("charge amount must be positive, got %s", amount.String())
	}
	if amount.GreaterThan(inst.RemainingAmount) {
		return nil, NewValidationError("charge amount %s exceeds outstanding %s", amount.String(), inst.RemainingAmount.String())
	}

	txid := uuid.New().String()
	payload := BuildCopyPasteCode(txid, amount)

	externalID := "sim-" + txid
	if !s.Simulated() {
		var resp pixChargeResponse
		body := map[string]interface{}{
			"txid":   txid,
			"amount": amount.StringFixed(2),
			"ttl":    int(pixChargeTTL.Seconds()),
		}
		if err := s.makeRequest("POST", "/v1/charges", body, &resp); err != nil {
			return nil, err
		}
		externalID = resp.ID
		if resp.CopyPasteCode != "" {
			payload = resp.CopyPasteCode
		}
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	charge := models.PIXPayment{
		InstallmentID: inst.ID,
		TxID:          txid,
		Status:        models.PIXStatusPending,
		Amount:        amount,
		CopyPasteCode: payload,
		QRCodeImage:   base64.StdEncoding.EncodeToString(png),
		ExpiresAt:     time.Now().Add(pixChargeTTL),
		ExternalID:    externalID,
	}
	if err := s.db.WithContext(ctx).Create(&charge).Error; err != nil {
		return nil, err
	}
	return &charge, nil
}

// GetCharge returns the charge for polling, expiring it first when its window
// has passed.
func (s *PIXService) GetCharge(ctx context.Context, txid string) (*models.PIXPayment, error) {
	var charge models.PIXPayment
	if err := s.db.WithContext(ctx).Where("tx_id = ?", txid).First(&charge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("pix charge")
		}
		return nil, err
	}

	if charge.Status == models.PIXStatusPending && time.Now().After(charge.ExpiresAt) {
		charge.Status = models.PIXStatusExpired
		if err := s.db.WithContext(ctx).Save(&charge).Error; err != nil {
			return nil, err
		}
	}
	return &charge, nil
}

// lockPIXCharge loads a charge for update, same locking rules as
// lockInstallment.
func lockPIXCharge(tx *gorm.DB, txid string) (*models.PIXPayment, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var charge models.PIXPayment
	if err := query.Where("tx_id = ?", txid).First(&charge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("pix charge")
		}
		return nil, err
	}
	return &charge, nil
}

// MarkPaid settles a pending charge and applies the payment to its
// installment in one transaction. The charge only becomes paid once the
// ledger write succeeds, so a charge whose installment stopped being payable
// (waived, cancelled) stays pending and the error surfaces to the caller.
// Called from the provider webhook, or from SimulatePaid in simulated mode.
func (s *PIXService) MarkPaid(ctx context.Context, txid, actor string) (*models.PIXPayment, error) {
	var charge *models.PIXPayment
	var inst *models.PaymentInstallment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		charge, err = lockPIXCharge(tx, txid)
		if err != nil {
			return err
		}
		if charge.Terminal() {
			return NewValidationError("pix charge is already %s", charge.Status)
		}
		if time.Now().After(charge.ExpiresAt) {
			return NewValidationError("pix charge is expired")
		}

		inst, err = s.billing.processPaymentTx(tx, charge.InstallmentID, charge.Amount, "pix", "pix charge "+charge.TxID, actor)
		if err != nil {
			return err
		}

		now := time.Now()
		charge.Status = models.PIXStatusPaid
		charge.PaidAt = &now
		return tx.Save(charge).Error
	})
	if err != nil {
		return nil, err
	}

	s.billing.notifier.PaymentReceived(ctx, inst, charge.Amount, "pix")
	return charge, nil
}

// MarkClosed records a terminal provider status (cancelled, expired, failed)
// on a charge. Charges already terminal are left untouched so replayed
// webhooks are harmless.
func (s *PIXService) MarkClosed(ctx context.Context, txid string, status models.PIXStatus) (*models.PIXPayment, error) {
	var charge *models.PIXPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		charge, err = lockPIXCharge(tx, txid)
		if err != nil {
			return err
		}
		if charge.Terminal() {
			return nil
		}
		charge.Status = status
		return tx.Save(charge).Error
	})
	if err != nil {
		return nil, err
	}
	return charge, nil
}

// SimulatePaid settles a charge in simulated mode only
func (s *PIXService) SimulatePaid(ctx context.Context, txid string) (*models.PIXPayment, error) {
	if !s.Simulated() {
		return nil, NewValidationError("simulate-pay is only available without a PIX provider configured")
	}
	return s.MarkPaid(ctx, txid, "simulated")
}
