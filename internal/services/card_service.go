package services

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventreg_app/internal/models"
)

// CardService fronts the card gateway. Without STRIPE_API_KEY it hands out
// mocked payment intents that the test webhook can confirm.
type CardService struct {
	db      *gorm.DB
	billing *BillingService
	apiKey  string
}

func NewCardService(db *gorm.DB, billing *BillingService) *CardService {
	apiKey := os.Getenv("STRIPE_API_KEY")
	if apiKey != "" {
		stripe.Key = apiKey
	}
	return &CardService{db: db, billing: billing, apiKey: apiKey}
}

// Mocked reports whether the service runs without a gateway key
func (s *CardService) Mocked() bool {
	return s.apiKey == ""
}

// CreateIntent opens a card payment intent for an installment's outstanding
// amount (or a smaller partial amount when given).
func (s *CardService) CreateIntent(ctx context.Context, installmentID uint, amount decimal.Decimal) (*models.CardPayment, error) {
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

	intentID := "pi_mock_" + uuid.New().String()
	clientSecret := intentID + "_secret"
	if !s.Mocked() {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(amount.Mul(decimal.NewFromInt(100)).IntPart()),
			Currency: stripe.String(string(stripe.CurrencyBRL)),
		}
		params.AddMetadata("installment_id", strconv.FormatUint(uint64(inst.ID), 10))
		intent, err := paymentintent.New(params)
		if err != nil {
			return nil, err
		}
		intentID = intent.ID
		clientSecret = intent.ClientSecret
	}

	payment := models.CardPayment{
		InstallmentID: inst.ID,
		IntentID:      intentID,
		ClientSecret:  clientSecret,
		Status:        models.CardStatusPending,
		Amount:        amount,
	}
	if err := s.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// lockCardPayment loads an intent for update, same locking rules as
// lockInstallment.
func lockCardPayment(tx *gorm.DB, intentID string) (*models.CardPayment, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var payment models.CardPayment
	if err := query.Where("intent_id = ?", intentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("card payment")
		}
		return nil, err
	}
	return &payment, nil
}

// MarkSucceeded settles a pending intent and applies the payment to its
// installment in one transaction. The intent only becomes succeeded once the
// ledger write succeeds. Called from the gateway webhook.
func (s *CardService) MarkSucceeded(ctx context.Context, intentID, actor string) (*models.CardPayment, error) {
	var payment *models.CardPayment
	var inst *models.PaymentInstallment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = lockCardPayment(tx, intentID)
		if err != nil {
			return err
		}
		if payment.Status != models.CardStatusPending {
			return NewValidationError("card payment is already %s", payment.Status)
		}

		inst, err = s.billing.processPaymentTx(tx, payment.InstallmentID, payment.Amount, "card", "card intent "+payment.IntentID, actor)
		if err != nil {
			return err
		}

		payment.Status = models.CardStatusSucceeded
		return tx.Save(payment).Error
	})
	if err != nil {
		return nil, err
	}

	s.billing.notifier.PaymentReceived(ctx, inst, payment.Amount, "card")
	return payment, nil
}

// MarkClosed records a failed or cancelled gateway status on a pending
// intent. Intents already settled or closed are left untouched so replayed
// webhooks are harmless.
func (s *CardService) MarkClosed(ctx context.Context, intentID, gatewayStatus string) (*models.CardPayment, error) {
	status := models.CardStatusFailed
	if gatewayStatus == "cancelled" {
		status = models.CardStatusCancelled
	}

	var payment *models.CardPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = lockCardPayment(tx, intentID)
		if err != nil {
			return err
		}
		if payment.Status != models.CardStatusPending {
			return nil
		}
		payment.Status = status
		return tx.Save(payment).Error
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}
