package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventreg_app/internal/models"
)

// BillingService owns all mutations of the installment ledger. Each operation
// runs in a single database transaction that locks the installment row, so
// concurrent mutations on the same installment serialize and both apply.
type BillingService struct {
	db       *gorm.DB
	notifier *Notifier
}

func NewBillingService(db *gorm.DB, notifier *Notifier) *BillingService {
	return &BillingService{db: db, notifier: notifier}
}

// lockInstallment loads an installment for update. SQLite (used in tests) has
// no FOR UPDATE; its writes serialize on the database file instead.
func lockInstallment(tx *gorm.DB, id uint) (*models.PaymentInstallment, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var inst models.PaymentInstallment
	if err := query.First(&inst, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("installment")
		}
		return nil, err
	}
	return &inst, nil
}

// settle recomputes the remaining amount and applies the paid transition.
// status becomes paid exactly when nothing remains; a partial payment leaves
// the stored status (including overdue) untouched.
func settle(inst *models.PaymentInstallment, now time.Time) {
	inst.RemainingAmount = inst.ComputeRemaining()
	if inst.RemainingAmount.IsZero() && inst.Status != models.InstallmentStatusPaid {
		inst.Status = models.InstallmentStatusPaid
		inst.PaidDate = &now
	}
}

// ProcessPayment applies a (possibly partial) payment to an installment and
// appends a payment transaction.
func (s *BillingService) ProcessPayment(ctx context.Context, installmentID uint, amount decimal.Decimal, method, notes, actor string) (*models.PaymentInstallment, error) {
	var result *models.PaymentInstallment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.processPaymentTx(tx, installmentID, amount, method, notes, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Fire-and-forget; a failed push never rolls back the payment.
	s.notifier.PaymentReceived(ctx, result, amount, method)

	return result, nil
}

// processPaymentTx is the ledger write behind ProcessPayment, running inside
// the caller's transaction. The gateway settle paths use it so the charge
// transition and the payment transaction commit or roll back together.
func (s *BillingService) processPaymentTx(tx *gorm.DB, installmentID uint, amount decimal.Decimal, method, notes, actor string) (*models.PaymentInstallment, error) {
	if !amount.IsPositive() {
		return nil, NewValidationError("payment amount must be positive, got %s", amount.String())
	}

	inst, err := lockInstallment(tx, installmentID)
	if err != nil {
		return nil, err
	}
	if !inst.Open() {
		return nil, NewValidationError("installment is %s and cannot receive payments", inst.Status)
	}

	now := time.Now()
	inst.PaidAmount = inst.PaidAmount.Add(amount)
	inst.UpdatedBy = actor
	if notes != "" {
		inst.Notes = notes
	}
	settle(inst, now)

	if err := tx.Save(inst).Error; err != nil {
		return nil, err
	}

	txn := models.PaymentTransaction{
		InstallmentID: inst.ID,
		Amount:        amount,
		Type:          models.TransactionTypePayment,
		PaymentMethod: method,
		TransactionID: uuid.New().String(),
		Notes:         notes,
		CreatedBy:     actor,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, err
	}
	return inst, nil
}

// ApplyDiscount increments the discount on an installment and appends an
// adjustment transaction. A discount can settle the installment.
func (s *BillingService) ApplyDiscount(ctx context.Context, installmentID uint, amount decimal.Decimal, notes, actor string) (*models.PaymentInstallment, error) {
	if amount.IsNegative() {
		return nil, NewValidationError("discount amount cannot be negative, got %s", amount.String())
	}
	return s.adjust(ctx, installmentID, notes, actor, func(inst *models.PaymentInstallment) {
		inst.DiscountAmount = inst.DiscountAmount.Add(amount)
	}, amount)
}

// ApplyLateFee increments the late fee on an installment and appends an
// adjustment transaction.
func (s *BillingService) ApplyLateFee(ctx context.Context, installmentID uint, amount decimal.Decimal, notes, actor string) (*models.PaymentInstallment, error) {
	if amount.IsNegative() {
		return nil, NewValidationError("late fee amount cannot be negative, got %s", amount.String())
	}
	return s.adjust(ctx, installmentID, notes, actor, func(inst *models.PaymentInstallment) {
		inst.LateFeeAmount = inst.LateFeeAmount.Add(amount)
	}, amount)
}

func (s *BillingService) adjust(ctx context.Context, installmentID uint, notes, actor string, mutate func(*models.PaymentInstallment), amount decimal.Decimal) (*models.PaymentInstallment, error) {
	var result *models.PaymentInstallment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inst, err := lockInstallment(tx, installmentID)
		if err != nil {
			return err
		}
		if !inst.Open() {
			return NewValidationError("installment is %s and cannot be adjusted", inst.Status)
		}

		mutate(inst)
		inst.UpdatedBy = actor
		if notes != "" {
			inst.Notes = notes
		}
		settle(inst, time.Now())

		if err := tx.Save(inst).Error; err != nil {
			return err
		}

		txn := models.PaymentTransaction{
			InstallmentID: inst.ID,
			Amount:        amount,
			Type:          models.TransactionTypeAdjustment,
			TransactionID: uuid.New().String(),
			Notes:         notes,
			CreatedBy:     actor,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		result = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Waive excuses an installment from payment without marking it paid. The
// outstanding amount at waive time is recorded on the waiver transaction.
func (s *BillingService) Waive(ctx context.Context, installmentID uint, notes, actor string) (*models.PaymentInstallment, error) {
	return s.close(ctx, installmentID, notes, actor, models.InstallmentStatusWaived, models.TransactionTypeWaiver)
}

// Cancel marks an installment cancelled. Cancellation is a status, not a
// removal; the row and its transactions stay.
func (s *BillingService) Cancel(ctx context.Context, installmentID uint, notes, actor string) (*models.PaymentInstallment, error) {
	return s.close(ctx, installmentID, notes, actor, models.InstallmentStatusCancelled, models.TransactionTypeAdjustment)
}

func (s *BillingService) close(ctx context.Context, installmentID uint, notes, actor string, status models.InstallmentStatus, txnType models.TransactionType) (*models.PaymentInstallment, error) {
	var result *models.PaymentInstallment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inst, err := lockInstallment(tx, installmentID)
		if err != nil {
			return err
		}
		if inst.Status == models.InstallmentStatusPaid {
			return NewValidationError("installment is already paid")
		}
		if !inst.Open() {
			return NewValidationError("installment is already %s", inst.Status)
		}

		outstanding := inst.RemainingAmount
		inst.Status = status
		inst.UpdatedBy = actor
		if notes != "" {
			inst.Notes = notes
		}

		if err := tx.Save(inst).Error; err != nil {
			return err
		}

		txn := models.PaymentTransaction{
			InstallmentID: inst.ID,
			Amount:        outstanding,
			Type:          txnType,
			TransactionID: uuid.New().String(),
			Notes:         notes,
			CreatedBy:     actor,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		result = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListByRegistration returns a registration's installments ordered by number
func (s *BillingService) ListByRegistration(ctx context.Context, registrationID uint) ([]models.PaymentInstallment, error) {
	var reg models.Registration
	if err := s.db.WithContext(ctx).First(&reg, registrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("registration")
		}
		return nil, err
	}

	var installments []models.PaymentInstallment
	err := s.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("installment_number asc").
		Find(&installments).Error
	return installments, err
}

// ListOverdue returns overdue installments, optionally filtered to one event
func (s *BillingService) ListOverdue(ctx context.Context, eventID *uint) ([]models.PaymentInstallment, error) {
	query := s.db.WithContext(ctx).
		Model(&models.PaymentInstallment{}).
		Preload("Registration").
		Where("payment_installments.status = ?", models.InstallmentStatusOverdue)

	if eventID != nil {
		query = query.
			Joins("JOIN registrations ON registrations.id = payment_installments.registration_id").
			Where("registrations.event_id = ?", *eventID)
	}

	var installments []models.PaymentInstallment
	err := query.Order("payment_installments.due_date asc").Find(&installments).Error
	return installments, err
}
