package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
)

// LateFeeService scans past-due unpaid installments, flags them overdue and
// applies the configured late-fee policy. Re-running the scan never applies a
// fee twice: LateFeeAppliedAt marks installments whose policy has already been
// evaluated.
type LateFeeService struct {
	db       *gorm.DB
	notifier *Notifier
}

func NewLateFeeService(db *gorm.DB, notifier *Notifier) *LateFeeService {
	return &LateFeeService{db: db, notifier: notifier}
}

// FeeFromPolicy evaluates a late-fee policy blob against the outstanding
// amount. Supported shapes:
//
//	{"type":"flat","amount":"10.00"}
//	{"type":"percentage","rate":"2.5"}
//
// A missing or malformed policy yields a zero fee.
func FeeFromPolicy(policy datatypes.JSONMap, remaining decimal.Decimal) decimal.Decimal {
	if policy == nil {
		return decimal.Zero
	}

	typ, _ := policy["type"].(string)
	switch typ {
	case "flat":
		if raw, ok := policy["amount"].(string); ok {
			if amount, err := decimal.NewFromString(raw); err == nil && amount.IsPositive() {
				return amount.Round(2)
			}
		}
	case "percentage":
		if raw, ok := policy["rate"].(string); ok {
			if rate, err := decimal.NewFromString(raw); err == nil && rate.IsPositive() {
				return remaining.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
			}
		}
	}
	return decimal.Zero
}

// Recalculate flags past-due unpaid installments as overdue and applies the
// late-fee policy to each exactly once. Returns the number of installments
// updated. When eventID is nil the scan covers all events.
func (s *LateFeeService) Recalculate(ctx context.Context, eventID *uint) (int, error) {
	now := time.Now()

	query := s.db.WithContext(ctx).
		Model(&models.PaymentInstallment{}).
		Where("payment_installments.status NOT IN ?", []models.InstallmentStatus{
			models.InstallmentStatusPaid,
			models.InstallmentStatusCancelled,
			models.InstallmentStatusWaived,
		}).
		Where("payment_installments.due_date < ?", now)

	if eventID != nil {
		query = query.
			Joins("JOIN registrations ON registrations.id = payment_installments.registration_id").
			Where("registrations.event_id = ?", *eventID)
	}

	var candidateIDs []uint
	if err := query.Pluck("payment_installments.id", &candidateIDs).Error; err != nil {
		return 0, err
	}

	updated := 0
	for _, id := range candidateIDs {
		changed, err := s.recalculateOne(ctx, id, now)
		if err != nil {
			log.Printf("late-fee recalculation failed for installment %d: %v", id, err)
			continue
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}

// recalculateOne processes a single installment in its own transaction
func (s *LateFeeService) recalculateOne(ctx context.Context, installmentID uint, now time.Time) (bool, error) {
	changed := false
	var flagged *models.PaymentInstallment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inst, err := lockInstallment(tx, installmentID)
		if err != nil {
			return err
		}

		// Re-check under the lock; a concurrent payment may have settled it
		if !inst.Open() || inst.Status == models.InstallmentStatusPaid || !inst.DueDate.Before(now) {
			return nil
		}

		wasOverdue := inst.Status == models.InstallmentStatusOverdue
		inst.Status = models.InstallmentStatusOverdue

		if inst.LateFeeAppliedAt == nil {
			policy, err := s.resolvePolicy(tx, inst)
			if err != nil {
				return err
			}

			fee := FeeFromPolicy(policy, inst.RemainingAmount)
			if fee.IsPositive() {
				inst.LateFeeAmount = inst.LateFeeAmount.Add(fee)
				settle(inst, now)

				txn := models.PaymentTransaction{
					InstallmentID: inst.ID,
					Amount:        fee,
					Type:          models.TransactionTypeAdjustment,
					TransactionID: uuid.New().String(),
					Notes:         "late fee",
					CreatedBy:     "system",
				}
				if err := tx.Create(&txn).Error; err != nil {
					return err
				}
			}
			inst.LateFeeAppliedAt = &now
			changed = true
		} else if !wasOverdue {
			changed = true
		}

		if !changed {
			return nil
		}

		if err := tx.Save(inst).Error; err != nil {
			return err
		}
		if !wasOverdue {
			flagged = inst
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if flagged != nil {
		s.notifier.InstallmentOverdue(ctx, flagged)
	}
	return changed, nil
}

// resolvePolicy prefers the plan's late-fee policy, falling back to the event's
func (s *LateFeeService) resolvePolicy(tx *gorm.DB, inst *models.PaymentInstallment) (datatypes.JSONMap, error) {
	var plan models.PaymentPlan
	if err := tx.First(&plan, inst.PaymentPlanID).Error; err == nil && len(plan.LateFeePolicy) > 0 {
		return plan.LateFeePolicy, nil
	}

	var reg models.Registration
	if err := tx.First(&reg, inst.RegistrationID).Error; err != nil {
		return nil, err
	}
	var event models.Event
	if err := tx.First(&event, reg.EventID).Error; err != nil {
		return nil, err
	}
	return event.LateFeePolicy, nil
}
