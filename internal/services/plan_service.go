package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
)

type PlanService struct {
	db *gorm.DB
}

func NewPlanService(db *gorm.DB) *PlanService {
	return &PlanService{db: db}
}

// BuildInstallments splits a registration's total across the plan's
// installments. The split is even, rounded down to cents, with the rounding
// remainder added to the final installment so the sum matches the total
// exactly.
func BuildInstallments(plan *models.PaymentPlan, reg *models.Registration) ([]models.PaymentInstallment, error) {
	if plan.InstallmentCount < 1 {
		return nil, NewValidationError("installment count must be at least 1, got %d", plan.InstallmentCount)
	}
	if !reg.TotalAmount.IsPositive() {
		return nil, NewValidationError("registration total must be positive, got %s", reg.TotalAmount.String())
	}

	count := int64(plan.InstallmentCount)
	base := reg.TotalAmount.Div(decimal.NewFromInt(count)).Truncate(2)
	last := reg.TotalAmount.Sub(base.Mul(decimal.NewFromInt(count - 1)))

	installments := make([]models.PaymentInstallment, 0, plan.InstallmentCount)
	for i := 0; i < plan.InstallmentCount; i++ {
		amount := base
		if i == plan.InstallmentCount-1 {
			amount = last
		}
		installments = append(installments, models.PaymentInstallment{
			RegistrationID:    reg.ID,
			PaymentPlanID:     plan.ID,
			InstallmentNumber: i + 1,
			DueDate:           plan.DueDateAt(i),
			OriginalAmount:    amount,
			PaidAmount:        decimal.Zero,
			RemainingAmount:   amount,
			DiscountAmount:    decimal.Zero,
			LateFeeAmount:     decimal.Zero,
			Status:            models.InstallmentStatusPending,
		})
	}
	return installments, nil
}

// GenerateInstallments builds and persists the installment schedule for a
// registration
func (s *PlanService) GenerateInstallments(ctx context.Context, plan *models.PaymentPlan, reg *models.Registration) ([]models.PaymentInstallment, error) {
	installments, err := BuildInstallments(plan, reg)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

// HasGeneratedInstallments reports whether any installments reference the
// plan. A plan with generated installments is immutable.
func (s *PlanService) HasGeneratedInstallments(ctx context.Context, planID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PaymentInstallment{}).
		Where("payment_plan_id = ?", planID).
		Count(&count).Error
	return count > 0, err
}
