package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventreg_app/internal/models"
)

func TestBuildInstallmentsSumsToTotal(t *testing.T) {
	first := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		total   string
		count   int
		amounts []string
	}{
		{"even split", "900.00", 3, []string{"300.00", "300.00", "300.00"}},
		{"remainder on last", "100.00", 3, []string{"33.33", "33.33", "33.34"}},
		{"single installment", "250.50", 1, []string{"250.50"}},
		{"cent total", "0.01", 2, []string{"0.00", "0.01"}},
		{"repeating decimal", "1000.00", 7, []string{"142.85", "142.85", "142.85", "142.85", "142.85", "142.85", "142.90"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := models.PaymentPlan{
				InstallmentCount:     tt.count,
				InstallmentInterval:  models.IntervalMonthly,
				FirstInstallmentDate: first,
			}
			reg := models.Registration{TotalAmount: mustDecimal(t, tt.total)}

			installments, err := BuildInstallments(&plan, &reg)
			require.NoError(t, err)
			require.Len(t, installments, tt.count)

			sum := decimal.Zero
			for i, inst := range installments {
				assert.Equal(t, i+1, inst.InstallmentNumber)
				assert.Equal(t, models.InstallmentStatusPending, inst.Status)
				assert.True(t, inst.OriginalAmount.Equal(mustDecimal(t, tt.amounts[i])),
					"installment %d: want %s, got %s", i+1, tt.amounts[i], inst.OriginalAmount)
				assert.True(t, inst.RemainingAmount.Equal(inst.OriginalAmount))
				assert.True(t, inst.PaidAmount.IsZero())
				sum = sum.Add(inst.OriginalAmount)
			}
			assert.True(t, sum.Equal(reg.TotalAmount), "sum %s != total %s", sum, reg.TotalAmount)
		})
	}
}

func TestBuildInstallmentsDueDates(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("monthly follows the calendar", func(t *testing.T) {
		plan := models.PaymentPlan{
			InstallmentCount:     3,
			InstallmentInterval:  models.IntervalMonthly,
			FirstInstallmentDate: first,
		}
		reg := models.Registration{TotalAmount: mustDecimal(t, "900.00")}

		installments, err := BuildInstallments(&plan, &reg)
		require.NoError(t, err)

		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), installments[0].DueDate)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), installments[1].DueDate)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), installments[2].DueDate)
	})

	t.Run("weekly steps by seven days", func(t *testing.T) {
		plan := models.PaymentPlan{
			InstallmentCount:     2,
			InstallmentInterval:  models.IntervalWeekly,
			FirstInstallmentDate: first,
		}
		reg := models.Registration{TotalAmount: mustDecimal(t, "100.00")}

		installments, err := BuildInstallments(&plan, &reg)
		require.NoError(t, err)

		assert.Equal(t, first, installments[0].DueDate)
		assert.Equal(t, first.AddDate(0, 0, 7), installments[1].DueDate)
	})

	t.Run("biweekly steps by fourteen days", func(t *testing.T) {
		plan := models.PaymentPlan{
			InstallmentCount:     2,
			InstallmentInterval:  models.IntervalBiweekly,
			FirstInstallmentDate: first,
		}
		reg := models.Registration{TotalAmount: mustDecimal(t, "100.00")}

		installments, err := BuildInstallments(&plan, &reg)
		require.NoError(t, err)

		assert.Equal(t, first.AddDate(0, 0, 14), installments[1].DueDate)
	})
}

func TestBuildInstallmentsValidation(t *testing.T) {
	first := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("rejects zero count", func(t *testing.T) {
		plan := models.PaymentPlan{InstallmentCount: 0, FirstInstallmentDate: first}
		reg := models.Registration{TotalAmount: mustDecimal(t, "100.00")}

		_, err := BuildInstallments(&plan, &reg)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("rejects non-positive total", func(t *testing.T) {
		plan := models.PaymentPlan{InstallmentCount: 3, FirstInstallmentDate: first}
		reg := models.Registration{TotalAmount: decimal.Zero}

		_, err := BuildInstallments(&plan, &reg)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestGenerateInstallmentsPersists(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	reg, installments := seedSchedule(t, db, "900.00", 3, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, installments, 3)

	var stored []models.PaymentInstallment
	require.NoError(t, db.Where("registration_id = ?", reg.ID).Order("installment_number asc").Find(&stored).Error)
	require.Len(t, stored, 3)
	for i, inst := range stored {
		assert.Equal(t, i+1, inst.InstallmentNumber)
		assert.True(t, inst.OriginalAmount.Equal(mustDecimal(t, "300.00")))
	}

	has, err := NewPlanService(db).HasGeneratedInstallments(ctx, stored[0].PaymentPlanID)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = NewPlanService(db).HasGeneratedInstallments(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, has)
}
