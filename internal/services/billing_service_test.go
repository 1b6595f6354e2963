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

func TestProcessPaymentPartial(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "900.00", 3, time.Now().AddDate(0, 1, 0))
	inst := installments[0]

	got, err := billing.ProcessPayment(ctx, inst.ID, mustDecimal(t, "100.00"), "cash", "first half", "organizer")
	require.NoError(t, err)

	assert.True(t, got.PaidAmount.Equal(mustDecimal(t, "100.00")))
	assert.True(t, got.RemainingAmount.Equal(mustDecimal(t, "200.00")))
	assert.Equal(t, models.InstallmentStatusPending, got.Status)
	assert.Equal(t, "partial", got.EffectiveStatus())
	assert.Nil(t, got.PaidDate)

	var txns []models.PaymentTransaction
	require.NoError(t, db.Where("installment_id = ?", inst.ID).Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TransactionTypePayment, txns[0].Type)
	assert.Equal(t, "cash", txns[0].PaymentMethod)
	assert.True(t, txns[0].Amount.Equal(mustDecimal(t, "100.00")))
}

func TestProcessPaymentSettles(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "900.00", 3, time.Now().AddDate(0, 1, 0))
	inst := installments[0]

	_, err := billing.ProcessPayment(ctx, inst.ID, mustDecimal(t, "100.00"), "pix", "", "organizer")
	require.NoError(t, err)

	got, err := billing.ProcessPayment(ctx, inst.ID, mustDecimal(t, "200.00"), "pix", "", "organizer")
	require.NoError(t, err)

	assert.Equal(t, models.InstallmentStatusPaid, got.Status)
	assert.True(t, got.RemainingAmount.IsZero())
	require.NotNil(t, got.PaidDate)
	assert.Equal(t, "paid", got.EffectiveStatus())

	// Two ledger entries for the two payments
	var count int64
	require.NoError(t, db.Model(&models.PaymentTransaction{}).Where("installment_id = ?", inst.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestProcessPaymentOverpaymentClampsAtZero(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))

	got, err := billing.ProcessPayment(ctx, installments[0].ID, mustDecimal(t, "350.00"), "cash", "", "organizer")
	require.NoError(t, err)

	assert.True(t, got.RemainingAmount.IsZero(), "remaining must clamp at zero, got %s", got.RemainingAmount)
	assert.Equal(t, models.InstallmentStatusPaid, got.Status)
	assert.True(t, got.PaidAmount.Equal(mustDecimal(t, "350.00")))
}

func TestProcessPaymentRejections(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))
	inst := installments[0]

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := billing.ProcessPayment(ctx, inst.ID, decimal.Zero, "cash", "", "organizer")
		require.Error(t, err)
		assert.True(t, IsValidation(err))

		_, err = billing.ProcessPayment(ctx, inst.ID, mustDecimal(t, "-5.00"), "cash", "", "organizer")
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("unknown installment", func(t *testing.T) {
		_, err := billing.ProcessPayment(ctx, 9999, mustDecimal(t, "10.00"), "cash", "", "organizer")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("waived installment", func(t *testing.T) {
		_, err := billing.Waive(ctx, inst.ID, "sponsored", "organizer")
		require.NoError(t, err)

		_, err = billing.ProcessPayment(ctx, inst.ID, mustDecimal(t, "10.00"), "cash", "", "organizer")
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestApplyDiscount(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "600.00", 2, time.Now().AddDate(0, 1, 0))
	inst := installments[0]

	got, err := billing.ApplyDiscount(ctx, inst.ID, mustDecimal(t, "50.00"), "early bird", "organizer")
	require.NoError(t, err)

	assert.True(t, got.DiscountAmount.Equal(mustDecimal(t, "50.00")))
	assert.True(t, got.RemainingAmount.Equal(mustDecimal(t, "250.00")))
	assert.Equal(t, models.InstallmentStatusPending, got.Status)

	// A discount covering the full balance settles the installment
	got, err = billing.ApplyDiscount(ctx, inst.ID, mustDecimal(t, "250.00"), "fully sponsored", "organizer")
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, got.Status)
	assert.True(t, got.RemainingAmount.IsZero())

	var txns []models.PaymentTransaction
	require.NoError(t, db.Where("installment_id = ?", inst.ID).Find(&txns).Error)
	require.Len(t, txns, 2)
	for _, txn := range txns {
		assert.Equal(t, models.TransactionTypeAdjustment, txn.Type)
	}
}

func TestApplyLateFee(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))
	inst := installments[0]

	got, err := billing.ApplyLateFee(ctx, inst.ID, mustDecimal(t, "15.00"), "manual fee", "organizer")
	require.NoError(t, err)

	assert.True(t, got.LateFeeAmount.Equal(mustDecimal(t, "15.00")))
	assert.True(t, got.RemainingAmount.Equal(mustDecimal(t, "315.00")))

	_, err = billing.ApplyLateFee(ctx, inst.ID, mustDecimal(t, "-1.00"), "", "organizer")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestWaiveRecordsOutstanding(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))
	inst := installments[0]

	_, err := billing.ProcessPayment(ctx, inst.ID, mustDecimal(t, "100.00"), "cash", "", "organizer")
	require.NoError(t, err)

	got, err := billing.Waive(ctx, inst.ID, "hardship", "organizer")
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusWaived, got.Status)
	assert.Equal(t, "waived", got.EffectiveStatus())

	var txn models.PaymentTransaction
	require.NoError(t, db.Where("installment_id = ? AND type = ?", inst.ID, models.TransactionTypeWaiver).First(&txn).Error)
	assert.True(t, txn.Amount.Equal(mustDecimal(t, "200.00")), "waiver records the outstanding amount, got %s", txn.Amount)

	// Waiving again is rejected
	_, err = billing.Waive(ctx, inst.ID, "", "organizer")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestCancelRejectsPaid(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "200.00", 2, time.Now().AddDate(0, 1, 0))

	got, err := billing.Cancel(ctx, installments[0].ID, "registration cancelled", "organizer")
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusCancelled, got.Status)

	_, err = billing.ProcessPayment(ctx, installments[1].ID, mustDecimal(t, "100.00"), "cash", "", "organizer")
	require.NoError(t, err)
	_, err = billing.Cancel(ctx, installments[1].ID, "", "organizer")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestListByRegistrationOrdersByNumber(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	reg, _ := seedSchedule(t, db, "900.00", 3, time.Now().AddDate(0, 1, 0))

	installments, err := billing.ListByRegistration(ctx, reg.ID)
	require.NoError(t, err)
	require.Len(t, installments, 3)
	for i, inst := range installments {
		assert.Equal(t, i+1, inst.InstallmentNumber)
	}

	_, err = billing.ListByRegistration(ctx, 9999)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestListOverdueFiltersByEvent(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	lateFees := NewLateFeeService(db, nil)
	ctx := context.Background()

	pastDue := time.Now().AddDate(0, 0, -10)
	regA, _ := seedSchedule(t, db, "300.00", 1, pastDue)
	regB, _ := seedSchedule(t, db, "500.00", 1, pastDue)

	_, err := lateFees.Recalculate(ctx, nil)
	require.NoError(t, err)

	all, err := billing.ListOverdue(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := billing.ListOverdue(ctx, &regA.EventID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, regA.ID, scoped[0].RegistrationID)
	assert.NotEqual(t, regB.ID, scoped[0].RegistrationID)
}
