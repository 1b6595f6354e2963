package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
)

func newTestPIX(db *gorm.DB) *PIXService {
	return NewPIXService(db, NewBillingService(db, nil))
}

func TestBuildCopyPasteCode(t *testing.T) {
	tests := []struct {
		name   string
		txid   string
		amount string
		want   string
	}{
		{"whole amount", "abc-123", "300.00", "00020126580014br.gov.bcb.pix0136abc-1235204000053039865406300.006304"},
		{"cents", "tx", "0.01", "00020126580014br.gov.bcb.pix0136tx52040000530398654060.016304"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCopyPasteCode(tt.txid, mustDecimal(t, tt.amount))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateChargeSimulated(t *testing.T) {
	t.Setenv("PIX_API_KEY", "")
	db := openTestDB(t)
	pix := newTestPIX(db)
	ctx := context.Background()

	require.True(t, pix.Simulated())

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))

	charge, err := pix.CreateCharge(ctx, installments[0].ID, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, models.PIXStatusPending, charge.Status)
	assert.True(t, charge.Amount.Equal(mustDecimal(t, "300.00")), "zero amount charges the full outstanding balance")
	assert.NotEmpty(t, charge.TxID)
	assert.NotEmpty(t, charge.CopyPasteCode)
	assert.NotEmpty(t, charge.QRCodeImage)
	assert.True(t, charge.ExpiresAt.After(time.Now()))
}

func TestCreateChargeValidation(t *testing.T) {
	t.Setenv("PIX_API_KEY", "")
	db := openTestDB(t)
	pix := newTestPIX(db)
	billing := NewBillingService(db, nil)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))
	inst := installments[0]

	t.Run("unknown installment", func(t *testing.T) {
		_, err := pix.CreateCharge(ctx, 9999, decimal.Zero)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("amount above outstanding", func(t *testing.T) {
		_, err := pix.CreateCharge(ctx, inst.ID, mustDecimal(t, "400.00"))
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := pix.CreateCharge(ctx, inst.ID, mustDecimal(t, "-10.00"))
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("paid installment", func(t *testing.T) {
		_, err := billing.ProcessPayment(ctx, inst.ID, mustDecimal(t, "300.00"), "cash", "", "organizer")
		require.NoError(t, err)

		_, err = pix.CreateCharge(ctx, inst.ID, decimal.Zero)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestSimulatePaidSettlesCharge(t *testing.T) {
	t.Setenv("PIX_API_KEY", "")
	db := openTestDB(t)
	pix := newTestPIX(db)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))

	charge, err := pix.CreateCharge(ctx, installments[0].ID, mustDecimal(t, "150.00"))
	require.NoError(t, err)

	paid, err := pix.SimulatePaid(ctx, charge.TxID)
	require.NoError(t, err)
	assert.Equal(t, models.PIXStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	// The charge settlement and the ledger write land together
	inst := reload(t, db, installments[0].ID)
	assert.True(t, inst.PaidAmount.Equal(mustDecimal(t, "150.00")))
	assert.True(t, inst.IsPartiallyPaid())

	var txns []models.PaymentTransaction
	require.NoError(t, db.Where("installment_id = ?", inst.ID).Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TransactionTypePayment, txns[0].Type)
	assert.Equal(t, "pix", txns[0].PaymentMethod)

	// A settled charge cannot be paid again
	_, err = pix.SimulatePaid(ctx, charge.TxID)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestMarkPaidAfterWaiveLeavesChargePending(t *testing.T) {
	t.Setenv("PIX_API_KEY", "")
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	pix := NewPIXService(db, billing)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))

	charge, err := pix.CreateCharge(ctx, installments[0].ID, decimal.Zero)
	require.NoError(t, err)

	_, err = billing.Waive(ctx, installments[0].ID, "registration withdrawn", "organizer")
	require.NoError(t, err)

	// The webhook arrives for an installment that is no longer payable. The
	// whole settle rolls back: the charge must not end up paid while the
	// ledger has no matching payment.
	_, err = pix.MarkPaid(ctx, charge.TxID, "pix-webhook")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var got models.PIXPayment
	require.NoError(t, db.Where("tx_id = ?", charge.TxID).First(&got).Error)
	assert.Equal(t, models.PIXStatusPending, got.Status)
	assert.Nil(t, got.PaidAt)

	var count int64
	require.NoError(t, db.Model(&models.PaymentTransaction{}).
		Where("installment_id = ? AND type = ?", installments[0].ID, models.TransactionTypePayment).
		Count(&count).Error)
	assert.Zero(t, count)

	// The retry hits the same rejection, not a bogus "already paid"
	_, err = pix.MarkPaid(ctx, charge.TxID, "pix-webhook")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// The provider can still close the dangling charge
	closed, err := pix.MarkClosed(ctx, charge.TxID, models.PIXStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.PIXStatusCancelled, closed.Status)
}

func TestMarkClosedIgnoresTerminalCharges(t *testing.T) {
	t.Setenv("PIX_API_KEY", "")
	db := openTestDB(t)
	pix := newTestPIX(db)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))

	charge, err := pix.CreateCharge(ctx, installments[0].ID, decimal.Zero)
	require.NoError(t, err)

	_, err = pix.SimulatePaid(ctx, charge.TxID)
	require.NoError(t, err)

	// A late "cancelled" webhook never un-pays the charge
	got, err := pix.MarkClosed(ctx, charge.TxID, models.PIXStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.PIXStatusPaid, got.Status)
}

func TestSimulatePaidRequiresSimulatedMode(t *testing.T) {
	t.Setenv("PIX_API_KEY", "live-key")
	db := openTestDB(t)
	pix := newTestPIX(db)

	require.False(t, pix.Simulated())

	_, err := pix.SimulatePaid(context.Background(), "whatever")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestGetChargeExpires(t *testing.T) {
	t.Setenv("PIX_API_KEY", "")
	db := openTestDB(t)
	pix := newTestPIX(db)
	ctx := context.Background()

	_, installments := seedSchedule(t, db, "300.00", 1, time.Now().AddDate(0, 1, 0))

	charge, err := pix.CreateCharge(ctx, installments[0].ID, decimal.Zero)
	require.NoError(t, err)

	// Force the window into the past
	require.NoError(t, db.Model(&models.PIXPayment{}).
		Where("tx_id = ?", charge.TxID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	got, err := pix.GetCharge(ctx, charge.TxID)
	require.NoError(t, err)
	assert.Equal(t, models.PIXStatusExpired, got.Status)

	// An expired charge is terminal
	_, err = pix.SimulatePaid(ctx, charge.TxID)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = pix.GetCharge(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
