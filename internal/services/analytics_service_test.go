package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventreg_app/internal/models"
)

func TestForRegistrationEmptyScope(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsService(db, nil)
	ctx := context.Background()

	event := seedEvent(t, db, nil)
	plan := seedPlan(t, db, event.ID, 3, models.IntervalMonthly, time.Now().AddDate(0, 1, 0))
	reg := seedRegistration(t, db, event, nil, plan, "900.00")

	// No installments generated yet: every total is zero, no error
	summary, err := analytics.ForRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalExpected.IsZero())
	assert.True(t, summary.TotalPaid.IsZero())
	assert.True(t, summary.TotalRemaining.IsZero())
	assert.True(t, summary.OverdueAmount.IsZero())
	assert.Equal(t, 0, summary.InstallmentCount)

	_, err = analytics.ForRegistration(ctx, 9999)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestForRegistrationTotals(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	analytics := NewAnalyticsService(db, nil)
	ctx := context.Background()

	reg, installments := seedSchedule(t, db, "900.00", 3, time.Now().AddDate(0, 1, 0))

	_, err := billing.ProcessPayment(ctx, installments[0].ID, mustDecimal(t, "300.00"), "pix", "", "organizer")
	require.NoError(t, err)
	_, err = billing.ProcessPayment(ctx, installments[1].ID, mustDecimal(t, "100.00"), "cash", "", "organizer")
	require.NoError(t, err)

	summary, err := analytics.ForRegistration(ctx, reg.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.InstallmentCount)
	assert.Equal(t, 1, summary.PaidCount)
	assert.Equal(t, 2, summary.PendingCount)
	assert.Equal(t, 1, summary.PartialCount)
	assert.True(t, summary.TotalExpected.Equal(mustDecimal(t, "900.00")))
	assert.True(t, summary.TotalPaid.Equal(mustDecimal(t, "400.00")))
	assert.True(t, summary.TotalRemaining.Equal(mustDecimal(t, "500.00")))
}

func TestSummaryExcludesWaivedAndCancelled(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	analytics := NewAnalyticsService(db, nil)
	ctx := context.Background()

	reg, installments := seedSchedule(t, db, "900.00", 3, time.Now().AddDate(0, 1, 0))

	_, err := billing.Waive(ctx, installments[1].ID, "sponsored", "organizer")
	require.NoError(t, err)
	_, err = billing.Cancel(ctx, installments[2].ID, "dropped out", "organizer")
	require.NoError(t, err)

	summary, err := analytics.ForRegistration(ctx, reg.ID)
	require.NoError(t, err)

	// Waived and cancelled rows are counted but carry no money
	assert.Equal(t, 3, summary.InstallmentCount)
	assert.True(t, summary.TotalExpected.Equal(mustDecimal(t, "300.00")))
	assert.True(t, summary.TotalRemaining.Equal(mustDecimal(t, "300.00")))
}

func TestForEventAggregatesAcrossRegistrations(t *testing.T) {
	db := openTestDB(t)
	billing := NewBillingService(db, nil)
	lateFees := NewLateFeeService(db, nil)
	analytics := NewAnalyticsService(db, nil)
	ctx := context.Background()

	event := seedEvent(t, db, nil)
	plan := seedPlan(t, db, event.ID, 1, models.IntervalMonthly, time.Now().AddDate(0, 0, -3))
	regA := seedRegistration(t, db, event, nil, plan, "300.00")
	regB := seedRegistration(t, db, event, nil, plan, "500.00")

	planSvc := NewPlanService(db)
	instA, err := planSvc.GenerateInstallments(ctx, &plan, &regA)
	require.NoError(t, err)
	_, err = planSvc.GenerateInstallments(ctx, &plan, &regB)
	require.NoError(t, err)

	_, err = billing.ProcessPayment(ctx, instA[0].ID, mustDecimal(t, "300.00"), "pix", "", "organizer")
	require.NoError(t, err)
	_, err = lateFees.Recalculate(ctx, &event.ID)
	require.NoError(t, err)

	summary, err := analytics.ForEvent(ctx, event.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.InstallmentCount)
	assert.Equal(t, 1, summary.PaidCount)
	assert.Equal(t, 1, summary.OverdueCount)
	assert.True(t, summary.TotalExpected.Equal(mustDecimal(t, "800.00")))
	assert.True(t, summary.TotalPaid.Equal(mustDecimal(t, "300.00")))
	assert.True(t, summary.OverdueAmount.Equal(mustDecimal(t, "500.00")))

	_, err = analytics.ForEvent(ctx, 9999)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestEventReportByGroup(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsService(db, nil)
	ctx := context.Background()

	event := seedEvent(t, db, nil)
	plan := seedPlan(t, db, event.ID, 1, models.IntervalMonthly, time.Now().AddDate(0, 1, 0))

	groupA := models.ParticipantGroup{EventID: event.ID, Name: "Alumni"}
	require.NoError(t, db.Create(&groupA).Error)
	groupB := models.ParticipantGroup{EventID: event.ID, Name: "Staff"}
	require.NoError(t, db.Create(&groupB).Error)

	planSvc := NewPlanService(db)
	regA := seedRegistration(t, db, event, &groupA.ID, plan, "300.00")
	_, err := planSvc.GenerateInstallments(ctx, &plan, &regA)
	require.NoError(t, err)
	regB := seedRegistration(t, db, event, &groupB.ID, plan, "500.00")
	_, err = planSvc.GenerateInstallments(ctx, &plan, &regB)
	require.NoError(t, err)
	regC := seedRegistration(t, db, event, nil, plan, "100.00")
	_, err = planSvc.GenerateInstallments(ctx, &plan, &regC)
	require.NoError(t, err)

	report, err := analytics.EventReport(ctx, event.ID)
	require.NoError(t, err)

	assert.Equal(t, event.ID, report.EventID)
	assert.True(t, report.Summary.TotalExpected.Equal(mustDecimal(t, "900.00")))
	require.Len(t, report.ByGroup, 3)

	byName := make(map[string]GroupBreakdown, len(report.ByGroup))
	for _, b := range report.ByGroup {
		byName[b.GroupName] = b
	}

	require.Contains(t, byName, "Alumni")
	assert.True(t, byName["Alumni"].Summary.TotalExpected.Equal(mustDecimal(t, "300.00")))
	require.Contains(t, byName, "Staff")
	assert.True(t, byName["Staff"].Summary.TotalExpected.Equal(mustDecimal(t, "500.00")))

	require.Contains(t, byName, "Ungrouped")
	ungrouped := byName["Ungrouped"]
	assert.Nil(t, ungrouped.GroupID)
	assert.True(t, ungrouped.Summary.TotalExpected.Equal(mustDecimal(t, "100.00")))
}

func TestForGroup(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsService(db, nil)
	ctx := context.Background()

	event := seedEvent(t, db, nil)
	plan := seedPlan(t, db, event.ID, 2, models.IntervalMonthly, time.Now().AddDate(0, 1, 0))

	group := models.ParticipantGroup{EventID: event.ID, Name: "Choir"}
	require.NoError(t, db.Create(&group).Error)

	reg := seedRegistration(t, db, event, &group.ID, plan, "600.00")
	_, err := NewPlanService(db).GenerateInstallments(ctx, &plan, &reg)
	require.NoError(t, err)

	summary, err := analytics.ForGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.InstallmentCount)
	assert.True(t, summary.TotalExpected.Equal(mustDecimal(t, "600.00")))

	_, err = analytics.ForGroup(ctx, 9999)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
