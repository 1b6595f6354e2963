package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"eventreg_app/internal/models"
)

// openTestDB opens an isolated in-memory database migrated with the full
// schema. Each test gets its own named memory database so tests cannot see
// each other's rows.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(db))
	return db
}

func seedEvent(t *testing.T, db *gorm.DB, lateFeePolicy datatypes.JSONMap) models.Event {
	t.Helper()

	event := models.Event{
		OrganizerID:   1,
		Name:          "Spring Conference",
		StartsAt:      time.Now().AddDate(0, 2, 0),
		EndsAt:        time.Now().AddDate(0, 2, 2),
		Status:        models.EventStatusPublished,
		LateFeePolicy: lateFeePolicy,
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

func seedPlan(t *testing.T, db *gorm.DB, eventID uint, count int, interval models.InstallmentInterval, firstDue time.Time) models.PaymentPlan {
	t.Helper()

	plan := models.PaymentPlan{
		EventID:              eventID,
		Name:                 fmt.Sprintf("%d x %s", count, interval),
		InstallmentCount:     count,
		InstallmentInterval:  interval,
		FirstInstallmentDate: firstDue,
		Status:               models.PlanStatusActive,
	}
	require.NoError(t, db.Create(&plan).Error)
	return plan
}

func seedRegistration(t *testing.T, db *gorm.DB, event models.Event, groupID *uint, plan models.PaymentPlan, total string) models.Registration {
	t.Helper()

	amount, err := decimal.NewFromString(total)
	require.NoError(t, err)

	reg := models.Registration{
		EventID:          event.ID,
		GroupID:          groupID,
		ParticipantName:  "Ana Souza",
		ParticipantEmail: "ana@example.com",
		UUID:             uuid.New().String(),
		TotalAmount:      amount,
		Status:           models.RegistrationStatusConfirmed,
		PaymentPlanID:    &plan.ID,
	}
	require.NoError(t, db.Create(&reg).Error)
	return reg
}

// seedSchedule creates an event, plan and registration and generates the
// installment schedule. firstDue controls whether installments start in the
// past or the future.
func seedSchedule(t *testing.T, db *gorm.DB, total string, count int, firstDue time.Time) (models.Registration, []models.PaymentInstallment) {
	t.Helper()

	event := seedEvent(t, db, nil)
	plan := seedPlan(t, db, event.ID, count, models.IntervalMonthly, firstDue)
	reg := seedRegistration(t, db, event, nil, plan, total)

	installments, err := NewPlanService(db).GenerateInstallments(context.Background(), &plan, &reg)
	require.NoError(t, err)
	return reg, installments
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func reload(t *testing.T, db *gorm.DB, id uint) models.PaymentInstallment {
	t.Helper()
	var inst models.PaymentInstallment
	require.NoError(t, db.First(&inst, id).Error)
	return inst
}
