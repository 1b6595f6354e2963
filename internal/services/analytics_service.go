package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
)

// PaymentSummary aggregates installment amounts and statuses over a scope.
// Waived and cancelled installments are excluded from the monetary totals;
// they are no longer expected to pay.
type PaymentSummary struct {
	TotalExpected  decimal.Decimal `json:"total_expected"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	OverdueAmount  decimal.Decimal `json:"overdue_amount"`

	InstallmentCount int `json:"installment_count"`
	PaidCount        int `json:"paid_count"`
	PendingCount     int `json:"pending_count"`
	OverdueCount     int `json:"overdue_count"`
	PartialCount     int `json:"partial_count"`
}

// GroupBreakdown is the per-group slice of an event report
type GroupBreakdown struct {
	GroupID   *uint          `json:"group_id"`
	GroupName string         `json:"group_name"`
	Summary   PaymentSummary `json:"summary"`
}

// EventPaymentReport is the event-level rollup with per-group breakdowns
type EventPaymentReport struct {
	EventID uint             `json:"event_id"`
	Summary PaymentSummary   `json:"summary"`
	ByGroup []GroupBreakdown `json:"by_group"`
}

// AnalyticsService computes read-only payment rollups. Event-level summaries
// are cached briefly when a cache is configured.
type AnalyticsService struct {
	db    *gorm.DB
	cache *RedisCache
}

func NewAnalyticsService(db *gorm.DB, cache *RedisCache) *AnalyticsService {
	return &AnalyticsService{db: db, cache: cache}
}

func zeroSummary() PaymentSummary {
	return PaymentSummary{
		TotalExpected:  decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalRemaining: decimal.Zero,
		OverdueAmount:  decimal.Zero,
	}
}

// summarize folds installments into a summary. Sums run through decimals so
// no comparison ever passes through a binary float.
func summarize(installments []models.PaymentInstallment) PaymentSummary {
	summary := zeroSummary()
	summary.InstallmentCount = len(installments)

	for _, inst := range installments {
		switch inst.Status {
		case models.InstallmentStatusPaid:
			summary.PaidCount++
		case models.InstallmentStatusPending:
			summary.PendingCount++
		case models.InstallmentStatusOverdue:
			summary.OverdueCount++
			summary.OverdueAmount = summary.OverdueAmount.Add(inst.RemainingAmount)
		case models.InstallmentStatusWaived, models.InstallmentStatusCancelled:
			continue
		}
		if inst.IsPartiallyPaid() {
			summary.PartialCount++
		}

		expected := inst.OriginalAmount.Add(inst.LateFeeAmount).Sub(inst.DiscountAmount)
		summary.TotalExpected = summary.TotalExpected.Add(expected)
		summary.TotalPaid = summary.TotalPaid.Add(inst.PaidAmount)
	}

	summary.TotalRemaining = summary.TotalExpected.Sub(summary.TotalPaid)
	return summary
}

// ForRegistration summarizes a single registration's installments
func (s *AnalyticsService) ForRegistration(ctx context.Context, registrationID uint) (PaymentSummary, error) {
	var reg models.Registration
	if err := s.db.WithContext(ctx).First(&reg, registrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PaymentSummary{}, NewNotFoundError("registration")
		}
		return PaymentSummary{}, err
	}

	var installments []models.PaymentInstallment
	if err := s.db.WithContext(ctx).Where("registration_id = ?", registrationID).Find(&installments).Error; err != nil {
		return PaymentSummary{}, err
	}
	return summarize(installments), nil
}

// ForGroup summarizes all installments of a group's registrations
func (s *AnalyticsService) ForGroup(ctx context.Context, groupID uint) (PaymentSummary, error) {
	var group models.ParticipantGroup
	if err := s.db.WithContext(ctx).First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PaymentSummary{}, NewNotFoundError("group")
		}
		return PaymentSummary{}, err
	}

	installments, err := s.installmentsForGroup(ctx, groupID)
	if err != nil {
		return PaymentSummary{}, err
	}
	return summarize(installments), nil
}

// ForEvent summarizes all installments across an event's registrations
func (s *AnalyticsService) ForEvent(ctx context.Context, eventID uint) (PaymentSummary, error) {
	if s.cache != nil {
		key := fmt.Sprintf("analytics:event:%d", eventID)
		return GetOrSet(s.cache, ctx, key, 30*time.Second, func() (PaymentSummary, error) {
			return s.forEventUncached(ctx, eventID)
		})
	}
	return s.forEventUncached(ctx, eventID)
}

func (s *AnalyticsService) forEventUncached(ctx context.Context, eventID uint) (PaymentSummary, error) {
	if err := s.ensureEvent(ctx, eventID); err != nil {
		return PaymentSummary{}, err
	}

	installments, err := s.installmentsForEvent(ctx, eventID)
	if err != nil {
		return PaymentSummary{}, err
	}
	return summarize(installments), nil
}

// EventReport builds the event summary plus one breakdown per group.
// Registrations without a group are reported under "Ungrouped".
func (s *AnalyticsService) EventReport(ctx context.Context, eventID uint) (EventPaymentReport, error) {
	if err := s.ensureEvent(ctx, eventID); err != nil {
		return EventPaymentReport{}, err
	}

	installments, err := s.installmentsForEvent(ctx, eventID)
	if err != nil {
		return EventPaymentReport{}, err
	}

	var groups []models.ParticipantGroup
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("name asc").Find(&groups).Error; err != nil {
		return EventPaymentReport{}, err
	}

	groupNames := make(map[uint]string, len(groups))
	for _, g := range groups {
		groupNames[g.ID] = g.Name
	}

	byGroupID := make(map[uint][]models.PaymentInstallment)
	var ungrouped []models.PaymentInstallment
	for _, inst := range installments {
		if inst.Registration.GroupID != nil {
			gid := *inst.Registration.GroupID
			byGroupID[gid] = append(byGroupID[gid], inst)
		} else {
			ungrouped = append(ungrouped, inst)
		}
	}

	report := EventPaymentReport{
		EventID: eventID,
		Summary: summarize(installments),
	}

	for _, g := range groups {
		gid := g.ID
		report.ByGroup = append(report.ByGroup, GroupBreakdown{
			GroupID:   &gid,
			GroupName: groupNames[gid],
			Summary:   summarize(byGroupID[gid]),
		})
	}
	if len(ungrouped) > 0 {
		report.ByGroup = append(report.ByGroup, GroupBreakdown{
			GroupName: "Ungrouped",
			Summary:   summarize(ungrouped),
		})
	}
	return report, nil
}

func (s *AnalyticsService) ensureEvent(ctx context.Context, eventID uint) error {
	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("event")
		}
		return err
	}
	return nil
}

func (s *AnalyticsService) installmentsForEvent(ctx context.Context, eventID uint) ([]models.PaymentInstallment, error) {
	var installments []models.PaymentInstallment
	err := s.db.WithContext(ctx).
		Preload("Registration").
		Joins("JOIN registrations ON registrations.id = payment_installments.registration_id").
		Where("registrations.event_id = ?", eventID).
		Find(&installments).Error
	return installments, err
}

func (s *AnalyticsService) installmentsForGroup(ctx context.Context, groupID uint) ([]models.PaymentInstallment, error) {
	var installments []models.PaymentInstallment
	err := s.db.WithContext(ctx).
		Preload("Registration").
		Joins("JOIN registrations ON registrations.id = payment_installments.registration_id").
		Where("registrations.group_id = ?", groupID).
		Find(&installments).Error
	return installments, err
}
