package services

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
)

// Notifier pushes dashboard notifications to event organizers: one stored
// Notification row for the feed, plus a Redis publish for connected clients.
// Delivery is strictly fire-and-forget; failures are logged and swallowed so
// they can never roll back the mutation that triggered them.
type Notifier struct {
	db    *gorm.DB
	cache *RedisCache
}

func NewNotifier(db *gorm.DB, cache *RedisCache) *Notifier {
	return &Notifier{db: db, cache: cache}
}

// Notify stores and publishes a notification for a user
func (n *Notifier) Notify(ctx context.Context, userID uint, typ, title, body string) {
	if n == nil {
		return
	}

	notification := models.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
	}
	if err := n.db.WithContext(ctx).Create(&notification).Error; err != nil {
		log.Printf("failed to store notification for user %d: %v", userID, err)
	}

	if n.cache == nil {
		return
	}
	channel := fmt.Sprintf("notify:user:%d", userID)
	if err := n.cache.Publish(ctx, channel, notification); err != nil {
		log.Printf("failed to publish notification on %s: %v", channel, err)
	}
}

// PaymentReceived notifies the owning event's organizer about a payment
func (n *Notifier) PaymentReceived(ctx context.Context, inst *models.PaymentInstallment, amount decimal.Decimal, method string) {
	if n == nil || inst == nil {
		return
	}

	organizerID, reg, err := n.resolveOrganizer(ctx, inst)
	if err != nil {
		log.Printf("failed to resolve organizer for installment %d: %v", inst.ID, err)
		return
	}

	title := "Payment received"
	body := fmt.Sprintf("%s paid %s via %s on installment #%d",
		reg.ParticipantName, amount.StringFixed(2), method, inst.InstallmentNumber)
	n.Notify(ctx, organizerID, "payment_received", title, body)
}

// InstallmentOverdue notifies the organizer that an installment went overdue
func (n *Notifier) InstallmentOverdue(ctx context.Context, inst *models.PaymentInstallment) {
	if n == nil || inst == nil {
		return
	}

	organizerID, reg, err := n.resolveOrganizer(ctx, inst)
	if err != nil {
		log.Printf("failed to resolve organizer for installment %d: %v", inst.ID, err)
		return
	}

	title := "Installment overdue"
	body := fmt.Sprintf("Installment #%d of %s is overdue (%s outstanding)",
		inst.InstallmentNumber, reg.ParticipantName, inst.RemainingAmount.StringFixed(2))
	n.Notify(ctx, organizerID, "installment_overdue", title, body)
}

func (n *Notifier) resolveOrganizer(ctx context.Context, inst *models.PaymentInstallment) (uint, *models.Registration, error) {
	var reg models.Registration
	if err := n.db.WithContext(ctx).Preload("Event").First(&reg, inst.RegistrationID).Error; err != nil {
		return 0, nil, err
	}
	return reg.Event.OrganizerID, &reg, nil
}
