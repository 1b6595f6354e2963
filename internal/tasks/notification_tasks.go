package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// PaymentReminderArgs defines the arguments for a reminder task. A retry task
// carries the installment IDs that failed on the previous attempt.
type PaymentReminderArgs struct {
	DaysAhead      int    `json:"days_ahead"`
	InstallmentIDs []uint `json:"installment_ids,omitempty"`
	AttemptCount   int    `json:"attempt_count"`
}

// PaymentReminderTaskDef encapsulates the due-date reminder sweep
type PaymentReminderTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *PaymentReminderTaskDef) TaskID() string {
	return "payment_reminder"
}

// CreateTask builds the recurring daily reminder sweep
func (t *PaymentReminderTaskDef) CreateTask(daysAhead int, firstRun time.Time) (*models.ScheduledTask, error) {
	rule := "FREQ=DAILY"
	args := PaymentReminderArgs{DaysAhead: daysAhead}
	return BuildScheduledTask(t.TaskID(), args, firstRun, &rule, models.ScheduledTaskTypeRecurring, 3)
}

// HandleExecution emails participants whose installments come due soon
func (t *PaymentReminderTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	argsBytes, err := json.Marshal(task.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}

	var parsedArgs PaymentReminderArgs
	if err := json.Unmarshal(argsBytes, &parsedArgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}
	if parsedArgs.DaysAhead <= 0 {
		parsedArgs.DaysAhead = 3
	}

	installments, err := t.collect(ctx, db, parsedArgs)
	if err != nil {
		return nil, err
	}

	emailService := services.NewEmailService()

	total := len(installments)
	successCount := 0
	failureCount := 0
	var failures []string
	var failedIDs []uint

	for _, inst := range installments {
		reg := inst.Registration
		sendErr := emailService.SendPaymentReminder(
			reg.ParticipantEmail,
			reg.ParticipantName,
			reg.Event.Name,
			inst.RemainingAmount,
			inst.DueDate.Format("2006-01-02"),
		)
		if sendErr != nil {
			log.Printf("Failed to send reminder for installment %d to %s: %v", inst.ID, reg.ParticipantEmail, sendErr)
			failureCount++
			failures = append(failures, fmt.Sprintf("installment %d: %v", inst.ID, sendErr))
			failedIDs = append(failedIDs, inst.ID)
		} else {
			successCount++
		}
	}

	result := map[string]interface{}{
		"total":   total,
		"success": successCount,
		"failure": failureCount,
	}

	if failureCount > 0 {
		result["errors"] = failures

		attempt := parsedArgs.AttemptCount
		maxRetries := task.MaxAttempt

		if attempt < maxRetries {
			log.Printf("Partial failure: %d reminders failed. Rescheduling for attempt %d", len(failedIDs), attempt+1)

			newArgs := parsedArgs
			newArgs.InstallmentIDs = failedIDs
			newArgs.AttemptCount = attempt + 1

			// Re-schedule in 5 minutes
			nextRun := time.Now().Add(5 * time.Minute)

			newTask, err := BuildScheduledTask(t.TaskID(), newArgs, nextRun, nil, models.ScheduledTaskTypeOneTime, maxRetries)
			if err == nil {
				db.Create(newTask)
			} else {
				log.Printf("Failed to create retry task: %v", err)
			}
		} else {
			log.Printf("Max attempts (%d) reached for %d failed reminders.", maxRetries, len(failedIDs))
			return result, fmt.Errorf("max attempts reached, failed to deliver %d reminders", len(failedIDs))
		}
	}

	return result, nil
}

// collect finds open installments coming due within the window, or reloads
// the explicit retry set.
func (t *PaymentReminderTaskDef) collect(ctx context.Context, db *gorm.DB, args PaymentReminderArgs) ([]models.PaymentInstallment, error) {
	query := db.WithContext(ctx).
		Preload("Registration").
		Preload("Registration.Event").
		Where("status IN ?", []models.InstallmentStatus{
			models.InstallmentStatusPending,
			models.InstallmentStatusOverdue,
		}).
		Where("remaining_amount > 0")

	if len(args.InstallmentIDs) > 0 {
		query = query.Where("id IN ?", args.InstallmentIDs)
	} else {
		now := time.Now()
		cutoff := now.AddDate(0, 0, args.DaysAhead)
		query = query.Where("due_date <= ?", cutoff)
	}

	var installments []models.PaymentInstallment
	if err := query.Find(&installments).Error; err != nil {
		return nil, fmt.Errorf("failed to collect installments: %w", err)
	}
	return installments, nil
}

// PaymentReminderTask is the singleton instance of PaymentReminderTaskDef
var PaymentReminderTask = &PaymentReminderTaskDef{}
