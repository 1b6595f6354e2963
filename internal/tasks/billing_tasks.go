package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// RecalculateLateFeesTaskDef encapsulates the recurring late-fee sweep
type RecalculateLateFeesTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *RecalculateLateFeesTaskDef) TaskID() string {
	return "recalculate_late_fees"
}

// CreateTask builds the recurring sweep. The rule runs daily; event_id can
// scope the sweep to a single event, omit it to cover everything.
func (t *RecalculateLateFeesTaskDef) CreateTask(eventID *uint, firstRun time.Time) (*models.ScheduledTask, error) {
	rule := "FREQ=DAILY"
	args := map[string]interface{}{}
	if eventID != nil {
		args["event_id"] = *eventID
	}
	return BuildScheduledTask(t.TaskID(), args, firstRun, &rule, models.ScheduledTaskTypeRecurring, 3)
}

// HandleExecution marks overdue installments and applies late-fee policies
func (t *RecalculateLateFeesTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	eventID := uintArg(task.Arguments, "event_id")

	lateFees := services.NewLateFeeService(db, services.NewNotifier(db, nil))
	updated, err := lateFees.Recalculate(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("late fee recalculation failed: %w", err)
	}

	log.Printf("[Task: %s] marked %d installments overdue", t.TaskID(), updated)
	return map[string]interface{}{
		"status":  "success",
		"updated": updated,
	}, nil
}

// RecalculateLateFeesTask is the singleton instance of RecalculateLateFeesTaskDef
var RecalculateLateFeesTask = &RecalculateLateFeesTaskDef{}

// uintArg reads an optional uint argument from a JSON-decoded args map
func uintArg(args map[string]interface{}, key string) *uint {
	raw, ok := args[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		id := uint(v)
		return &id
	case int:
		id := uint(v)
		return &id
	case uint:
		return &v
	}
	return nil
}
