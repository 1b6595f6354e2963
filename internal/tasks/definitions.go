package tasks

// DefineTasks registers all available tasks
func DefineTasks() {
	// Register general tasks
	RegisterHandler(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	// Register billing tasks
	RegisterHandler(RecalculateLateFeesTask.TaskID(), RecalculateLateFeesTask.HandleExecution)

	// Register notification tasks
	RegisterHandler(PaymentReminderTask.TaskID(), PaymentReminderTask.HandleExecution)
}
