package tasks

// DefineTasks registers all available tasks
func DefineTasks() {
	RegisterHandler(TaskSyncAllUsers, HandleSyncAllUsers)
	RegisterHandler(TaskDeferredPaymentsReport, HandleDeferredPaymentsReport)
}
