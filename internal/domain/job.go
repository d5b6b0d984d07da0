package domain

// Job status constants
const (
	JobStatusInit        = "INIT"
	JobStatusRunning     = "RUNNING"
	JobStatusCompleted   = "COMPLETED"
	JobStatusRecurring   = "RECURRING"
	JobStatusDeactivated = "DEACTIVATED"
)

// Report status constants. DONE is terminal and triggers notification
// fan-out.
const (
	ReportStatusInit = "INIT"
	ReportStatusDone = "DONE"
)

// ReportURLStatusError marks a finding that counts towards the report's
// error total.
const ReportURLStatusError = "ERROR"

// NotificationTypeMail is the only supported notification channel.
const NotificationTypeMail = "MAIL"

// Job create-time schedule options
const (
	ScheduleRunNow       = "RUN_NOW"
	FrequencyOptRunOnce  = "RUN_ONCE"
	FrequencyOptDisabled = "NOT_GONNA_RUN"
)

// CanDeactivate reports whether a job in the given status may be
// deactivated. Running and already-deactivated jobs may not.
func CanDeactivate(status string) bool {
	return status != JobStatusRunning && status != JobStatusDeactivated
}

// CanActivate reports whether a job in the given status may be activated.
func CanActivate(status string) bool {
	return status != JobStatusRunning && status != JobStatusDeactivated
}

// CanDelete reports whether a job in the given status may be deleted.
func CanDelete(status string) bool {
	return status != JobStatusRunning
}

// FinalJobStatus applies the recurring coercion: a COMPLETED status on a
// job with an hourly or minute frequency becomes RECURRING. Every other
// status is applied verbatim; the external worker owns the transitions.
func FinalJobStatus(newStatus, frequency string) string {
	if newStatus == JobStatusCompleted && IsRecurring(frequency) {
		return JobStatusRecurring
	}
	return newStatus
}
