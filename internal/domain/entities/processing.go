package entities

// TaskStatus is the lifecycle state of one section processing task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// SubmissionContent is the opaque source payload for one processing run
type SubmissionContent struct {
	Text            string     `json:"text"`
	SourceType      SourceType `json:"source_type"`
	SourceReference *string    `json:"source_reference,omitempty"`
}

// ProcessingContext identifies the patient and actor for a processing run
type ProcessingContext struct {
	PatientID    string  `json:"patient_id"`
	EncounterID  *string `json:"encounter_id,omitempty"`
	AttachmentID *string `json:"attachment_id,omitempty"`
	ActingUserID string  `json:"acting_user_id"`
}

// ProcessingTask is one category processor invocation within a run.
// Terminal once the processor returns or times out; never retried
// automatically within the same run.
type ProcessingTask struct {
	Category   Category   `json:"category"`
	Priority   int        `json:"priority"`
	Status     TaskStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	DurationMs int64      `json:"duration_ms"`
}

// SectionResult is a processor's domain-specific outcome for one run
type SectionResult struct {
	Summary           string `json:"summary"`
	Created           int    `json:"created"`
	Updated           int    `json:"updated"`
	SkippedDuplicates int    `json:"skipped_duplicates"`
}

// AggregateReport is the caller-facing outcome of one processing run.
// Partial success is first-class: failed tasks are reported per category,
// never escalated to a run-level failure.
type AggregateReport struct {
	TotalTasks int              `json:"total_tasks"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	ElapsedMs  int64            `json:"elapsed_ms"`
	Tasks      []ProcessingTask `json:"tasks"`
}
