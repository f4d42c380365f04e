package domain

import "time"

// SchedulerJobStatus is the lifecycle state of a scheduler job
type SchedulerJobStatus string

const (
	SchedulerJobStatusScheduled SchedulerJobStatus = "scheduled"
	SchedulerJobStatusStarted   SchedulerJobStatus = "started"
	SchedulerJobStatusCompleted SchedulerJobStatus = "completed"
	SchedulerJobStatusError     SchedulerJobStatus = "error"
)

// Done reports whether the job reached a terminal state
func (s SchedulerJobStatus) Done() bool {
	return s == SchedulerJobStatusCompleted || s == SchedulerJobStatusError
}

// SchedulerJobType names the task a job runs
type SchedulerJobType string

const (
	JobTypeSemanticLayerStreamingResults SchedulerJobType = "semanticLayerStreamingResults"
)

// ResultsFormat is the encoding of a results file
type ResultsFormat string

const (
	ResultsFormatJSONL ResultsFormat = "jsonl"
	ResultsFormatCSV   ResultsFormat = "csv"
)

// StreamingResultsPayload is what a streaming-results job needs to run
type StreamingResultsPayload struct {
	ProjectUUID string             `json:"projectUuid"`
	User        SessionUser        `json:"user"`
	Query       SemanticLayerQuery `json:"query"`
	Format      ResultsFormat      `json:"format"`
}

// SchedulerJobDetails carries the outcome of a job
type SchedulerJobDetails struct {
	FileURL  string `json:"fileUrl,omitempty"`
	RowCount int    `json:"rowCount,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SchedulerJob is a unit of asynchronous work
type SchedulerJob struct {
	ID        string                  `json:"jobId"`
	Type      SchedulerJobType        `json:"type"`
	Status    SchedulerJobStatus      `json:"status"`
	Payload   StreamingResultsPayload `json:"payload"`
	Details   SchedulerJobDetails     `json:"details"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// FileResult is returned when a query has been streamed into storage
type FileResult struct {
	FileURL  string `json:"fileUrl"`
	RowCount int    `json:"rowCount"`
}
