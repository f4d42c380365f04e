package dto

import "github.com/semlayer/semlayer/core/domain"

// QueryFieldsRequest narrows the fields of a view to those compatible with
// the current selection
type QueryFieldsRequest struct {
	Dimensions     []string                            `json:"dimensions" validate:"dive,required"`
	TimeDimensions []domain.SemanticLayerTimeDimension `json:"timeDimensions" validate:"dive"`
	Metrics        []string                            `json:"metrics" validate:"dive,required"`
}

// Selected converts the request to the domain selection
func (r QueryFieldsRequest) Selected() domain.SemanticLayerSelectedFields {
	return domain.SemanticLayerSelectedFields{
		Dimensions:     r.Dimensions,
		TimeDimensions: r.TimeDimensions,
		Metrics:        r.Metrics,
	}
}

// RunQueryRequest schedules a streaming results job
type RunQueryRequest struct {
	domain.SemanticLayerQuery
	Format domain.ResultsFormat `json:"format,omitempty" validate:"omitempty,oneof=jsonl csv"`
}

// RunQueryResponse carries the id of the scheduled job
type RunQueryResponse struct {
	JobID string `json:"jobId"`
}

// SQLResponse carries the compiled SQL
type SQLResponse struct {
	SQL string `json:"sql"`
}

// JobStatusResponse reports a job's progress to its creator
type JobStatusResponse struct {
	JobID     string                     `json:"jobId"`
	Status    domain.SchedulerJobStatus  `json:"status"`
	Details   domain.SchedulerJobDetails `json:"details"`
	CreatedAt string                     `json:"createdAt"`
	UpdatedAt string                     `json:"updatedAt"`
}
