package dto

// StatusOK and StatusError are the envelope status values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// OKResponse wraps a successful result
type OKResponse struct {
	Status  string `json:"status"`
	Results any    `json:"results"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Name       string `json:"name"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// ErrorResponse wraps a failed request
type ErrorResponse struct {
	Status string    `json:"status"`
	Error  ErrorBody `json:"error"`
}

// HealthResponse is returned by the heartbeat endpoint
type HealthResponse struct {
	Healthy bool   `json:"healthy"`
	Version string `json:"version,omitempty"`
}
