package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	"github.com/semlayer/semlayer/core/infrastructure/transport/http/dto"
)

const maxErrorBody = 4 << 10

var errJobPending = errors.New("job still running")

// Client calls the gateway REST API on behalf of one session
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	pollInitial time.Duration
	pollMax     time.Duration
	pollTimeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithPolling bounds the backoff used by WaitForJob. A zero timeout waits
// until ctx is done.
func WithPolling(initial, max, timeout time.Duration) Option {
	return func(c *Client) {
		c.pollInitial = initial
		c.pollMax = max
		c.pollTimeout = timeout
	}
}

// New creates a client for the gateway at baseURL authenticating with token
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		http:        &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		pollInitial: 500 * time.Millisecond,
		pollMax:     5 * time.Second,
		pollTimeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a failed gateway call
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Views lists the semantic layer views of a project
func (c *Client) Views(ctx context.Context, projectUUID string) ([]domain.SemanticLayerView, error) {
	var views []domain.SemanticLayerView
	err := c.do(ctx, http.MethodGet, c.projectPath(projectUUID, "views"), nil, &views)
	return views, err
}

// Fields lists the fields of view compatible with the current selection
func (c *Client) Fields(ctx context.Context, projectUUID, view string, selected domain.SemanticLayerSelectedFields) ([]domain.SemanticLayerField, error) {
	body := dto.QueryFieldsRequest{
		Dimensions:     selected.Dimensions,
		TimeDimensions: selected.TimeDimensions,
		Metrics:        selected.Metrics,
	}
	var fields []domain.SemanticLayerField
	err := c.do(ctx, http.MethodPost, c.projectPath(projectUUID, "views", view, "query-fields"), body, &fields)
	return fields, err
}

// SQL compiles query without running it
func (c *Client) SQL(ctx context.Context, projectUUID string, query domain.SemanticLayerQuery) (string, error) {
	var out dto.SQLResponse
	err := c.do(ctx, http.MethodPost, c.projectPath(projectUUID, "sql"), query, &out)
	return out.SQL, err
}

// Run schedules a job streaming the query results into a file and returns
// the job id
func (c *Client) Run(ctx context.Context, projectUUID string, query domain.SemanticLayerQuery, format domain.ResultsFormat) (string, error) {
	body := dto.RunQueryRequest{SemanticLayerQuery: query, Format: format}
	var out dto.RunQueryResponse
	err := c.do(ctx, http.MethodPost, c.projectPath(projectUUID, "run"), body, &out)
	return out.JobID, err
}

// JobStatus returns the current state of a job
func (c *Client) JobStatus(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	var out dto.JobStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/schedulers/job/"+url.PathEscape(jobID)+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForJob polls the job until it completes. A job ending in error is
// returned together with an error carrying its message.
func (c *Client) WaitForJob(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	log := logging.New("client").WithContext(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.pollInitial
	b.MaxInterval = c.pollMax
	b.MaxElapsedTime = c.pollTimeout

	var status *dto.JobStatusResponse
	op := func() error {
		s, err := c.JobStatus(ctx, jobID)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			log.Debugf("Polling job %s failed, retrying: %v", jobID, err)
			return err
		}
		status = s
		if !s.Status.Done() {
			return errJobPending
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errJobPending) {
			return status, fmt.Errorf("job %s did not finish within %s", jobID, c.pollTimeout)
		}
		return status, err
	}
	if status.Status == domain.SchedulerJobStatusError {
		return status, fmt.Errorf("job %s failed: %s", jobID, status.Details.Error)
	}
	return status, nil
}

// Download copies a results file of any format to w. The session token is
// only sent to the gateway itself, never to presigned storage URLs.
func (c *Client) Download(ctx context.Context, fileURL string, w io.Writer) error {
	body, err := c.open(ctx, fileURL)
	if err != nil {
		return err
	}
	defer body.Close()
	_, err = io.Copy(w, body)
	return err
}

// FetchResults downloads a JSONL results file and calls fn for every row
func (c *Client) FetchResults(ctx context.Context, fileURL string, fn func(domain.SemanticLayerResultRow) error) error {
	body, err := c.open(ctx, fileURL)
	if err != nil {
		return err
	}
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.UseNumber()
	for {
		var row domain.SemanticLayerResultRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode results row: %w", err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

func (c *Client) open(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(fileURL, c.baseURL+"/") {
		c.authorize(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}

// Query runs query as a JSONL job, waits for it and collects every row
func (c *Client) Query(ctx context.Context, projectUUID string, query domain.SemanticLayerQuery) ([]domain.SemanticLayerResultRow, error) {
	jobID, err := c.Run(ctx, projectUUID, query, domain.ResultsFormatJSONL)
	if err != nil {
		return nil, err
	}
	status, err := c.WaitForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.SemanticLayerResultRow, 0, status.Details.RowCount)
	err = c.FetchResults(ctx, status.Details.FileURL, func(row domain.SemanticLayerResultRow) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

func (c *Client) projectPath(projectUUID string, parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return "/api/v1/projects/" + url.PathEscape(projectUUID) + "/semantic-layer/" + strings.Join(escaped, "/")
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// do sends body as JSON and unwraps the results of the ok envelope into out
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	var envelope struct {
		Status  string          `json:"status"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	if envelope.Status != dto.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Name: "UnexpectedResponse", Message: "status " + envelope.Status}
	}
	if out == nil || len(envelope.Results) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Results, out); err != nil {
		return fmt.Errorf("failed to decode %s %s results: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope dto.ErrorResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Status == dto.StatusError {
		return &APIError{
			StatusCode: resp.StatusCode,
			Name:       envelope.Error.Name,
			Message:    envelope.Error.Message,
		}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Name:       "HTTPError",
		Message:    strings.TrimSpace(string(raw)),
	}
}
