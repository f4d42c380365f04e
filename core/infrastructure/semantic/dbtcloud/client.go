package dbtcloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/machinebox/graphql"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

// DefaultDomain is the dbt Cloud Semantic Layer host used when none is configured
const DefaultDomain = "https://semantic-layer.cloud.getdbt.com"

// ViewName is the single view a dbt Cloud project exposes
const ViewName = "dbt"

// Options tune the client
type Options struct {
	HTTPClient *http.Client

	// PollInitialInterval and PollMaxInterval bound the backoff between
	// query status polls. PollTimeout caps the total wait.
	PollInitialInterval time.Duration
	PollMaxInterval     time.Duration
	PollTimeout         time.Duration
}

// Client talks to the dbt Cloud Semantic Layer GraphQL API
type Client struct {
	gql           *graphql.Client
	token         string
	environmentID int64
	opts          Options
}

// NewClient validates the connection and builds a client
func NewClient(conn domain.DbtCloudConnection, opts Options) (*Client, error) {
	if conn.BearerToken == "" {
		return nil, fmt.Errorf("dbt cloud bearer token is required")
	}
	envID, err := strconv.ParseInt(strings.TrimSpace(conn.EnvironmentID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("dbt cloud environment id %q is not a number", conn.EnvironmentID)
	}

	host := strings.TrimRight(conn.Domain, "/")
	if host == "" {
		host = DefaultDomain
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   60 * time.Second,
		}
	}
	if opts.PollInitialInterval <= 0 {
		opts.PollInitialInterval = 250 * time.Millisecond
	}
	if opts.PollMaxInterval <= 0 {
		opts.PollMaxInterval = 5 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Minute
	}

	return &Client{
		gql:           graphql.NewClient(host+"/api/graphql", graphql.WithHTTPClient(opts.HTTPClient)),
		token:         conn.BearerToken,
		environmentID: envID,
		opts:          opts,
	}, nil
}

func (c *Client) request(query string) *graphql.Request {
	req := graphql.NewRequest(query)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Var("environmentId", c.environmentID)
	return req
}

func (c *Client) run(ctx context.Context, req *graphql.Request, resp any) error {
	if err := c.gql.Run(ctx, req, resp); err != nil {
		return fmt.Errorf("dbt cloud: %w", err)
	}
	return nil
}

// GetViews returns the single dbt view
func (c *Client) GetViews(_ context.Context) ([]domain.SemanticLayerView, error) {
	return []domain.SemanticLayerView{{Name: ViewName, Label: "dbt", Visible: true}}, nil
}

func (c *Client) getMetrics(ctx context.Context) ([]metric, error) {
	var resp metricsResponse
	if err := c.run(ctx, c.request(getMetricsQuery), &resp); err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}

func (c *Client) getDimensions(ctx context.Context, metrics []string) ([]dimension, error) {
	req := c.request(getDimensionsQuery)
	req.Var("metrics", metricInputs(metrics))
	var resp dimensionsResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Dimensions, nil
}

func (c *Client) getMetricsForDimensions(ctx context.Context, dimensions []groupByInput) ([]metric, error) {
	req := c.request(getMetricsForDimensionsQuery)
	req.Var("dimensions", dimensions)
	var resp metricsForDimensionsResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.MetricsForDimensions, nil
}

// GetFields returns the dimensions and metrics compatible with the selection.
// Selected metrics narrow the dimensions and selected dimensions narrow the metrics.
func (c *Client) GetFields(ctx context.Context, view string, selected domain.SemanticLayerSelectedFields) ([]domain.SemanticLayerField, error) {
	if view != ViewName {
		return nil, apperrors.NewAppError(apperrors.ErrCodeNotFound, fmt.Sprintf("view %q not found", view), nil)
	}
	selectedDimensions := make([]groupByInput, 0, len(selected.Dimensions)+len(selected.TimeDimensions))
	for _, d := range selected.Dimensions {
		selectedDimensions = append(selectedDimensions, groupByInput{Name: d})
	}
	for _, td := range selected.TimeDimensions {
		selectedDimensions = append(selectedDimensions, groupByInput{Name: td.Name, Grain: string(td.Granularity)})
	}

	var metrics []metric
	var dimensions []dimension
	var err error

	if len(selectedDimensions) > 0 {
		metrics, err = c.getMetricsForDimensions(ctx, selectedDimensions)
	} else {
		metrics, err = c.getMetrics(ctx)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case len(selected.Metrics) > 0:
		dimensions, err = c.getDimensions(ctx, selected.Metrics)
		if err != nil {
			return nil, err
		}
	case len(selectedDimensions) > 0:
		all, err := c.getMetrics(ctx)
		if err != nil {
			return nil, err
		}
		dimensions = uniqueDimensions(all)
	default:
		dimensions = uniqueDimensions(metrics)
	}

	fields := make([]domain.SemanticLayerField, 0, len(dimensions)+len(metrics))
	for _, d := range dimensions {
		fields = append(fields, dimensionField(d))
	}
	for _, m := range metrics {
		fields = append(fields, metricField(m))
	}
	return fields, nil
}

// GetSQL compiles the query
func (c *Client) GetSQL(ctx context.Context, query domain.SemanticLayerQuery) (string, error) {
	req, err := c.queryRequest(compileSQLMutation, query)
	if err != nil {
		return "", err
	}
	var resp compileSQLResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.CompileSQL.SQL, nil
}

// StreamResults creates the query, polls it until it finishes and hands each
// result page to fn.
func (c *Client) StreamResults(ctx context.Context, query domain.SemanticLayerQuery, fn func([]domain.SemanticLayerResultRow) error) (int, error) {
	log := logging.New("semantic:dbtcloud").WithContext(ctx)

	req, err := c.queryRequest(createQueryMutation, query)
	if err != nil {
		return 0, err
	}
	var created createQueryResponse
	if err := c.run(ctx, req, &created); err != nil {
		return 0, err
	}
	queryID := created.CreateQuery.QueryID
	log.Debugf("Created query %s", queryID)

	first, err := c.waitForQuery(ctx, queryID)
	if err != nil {
		return 0, err
	}

	total := 0
	emit := func(result queryResult) error {
		if result.JSONResult == nil {
			return nil
		}
		rows, err := decodeRows(*result.JSONResult, query)
		if err != nil {
			return err
		}
		total += len(rows)
		return fn(rows)
	}

	if err := emit(first); err != nil {
		return total, err
	}
	pages := 1
	if first.TotalPages != nil {
		pages = *first.TotalPages
	}
	for page := 2; page <= pages; page++ {
		result, err := c.getQueryResults(ctx, queryID, page)
		if err != nil {
			return total, err
		}
		if err := emit(result); err != nil {
			return total, err
		}
	}

	log.Debugf("Query %s returned %d row(s) in %d page(s)", queryID, total, pages)
	return total, nil
}

func (c *Client) getQueryResults(ctx context.Context, queryID string, page int) (queryResult, error) {
	req := c.request(getQueryResultsQuery)
	req.Var("queryId", queryID)
	req.Var("pageNum", page)
	var resp queryResultsResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return queryResult{}, err
	}
	return resp.Query, nil
}

var errQueryPending = errors.New("query still running")

// waitForQuery polls the first page until the query succeeds or fails
func (c *Client) waitForQuery(ctx context.Context, queryID string) (queryResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.PollInitialInterval
	b.MaxInterval = c.opts.PollMaxInterval
	b.MaxElapsedTime = c.opts.PollTimeout

	var result queryResult
	op := func() error {
		r, err := c.getQueryResults(ctx, queryID, 1)
		if err != nil {
			return backoff.Permanent(err)
		}
		switch r.Status {
		case statusSuccessful:
			result = r
			return nil
		case statusFailed:
			msg := "query failed"
			if r.Error != nil && *r.Error != "" {
				msg = *r.Error
			}
			return backoff.Permanent(fmt.Errorf("dbt cloud: %s", msg))
		case statusPending, statusRunning, statusCompiled:
			return errQueryPending
		default:
			return backoff.Permanent(fmt.Errorf("dbt cloud: unexpected query status %q", r.Status))
		}
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errQueryPending) {
			return queryResult{}, fmt.Errorf("dbt cloud: query %s did not finish within %s", queryID, c.opts.PollTimeout)
		}
		return queryResult{}, err
	}
	return result, nil
}

// queryRequest builds a compileSql or createQuery request
func (c *Client) queryRequest(document string, query domain.SemanticLayerQuery) (*graphql.Request, error) {
	where, err := renderWhere(query)
	if err != nil {
		return nil, err
	}

	grains := make(map[string]string, len(query.TimeDimensions))
	groupBy := make([]groupByInput, 0, len(query.Dimensions)+len(query.TimeDimensions))
	for _, d := range query.Dimensions {
		groupBy = append(groupBy, groupByInput{Name: d})
	}
	for _, td := range query.TimeDimensions {
		grains[td.Name] = string(td.Granularity)
		groupBy = append(groupBy, groupByInput{Name: td.Name, Grain: string(td.Granularity)})
	}

	orderBy := make([]orderByInput, 0, len(query.SortBy))
	for _, s := range query.SortBy {
		o := orderByInput{Descending: s.Direction == domain.SortDesc}
		if s.Kind == domain.FieldKindMetric {
			o.Metric = &metricInput{Name: s.Name}
		} else {
			o.GroupBy = &groupByInput{Name: s.Name, Grain: grains[s.Name]}
		}
		orderBy = append(orderBy, o)
	}

	req := c.request(document)
	req.Var("metrics", metricInputs(query.Metrics))
	req.Var("groupBy", groupBy)
	req.Var("where", where)
	req.Var("orderBy", orderBy)
	if query.Limit > 0 {
		req.Var("limit", query.Limit)
	}
	return req, nil
}

func metricInputs(names []string) []metricInput {
	out := make([]metricInput, len(names))
	for i, n := range names {
		out[i] = metricInput{Name: n}
	}
	return out
}

func uniqueDimensions(metrics []metric) []dimension {
	seen := make(map[string]bool)
	var out []dimension
	for _, m := range metrics {
		for _, d := range m.Dimensions {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			out = append(out, d)
		}
	}
	return out
}

func granularities(raw []string) []domain.TimeGranularity {
	out := make([]domain.TimeGranularity, 0, len(raw))
	for _, g := range raw {
		if parsed, err := domain.ParseGranularity(g); err == nil {
			out = append(out, parsed)
		}
	}
	return out
}

func label(l, name string) string {
	if l != "" {
		return l
	}
	return name
}

func dimensionField(d dimension) domain.SemanticLayerField {
	fieldType := domain.FieldTypeString
	if strings.EqualFold(d.Type, "TIME") {
		fieldType = domain.FieldTypeTime
	}
	return domain.SemanticLayerField{
		Name:                   d.Name,
		Label:                  label(d.Label, d.Name),
		Description:            d.Description,
		Type:                   fieldType,
		Kind:                   domain.FieldKindDimension,
		Visible:                true,
		View:                   ViewName,
		AvailableGranularities: granularities(d.QueryableGranularities),
		AvailableOperators:     []domain.FilterOperator{domain.FilterIs, domain.FilterIsNot},
	}
}

func metricField(m metric) domain.SemanticLayerField {
	return domain.SemanticLayerField{
		Name:                   m.Name,
		Label:                  label(m.Label, m.Name),
		Description:            m.Description,
		Type:                   domain.FieldTypeNumber,
		Kind:                   domain.FieldKindMetric,
		Visible:                true,
		View:                   ViewName,
		AggType:                strings.ToLower(m.Type),
		AvailableGranularities: granularities(m.QueryableGranularities),
		AvailableOperators:     []domain.FilterOperator{},
	}
}
