package dbtcloud

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/core/domain"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// fakeAPI answers GraphQL documents by operation name
type fakeAPI struct {
	mu       sync.Mutex
	requests []gqlRequest
	handlers map[string]func(req gqlRequest) any
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer token" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"unauthorized"}]}`))
		return
	}
	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	for name, handler := range f.handlers {
		if strings.Contains(req.Query, name+"(") {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"data": handler(req)})
			return
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": []map[string]string{{"message": "unknown operation"}}})
}

func (f *fakeAPI) last(op string) gqlRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if strings.Contains(f.requests[i].Query, op+"(") {
			return f.requests[i]
		}
	}
	return gqlRequest{}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c, err := NewClient(domain.DbtCloudConnection{BearerToken: "token", EnvironmentID: "123", Domain: srv.URL}, Options{
		HTTPClient:          srv.Client(),
		PollInitialInterval: time.Millisecond,
		PollMaxInterval:     5 * time.Millisecond,
		PollTimeout:         time.Second,
	})
	require.NoError(t, err)
	return c
}

var allMetrics = map[string]any{
	"metrics": []map[string]any{
		{
			"name": "revenue", "label": "Revenue", "type": "SIMPLE", "queryableGranularities": []string{"DAY", "MONTH"},
			"dimensions": []map[string]any{
				{"name": "metric_time", "type": "TIME", "queryableGranularities": []string{"DAY", "MONTH"}},
				{"name": "customer__region", "type": "CATEGORICAL"},
			},
		},
		{
			"name": "orders", "type": "SIMPLE",
			"dimensions": []map[string]any{{"name": "metric_time", "type": "TIME"}},
		},
	},
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(domain.DbtCloudConnection{EnvironmentID: "1"}, Options{})
	assert.Error(t, err)

	_, err = NewClient(domain.DbtCloudConnection{BearerToken: "t", EnvironmentID: "prod"}, Options{})
	assert.Error(t, err)

	c, err := NewClient(domain.DbtCloudConnection{BearerToken: "t", EnvironmentID: "1"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.environmentID)
}

func TestGetViews(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	views, err := c.GetViews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.SemanticLayerView{{Name: "dbt", Label: "dbt", Visible: true}}, views)
}

func TestGetFields_NoSelection(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(gqlRequest) any{
		"metrics": func(gqlRequest) any { return allMetrics },
	}}
	c := newTestClient(t, api)

	fields, err := c.GetFields(context.Background(), "dbt", domain.SemanticLayerSelectedFields{})
	require.NoError(t, err)
	require.Len(t, fields, 4)

	assert.Equal(t, "metric_time", fields[0].Name)
	assert.Equal(t, domain.FieldTypeTime, fields[0].Type)
	assert.Equal(t, []domain.TimeGranularity{domain.GranularityDay, domain.GranularityMonth}, fields[0].AvailableGranularities)
	assert.Equal(t, "customer__region", fields[1].Name)
	assert.Equal(t, domain.FieldTypeString, fields[1].Type)

	assert.Equal(t, "revenue", fields[2].Name)
	assert.Equal(t, "Revenue", fields[2].Label)
	assert.Equal(t, domain.FieldKindMetric, fields[2].Kind)
	assert.Equal(t, "simple", fields[2].AggType)
	assert.Equal(t, "orders", fields[3].Label, "label falls back to name")

	assert.EqualValues(t, 123, api.last("metrics").Variables["environmentId"])
}

func TestGetFields_UnknownView(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(gqlRequest) any{
		"metrics": func(gqlRequest) any { return allMetrics },
	}}
	c := newTestClient(t, api)

	_, err := c.GetFields(context.Background(), "orders", domain.SemanticLayerSelectedFields{})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), `view "orders" not found`)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.requests)
}

func TestGetFields_SelectedMetricsNarrowDimensions(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(gqlRequest) any{
		"metrics": func(gqlRequest) any { return allMetrics },
		"dimensions": func(gqlRequest) any {
			return map[string]any{"dimensions": []map[string]any{{"name": "metric_time", "type": "TIME"}}}
		},
	}}
	c := newTestClient(t, api)

	fields, err := c.GetFields(context.Background(), "dbt", domain.SemanticLayerSelectedFields{Metrics: []string{"orders"}})
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "metric_time", fields[0].Name)

	vars := api.last("dimensions").Variables
	assert.Equal(t, []any{map[string]any{"name": "orders"}}, vars["metrics"])
}

func TestGetFields_SelectedDimensionsNarrowMetrics(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(gqlRequest) any{
		"metrics": func(gqlRequest) any { return allMetrics },
		"metricsForDimensions": func(gqlRequest) any {
			return map[string]any{"metricsForDimensions": []map[string]any{{"name": "revenue", "type": "SIMPLE"}}}
		},
	}}
	c := newTestClient(t, api)

	fields, err := c.GetFields(context.Background(), "dbt", domain.SemanticLayerSelectedFields{
		Dimensions:     []string{"customer__region"},
		TimeDimensions: []domain.SemanticLayerTimeDimension{{Name: "metric_time", Granularity: domain.GranularityMonth}},
	})
	require.NoError(t, err)

	var metrics []string
	for _, f := range fields {
		if f.Kind == domain.FieldKindMetric {
			metrics = append(metrics, f.Name)
		}
	}
	assert.Equal(t, []string{"revenue"}, metrics)

	vars := api.last("metricsForDimensions").Variables
	assert.Equal(t, []any{
		map[string]any{"name": "customer__region"},
		map[string]any{"name": "metric_time", "grain": "MONTH"},
	}, vars["dimensions"])
}

func TestGetSQL(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(gqlRequest) any{
		"compileSql": func(gqlRequest) any {
			return map[string]any{"compileSql": map[string]any{"sql": "SELECT revenue FROM x"}}
		},
	}}
	c := newTestClient(t, api)

	sql, err := c.GetSQL(context.Background(), domain.SemanticLayerQuery{
		Dimensions:     []string{"customer__region"},
		TimeDimensions: []domain.SemanticLayerTimeDimension{{Name: "metric_time", Granularity: domain.GranularityDay}},
		Metrics:        []string{"revenue"},
		Filters: []domain.SemanticLayerFilter{
			{Field: "customer__region", Operator: domain.FilterIs, Values: []string{"EMEA"}},
		},
		SortBy: []domain.SemanticLayerSortBy{
			{Name: "revenue", Kind: domain.FieldKindMetric, Direction: domain.SortDesc},
			{Name: "metric_time", Kind: domain.FieldKindDimension, Direction: domain.SortAsc},
		},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT revenue FROM x", sql)

	vars := api.last("compileSql").Variables
	assert.EqualValues(t, 10, vars["limit"])
	assert.Equal(t, []any{map[string]any{"sql": "{{ Dimension('customer__region') }} = 'EMEA'"}}, vars["where"])
	assert.Equal(t, []any{
		map[string]any{"metric": map[string]any{"name": "revenue"}, "descending": true},
		map[string]any{"groupBy": map[string]any{"name": "metric_time", "grain": "DAY"}, "descending": false},
	}, vars["orderBy"])
}

func encodePage(t *testing.T, data []map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"schema": map[string]any{"fields": []map[string]any{{"name": "index", "type": "integer"}}},
		"data":   data,
	})
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestStreamResults_PollsAndPages(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	page1 := encodePage(t, []map[string]any{
		{"index": 0, "METRIC_TIME__DAY": "2024-01-01", "REVENUE": 10},
		{"index": 1, "METRIC_TIME__DAY": "2024-01-02", "REVENUE": 12},
	})
	page2 := encodePage(t, []map[string]any{{"index": 2, "METRIC_TIME__DAY": "2024-01-03", "REVENUE": 7}})

	api := &fakeAPI{handlers: map[string]func(gqlRequest) any{
		"createQuery": func(gqlRequest) any {
			return map[string]any{"createQuery": map[string]any{"queryId": "q-1"}}
		},
		"query": func(req gqlRequest) any {
			mu.Lock()
			defer mu.Unlock()
			if req.Variables["pageNum"] == float64(2) {
				return map[string]any{"query": map[string]any{"status": "SUCCESSFUL", "jsonResult": page2, "totalPages": 2}}
			}
			polls++
			if polls < 3 {
				return map[string]any{"query": map[string]any{"status": "RUNNING"}}
			}
			return map[string]any{"query": map[string]any{"status": "SUCCESSFUL", "jsonResult": page1, "totalPages": 2}}
		},
	}}
	c := newTestClient(t, api)

	var pages [][]domain.SemanticLayerResultRow
	n, err := c.StreamResults(context.Background(), domain.SemanticLayerQuery{
		TimeDimensions: []domain.SemanticLayerTimeDimension{{Name: "metric_time", Granularity: domain.GranularityDay}},
		Metrics:        []string{"revenue"},
	}, func(rows []domain.SemanticLayerResultRow) error {
		pages = append(pages, rows)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, polls)
	require.Len(t, pages, 2)
	assert.Equal(t, domain.SemanticLayerResultRow{"metric_time": "2024-01-01", "revenue": float64(10)}, pages[0][0])
	assert.Equal(t, "2024-01-03", pages[1][0]["metric_time"])
}

func TestStreamResults_Failed(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(gqlRequest) any{
		"createQuery": func(gqlRequest) any {
			return map[string]any{"createQuery": map[string]any{"queryId": "q-1"}}
		},
		"query": func(gqlRequest) any {
			return map[string]any{"query": map[string]any{"status": "FAILED", "error": "metric not found"}}
		},
	}}
	c := newTestClient(t, api)

	_, err := c.StreamResults(context.Background(), domain.SemanticLayerQuery{Metrics: []string{"nope"}}, func([]domain.SemanticLayerResultRow) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metric not found")
}

func TestStreamResults_PollTimeout(t *testing.T) {
	api := &fakeAPI{handlers: map[string]func(gqlRequest) any{
		"createQuery": func(gqlRequest) any {
			return map[string]any{"createQuery": map[string]any{"queryId": "q-1"}}
		},
		"query": func(gqlRequest) any {
			return map[string]any{"query": map[string]any{"status": "PENDING"}}
		},
	}}
	c := newTestClient(t, api)
	c.opts.PollTimeout = 30 * time.Millisecond

	_, err := c.StreamResults(context.Background(), domain.SemanticLayerQuery{Metrics: []string{"revenue"}}, func([]domain.SemanticLayerResultRow) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not finish")
}

func TestRenderWhere(t *testing.T) {
	query := domain.SemanticLayerQuery{
		Dimensions:     []string{"customer__region"},
		TimeDimensions: []domain.SemanticLayerTimeDimension{{Name: "metric_time", Granularity: domain.GranularityMonth}},
		Filters: []domain.SemanticLayerFilter{
			{Field: "customer__region", Operator: domain.FilterIsNot, Values: []string{"O'Brien", "EMEA"}},
			{Or: []domain.SemanticLayerFilter{
				{Field: "metric_time", FieldType: domain.FieldTypeTime, Operator: domain.FilterIs, Values: []string{"2024-01-01"}},
				{Field: "is_active", FieldType: domain.FieldTypeBoolean, Operator: domain.FilterIs, Values: []string{"true"}},
			}},
			{Field: "revenue", FieldKind: domain.FieldKindMetric, FieldType: domain.FieldTypeNumber, Operator: domain.FilterIs, Values: []string{"100"}},
		},
	}

	where, err := renderWhere(query)
	require.NoError(t, err)
	assert.Equal(t, []whereInput{
		{SQL: "{{ Dimension('customer__region') }} NOT IN ('O''Brien', 'EMEA')"},
		{SQL: "({{ TimeDimension('metric_time', 'MONTH') }} = '2024-01-01' OR {{ Dimension('is_active') }} = TRUE)"},
		{SQL: "{{ Metric('revenue', group_by=['customer__region']) }} = 100"},
	}, where)

	_, err = renderWhere(domain.SemanticLayerQuery{Filters: []domain.SemanticLayerFilter{{Field: "x", Operator: "LIKE", Values: []string{"a"}}}})
	assert.Error(t, err)
}
