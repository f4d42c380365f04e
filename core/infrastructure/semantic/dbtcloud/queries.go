package dbtcloud

const metricFields = `name description label type queryableGranularities`

const dimensionFields = `name description label type queryableGranularities`

const getMetricsQuery = `
query GetMetrics($environmentId: BigInt!) {
  metrics(environmentId: $environmentId) {
    ` + metricFields + `
    dimensions { ` + dimensionFields + ` }
  }
}`

const getDimensionsQuery = `
query GetDimensions($environmentId: BigInt!, $metrics: [MetricInput!]!) {
  dimensions(environmentId: $environmentId, metrics: $metrics) { ` + dimensionFields + ` }
}`

const getMetricsForDimensionsQuery = `
query GetMetricsForDimensions($environmentId: BigInt!, $dimensions: [GroupByInput!]!) {
  metricsForDimensions(environmentId: $environmentId, dimensions: $dimensions) { ` + metricFields + ` }
}`

const compileSQLMutation = `
mutation CompileSql($environmentId: BigInt!, $metrics: [MetricInput!]!, $groupBy: [GroupByInput!], $where: [WhereInput!], $orderBy: [OrderByInput!], $limit: Int) {
  compileSql(environmentId: $environmentId, metrics: $metrics, groupBy: $groupBy, where: $where, orderBy: $orderBy, limit: $limit) {
    sql
  }
}`

const createQueryMutation = `
mutation CreateQuery($environmentId: BigInt!, $metrics: [MetricInput!]!, $groupBy: [GroupByInput!], $where: [WhereInput!], $orderBy: [OrderByInput!], $limit: Int) {
  createQuery(environmentId: $environmentId, metrics: $metrics, groupBy: $groupBy, where: $where, orderBy: $orderBy, limit: $limit) {
    queryId
  }
}`

const getQueryResultsQuery = `
query GetQueryResults($environmentId: BigInt!, $queryId: String!, $pageNum: Int) {
  query(environmentId: $environmentId, queryId: $queryId, pageNum: $pageNum) {
    status
    error
    queryId
    sql
    jsonResult
    totalPages
  }
}`

// Query statuses reported by the Semantic Layer API
const (
	statusPending    = "PENDING"
	statusRunning    = "RUNNING"
	statusCompiled   = "COMPILED"
	statusSuccessful = "SUCCESSFUL"
	statusFailed     = "FAILED"
)

type metricInput struct {
	Name string `json:"name"`
}

type groupByInput struct {
	Name  string `json:"name"`
	Grain string `json:"grain,omitempty"`
}

type whereInput struct {
	SQL string `json:"sql"`
}

type orderByInput struct {
	Metric     *metricInput  `json:"metric,omitempty"`
	GroupBy    *groupByInput `json:"groupBy,omitempty"`
	Descending bool          `json:"descending"`
}

type dimension struct {
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	Label                  string   `json:"label"`
	Type                   string   `json:"type"`
	QueryableGranularities []string `json:"queryableGranularities"`
}

type metric struct {
	Name                   string      `json:"name"`
	Description            string      `json:"description"`
	Label                  string      `json:"label"`
	Type                   string      `json:"type"`
	QueryableGranularities []string    `json:"queryableGranularities"`
	Dimensions             []dimension `json:"dimensions"`
}

type metricsResponse struct {
	Metrics []metric `json:"metrics"`
}

type dimensionsResponse struct {
	Dimensions []dimension `json:"dimensions"`
}

type metricsForDimensionsResponse struct {
	MetricsForDimensions []metric `json:"metricsForDimensions"`
}

type compileSQLResponse struct {
	CompileSQL struct {
		SQL string `json:"sql"`
	} `json:"compileSql"`
}

type createQueryResponse struct {
	CreateQuery struct {
		QueryID string `json:"queryId"`
	} `json:"createQuery"`
}

type queryResult struct {
	Status     string  `json:"status"`
	Error      *string `json:"error"`
	QueryID    string  `json:"queryId"`
	SQL        *string `json:"sql"`
	JSONResult *string `json:"jsonResult"`
	TotalPages *int    `json:"totalPages"`
}

type queryResultsResponse struct {
	Query queryResult `json:"query"`
}
