package domain

import (
	"fmt"
	"strings"
)

// MaxQueryLimit caps the number of rows a single semantic layer query may return.
const MaxQueryLimit = 5000

// FieldType is the value type of a semantic layer field
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeTime    FieldType = "time"
)

// FieldKind tells dimensions and metrics apart
type FieldKind string

const (
	FieldKindDimension FieldKind = "dimension"
	FieldKindMetric    FieldKind = "metric"
)

// TimeGranularity uses dbt Cloud naming; the Cube client maps it to its own.
type TimeGranularity string

const (
	GranularityNanosecond  TimeGranularity = "NANOSECOND"
	GranularityMicrosecond TimeGranularity = "MICROSECOND"
	GranularityMillisecond TimeGranularity = "MILLISECOND"
	GranularitySecond      TimeGranularity = "SECOND"
	GranularityMinute      TimeGranularity = "MINUTE"
	GranularityHour        TimeGranularity = "HOUR"
	GranularityDay         TimeGranularity = "DAY"
	GranularityWeek        TimeGranularity = "WEEK"
	GranularityMonth       TimeGranularity = "MONTH"
	GranularityQuarter     TimeGranularity = "QUARTER"
	GranularityYear        TimeGranularity = "YEAR"
)

var granularities = map[TimeGranularity]bool{
	GranularityNanosecond: true, GranularityMicrosecond: true, GranularityMillisecond: true,
	GranularitySecond: true, GranularityMinute: true, GranularityHour: true,
	GranularityDay: true, GranularityWeek: true, GranularityMonth: true,
	GranularityQuarter: true, GranularityYear: true,
}

// ParseGranularity parses a granularity case-insensitively
func ParseGranularity(s string) (TimeGranularity, error) {
	g := TimeGranularity(strings.ToUpper(strings.TrimSpace(s)))
	if !granularities[g] {
		return "", fmt.Errorf("unknown time granularity %q", s)
	}
	return g, nil
}

// SortDirection of a sort clause
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// FilterOperator of a filter clause
type FilterOperator string

const (
	FilterIs    FilterOperator = "IS"
	FilterIsNot FilterOperator = "IS_NOT"
)

// SemanticLayerView is a group of fields the user can explore
type SemanticLayerView struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Visible     bool   `json:"visible"`
}

// SemanticLayerField describes a dimension or a metric
type SemanticLayerField struct {
	Name                   string            `json:"name"`
	Label                  string            `json:"label"`
	Description            string            `json:"description,omitempty"`
	Type                   FieldType         `json:"type"`
	Kind                   FieldKind         `json:"kind"`
	Visible                bool              `json:"visible"`
	View                   string            `json:"view,omitempty"`
	AggType                string            `json:"aggType,omitempty"`
	AvailableGranularities []TimeGranularity `json:"availableGranularities"`
	AvailableOperators     []FilterOperator  `json:"availableOperators"`
}

// SemanticLayerTimeDimension is a time dimension truncated to a granularity
type SemanticLayerTimeDimension struct {
	Name        string          `json:"name" validate:"required"`
	Granularity TimeGranularity `json:"granularity,omitempty"`
}

// SemanticLayerSortBy orders the results by one field
type SemanticLayerSortBy struct {
	Name      string        `json:"name" validate:"required"`
	Kind      FieldKind     `json:"kind" validate:"required,oneof=dimension metric"`
	Direction SortDirection `json:"direction" validate:"required,oneof=ASC DESC"`
}

// SemanticLayerFilter restricts the rows. A filter is either a leaf
// (Field + Operator + Values) or a group (And / Or).
type SemanticLayerFilter struct {
	UUID      string                `json:"uuid,omitempty"`
	Field     string                `json:"fieldRef,omitempty"`
	FieldKind FieldKind             `json:"fieldKind,omitempty"`
	FieldType FieldType             `json:"fieldType,omitempty"`
	Operator  FilterOperator        `json:"operator,omitempty"`
	Values    []string              `json:"values,omitempty"`
	And       []SemanticLayerFilter `json:"and,omitempty" validate:"dive"`
	Or        []SemanticLayerFilter `json:"or,omitempty" validate:"dive"`
}

// IsGroup reports whether the filter only combines other filters
func (f SemanticLayerFilter) IsGroup() bool {
	return f.Field == "" && (len(f.And) > 0 || len(f.Or) > 0)
}

// Validate checks the leaf/group shape recursively
func (f SemanticLayerFilter) Validate() error {
	if f.IsGroup() {
		for _, sub := range append(append([]SemanticLayerFilter{}, f.And...), f.Or...) {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
		return nil
	}
	if f.Field == "" {
		return fmt.Errorf("filter %q has no field", f.UUID)
	}
	if f.Operator != FilterIs && f.Operator != FilterIsNot {
		return fmt.Errorf("filter on %q has unsupported operator %q", f.Field, f.Operator)
	}
	if len(f.Values) == 0 {
		return fmt.Errorf("filter on %q has no values", f.Field)
	}
	return nil
}

// SemanticLayerQuery is forwarded to the selected semantic layer client
type SemanticLayerQuery struct {
	Dimensions     []string                     `json:"dimensions" validate:"dive,required"`
	TimeDimensions []SemanticLayerTimeDimension `json:"timeDimensions" validate:"dive"`
	Metrics        []string                     `json:"metrics" validate:"dive,required"`
	Filters        []SemanticLayerFilter        `json:"filters,omitempty" validate:"dive"`
	SortBy         []SemanticLayerSortBy        `json:"sortBy,omitempty" validate:"dive"`
	Limit          int                          `json:"limit,omitempty" validate:"gte=0,lte=5000"`
	Timezone       string                       `json:"timezone,omitempty"`
}

// IsEmpty reports whether the query selects nothing
func (q SemanticLayerQuery) IsEmpty() bool {
	return len(q.Dimensions) == 0 && len(q.TimeDimensions) == 0 && len(q.Metrics) == 0
}

// Validate runs the checks struct tags cannot express
func (q SemanticLayerQuery) Validate() error {
	if q.IsEmpty() {
		return fmt.Errorf("query must select at least one dimension or metric")
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	if q.Limit > MaxQueryLimit {
		return fmt.Errorf("limit must not exceed %d", MaxQueryLimit)
	}
	for _, td := range q.TimeDimensions {
		if td.Granularity != "" && !granularities[td.Granularity] {
			return fmt.Errorf("time dimension %q has unknown granularity %q", td.Name, td.Granularity)
		}
	}
	for _, f := range q.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SemanticLayerSelectedFields narrows the fields returned for a view
type SemanticLayerSelectedFields struct {
	Dimensions     []string                     `json:"dimensions"`
	TimeDimensions []SemanticLayerTimeDimension `json:"timeDimensions"`
	Metrics        []string                     `json:"metrics"`
}

// SemanticLayerResultRow is one row of query results keyed by field name
type SemanticLayerResultRow = map[string]any

// SemanticLayerResultColumns returns the ordered column names for a query:
// dimensions, then time dimensions, then metrics.
func SemanticLayerResultColumns(q SemanticLayerQuery) []string {
	cols := make([]string, 0, len(q.Dimensions)+len(q.TimeDimensions)+len(q.Metrics))
	cols = append(cols, q.Dimensions...)
	for _, td := range q.TimeDimensions {
		cols = append(cols, td.Name)
	}
	cols = append(cols, q.Metrics...)
	return cols
}
