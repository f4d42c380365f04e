package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/semlayer/semlayer/core/domain"
)

// queryFlags are the raw query command flags
type queryFlags struct {
	dimensions     []string
	timeDimensions []string
	metrics        []string
	filters        []string
	sorts          []string
	limit          int
	timezone       string
}

// build turns the flags into a validated query
func (f queryFlags) build() (domain.SemanticLayerQuery, error) {
	query := domain.SemanticLayerQuery{
		Dimensions: f.dimensions,
		Metrics:    f.metrics,
		Limit:      f.limit,
		Timezone:   f.timezone,
	}

	for _, raw := range f.timeDimensions {
		td, err := parseTimeDimension(raw)
		if err != nil {
			return query, err
		}
		query.TimeDimensions = append(query.TimeDimensions, td)
	}
	for _, raw := range f.filters {
		filter, err := parseFilter(raw, f.metrics)
		if err != nil {
			return query, err
		}
		query.Filters = append(query.Filters, filter)
	}
	for _, raw := range f.sorts {
		sort, err := parseSort(raw, f.metrics)
		if err != nil {
			return query, err
		}
		query.SortBy = append(query.SortBy, sort)
	}

	if err := query.Validate(); err != nil {
		return query, err
	}
	return query, nil
}

// parseTimeDimension reads "name" or "name:granularity"
func parseTimeDimension(raw string) (domain.SemanticLayerTimeDimension, error) {
	name, granularity, _ := strings.Cut(raw, ":")
	if name == "" {
		return domain.SemanticLayerTimeDimension{}, fmt.Errorf("invalid time dimension %q", raw)
	}
	return domain.SemanticLayerTimeDimension{
		Name:        name,
		Granularity: domain.TimeGranularity(strings.ToUpper(granularity)),
	}, nil
}

// parseFilter reads "field=v1|v2" (IS) or "field!=v1|v2" (IS_NOT)
func parseFilter(raw string, metrics []string) (domain.SemanticLayerFilter, error) {
	operator := domain.FilterIs
	field, values, ok := strings.Cut(raw, "!=")
	if ok {
		operator = domain.FilterIsNot
	} else if field, values, ok = strings.Cut(raw, "="); !ok {
		return domain.SemanticLayerFilter{}, fmt.Errorf("invalid filter %q: expected field=value or field!=value", raw)
	}
	if field == "" || values == "" {
		return domain.SemanticLayerFilter{}, fmt.Errorf("invalid filter %q: field and value are required", raw)
	}

	return domain.SemanticLayerFilter{
		UUID:      uuid.NewString(),
		Field:     field,
		FieldKind: fieldKind(field, metrics),
		Operator:  operator,
		Values:    strings.Split(values, "|"),
	}, nil
}

// parseSort reads "field" or "field:asc|desc"
func parseSort(raw string, metrics []string) (domain.SemanticLayerSortBy, error) {
	name, direction, _ := strings.Cut(raw, ":")
	if name == "" {
		return domain.SemanticLayerSortBy{}, fmt.Errorf("invalid sort %q", raw)
	}

	dir := domain.SortAsc
	switch strings.ToUpper(direction) {
	case "", "ASC":
	case "DESC":
		dir = domain.SortDesc
	default:
		return domain.SemanticLayerSortBy{}, fmt.Errorf("invalid sort direction %q for %s", direction, name)
	}

	return domain.SemanticLayerSortBy{Name: name, Kind: fieldKind(name, metrics), Direction: dir}, nil
}

func fieldKind(name string, metrics []string) domain.FieldKind {
	if slices.Contains(metrics, name) {
		return domain.FieldKindMetric
	}
	return domain.FieldKindDimension
}

// resultColumns orders columns as selected, then any extra keys sorted
func resultColumns(query domain.SemanticLayerQuery, rows []domain.SemanticLayerResultRow) []string {
	seen := make(map[string]bool)
	var columns []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}

	present := func(name string) bool {
		for _, row := range rows {
			if _, ok := row[name]; ok {
				return true
			}
		}
		return len(rows) == 0
	}
	for _, d := range query.Dimensions {
		if present(d) {
			add(d)
		}
	}
	for _, td := range query.TimeDimensions {
		if present(td.Name) {
			add(td.Name)
		}
	}
	for _, m := range query.Metrics {
		if present(m) {
			add(m)
		}
	}

	var extra []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] && !slices.Contains(extra, key) {
				extra = append(extra, key)
			}
		}
	}
	slices.Sort(extra)
	for _, key := range extra {
		add(key)
	}
	return columns
}
