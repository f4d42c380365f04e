package dbtcloud

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/semlayer/semlayer/core/domain"
)

// renderWhere turns each top level filter into a where clause. Clauses are
// combined with AND by the Semantic Layer.
func renderWhere(query domain.SemanticLayerQuery) ([]whereInput, error) {
	where := make([]whereInput, 0, len(query.Filters))
	for _, f := range query.Filters {
		sql, err := renderFilter(f, query)
		if err != nil {
			return nil, err
		}
		where = append(where, whereInput{SQL: sql})
	}
	return where, nil
}

func renderFilter(f domain.SemanticLayerFilter, query domain.SemanticLayerQuery) (string, error) {
	if f.IsGroup() {
		parts := make([]string, 0, len(f.And)+len(f.Or))
		if len(f.And) > 0 {
			and, err := renderGroup(f.And, "AND", query)
			if err != nil {
				return "", err
			}
			parts = append(parts, and)
		}
		if len(f.Or) > 0 {
			or, err := renderGroup(f.Or, "OR", query)
			if err != nil {
				return "", err
			}
			parts = append(parts, or)
		}
		return strings.Join(parts, " AND "), nil
	}

	if err := f.Validate(); err != nil {
		return "", err
	}

	ref := fieldRef(f, query)
	values := make([]string, len(f.Values))
	for i, v := range f.Values {
		values[i] = literal(v, f.FieldType)
	}

	switch {
	case len(values) == 1 && f.Operator == domain.FilterIs:
		return fmt.Sprintf("%s = %s", ref, values[0]), nil
	case len(values) == 1:
		return fmt.Sprintf("%s != %s", ref, values[0]), nil
	case f.Operator == domain.FilterIs:
		return fmt.Sprintf("%s IN (%s)", ref, strings.Join(values, ", ")), nil
	default:
		return fmt.Sprintf("%s NOT IN (%s)", ref, strings.Join(values, ", ")), nil
	}
}

func renderGroup(filters []domain.SemanticLayerFilter, op string, query domain.SemanticLayerQuery) (string, error) {
	parts := make([]string, 0, len(filters))
	for _, sub := range filters {
		sql, err := renderFilter(sub, query)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", nil
}

// fieldRef renders the Jinja reference to the filtered field
func fieldRef(f domain.SemanticLayerFilter, query domain.SemanticLayerQuery) string {
	switch {
	case f.FieldKind == domain.FieldKindMetric:
		groupBy := make([]string, len(query.Dimensions))
		for i, d := range query.Dimensions {
			groupBy[i] = quote(d)
		}
		return fmt.Sprintf("{{ Metric(%s, group_by=[%s]) }}", quote(f.Field), strings.Join(groupBy, ", "))
	case f.FieldType == domain.FieldTypeTime:
		grain := domain.GranularityDay
		for _, td := range query.TimeDimensions {
			if td.Name == f.Field && td.Granularity != "" {
				grain = td.Granularity
			}
		}
		return fmt.Sprintf("{{ TimeDimension(%s, %s) }}", quote(f.Field), quote(string(grain)))
	default:
		return fmt.Sprintf("{{ Dimension(%s) }}", quote(f.Field))
	}
}

func literal(v string, fieldType domain.FieldType) string {
	switch fieldType {
	case domain.FieldTypeNumber:
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return v
		}
	case domain.FieldTypeBoolean:
		if b, err := strconv.ParseBool(v); err == nil {
			return strings.ToUpper(strconv.FormatBool(b))
		}
	}
	return quote(v)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
