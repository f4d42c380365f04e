package cube

import (
	"fmt"
	"strings"

	"github.com/semlayer/semlayer/core/domain"
)

// toCubeQuery converts a semantic layer query into a Cube REST query
func toCubeQuery(q domain.SemanticLayerQuery) (query, error) {
	out := query{
		Measures:       append([]string{}, q.Metrics...),
		Dimensions:     append([]string{}, q.Dimensions...),
		TimeDimensions: make([]timeDimension, 0, len(q.TimeDimensions)),
		Limit:          q.Limit,
		Timezone:       q.Timezone,
	}

	for _, td := range q.TimeDimensions {
		g, err := granularity(td.Granularity)
		if err != nil {
			return query{}, err
		}
		out.TimeDimensions = append(out.TimeDimensions, timeDimension{Dimension: td.Name, Granularity: g})
	}

	for _, f := range q.Filters {
		cf, err := toCubeFilter(f)
		if err != nil {
			return query{}, err
		}
		out.Filters = append(out.Filters, cf)
	}

	for _, s := range q.SortBy {
		dir := "asc"
		if s.Direction == domain.SortDesc {
			dir = "desc"
		}
		out.Order = append(out.Order, [2]string{s.Name, dir})
	}
	return out, nil
}

// granularity maps to Cube's lowercase names. Sub-second grains are not supported.
func granularity(g domain.TimeGranularity) (string, error) {
	switch g {
	case "":
		return "", nil
	case domain.GranularityNanosecond, domain.GranularityMicrosecond, domain.GranularityMillisecond:
		return "", fmt.Errorf("cube does not support %s granularity", strings.ToLower(string(g)))
	default:
		return strings.ToLower(string(g)), nil
	}
}

func toCubeFilter(f domain.SemanticLayerFilter) (filter, error) {
	if f.IsGroup() {
		and, err := toCubeFilters(f.And)
		if err != nil {
			return filter{}, err
		}
		or, err := toCubeFilters(f.Or)
		if err != nil {
			return filter{}, err
		}
		switch {
		case len(and) > 0 && len(or) > 0:
			return filter{And: []filter{{And: and}, {Or: or}}}, nil
		case len(or) > 0:
			return filter{Or: or}, nil
		default:
			return filter{And: and}, nil
		}
	}

	if err := f.Validate(); err != nil {
		return filter{}, err
	}
	op := "equals"
	if f.Operator == domain.FilterIsNot {
		op = "notEquals"
	}
	return filter{Member: f.Field, Operator: op, Values: f.Values}, nil
}

func toCubeFilters(filters []domain.SemanticLayerFilter) ([]filter, error) {
	out := make([]filter, 0, len(filters))
	for _, f := range filters {
		cf, err := toCubeFilter(f)
		if err != nil {
			return nil, err
		}
		out = append(out, cf)
	}
	return out, nil
}
