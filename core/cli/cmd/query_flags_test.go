package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/core/domain"
)

func TestQueryFlags_Build(t *testing.T) {
	flags := queryFlags{
		dimensions:     []string{"status"},
		timeDimensions: []string{"order_date:month"},
		metrics:        []string{"revenue"},
		filters:        []string{"status!=returned|lost", "revenue=10"},
		sorts:          []string{"revenue:desc", "status"},
		limit:          100,
		timezone:       "Europe/Lisbon",
	}

	query, err := flags.build()
	require.NoError(t, err)

	assert.Equal(t, []domain.SemanticLayerTimeDimension{{Name: "order_date", Granularity: domain.GranularityMonth}}, query.TimeDimensions)
	require.Len(t, query.Filters, 2)
	assert.Equal(t, domain.FilterIsNot, query.Filters[0].Operator)
	assert.Equal(t, []string{"returned", "lost"}, query.Filters[0].Values)
	assert.Equal(t, domain.FieldKindDimension, query.Filters[0].FieldKind)
	assert.Equal(t, domain.FieldKindMetric, query.Filters[1].FieldKind)
	assert.NotEmpty(t, query.Filters[0].UUID)
	assert.NotEqual(t, query.Filters[0].UUID, query.Filters[1].UUID)

	assert.Equal(t, []domain.SemanticLayerSortBy{
		{Name: "revenue", Kind: domain.FieldKindMetric, Direction: domain.SortDesc},
		{Name: "status", Kind: domain.FieldKindDimension, Direction: domain.SortAsc},
	}, query.SortBy)
	assert.Equal(t, 100, query.Limit)
	assert.Equal(t, "Europe/Lisbon", query.Timezone)
}

func TestQueryFlags_BuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags queryFlags
		want  string
	}{
		{"empty selection", queryFlags{}, "at least one dimension or metric"},
		{"limit too high", queryFlags{metrics: []string{"revenue"}, limit: 5001}, "must not exceed"},
		{"negative limit", queryFlags{metrics: []string{"revenue"}, limit: -1}, "negative"},
		{"bad granularity", queryFlags{timeDimensions: []string{"order_date:fortnight"}}, "unknown granularity"},
		{"filter without operator", queryFlags{metrics: []string{"revenue"}, filters: []string{"status"}}, "expected field=value"},
		{"filter without value", queryFlags{metrics: []string{"revenue"}, filters: []string{"status="}}, "field and value are required"},
		{"bad sort direction", queryFlags{metrics: []string{"revenue"}, sorts: []string{"revenue:sideways"}}, "invalid sort direction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResultColumns(t *testing.T) {
	query := domain.SemanticLayerQuery{
		Dimensions:     []string{"status"},
		TimeDimensions: []domain.SemanticLayerTimeDimension{{Name: "order_date"}},
		Metrics:        []string{"revenue"},
	}
	rows := []domain.SemanticLayerResultRow{
		{"revenue": 10, "status": "shipped", "order_date": "2024-01-01", "zeta": 1, "alpha": 2},
	}

	assert.Equal(t, []string{"status", "order_date", "revenue", "alpha", "zeta"}, resultColumns(query, rows))
	assert.Equal(t, []string{"status", "order_date", "revenue"}, resultColumns(query, nil))
}

func TestSessionUserFromFlags(t *testing.T) {
	tokenUser, tokenOrganization, tokenRole = "u1", "org-1", "member"
	tokenProjectRoles = []string{"p1=editor"}
	t.Cleanup(func() { tokenProjectRoles = nil })

	user, err := sessionUserFromFlags()
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, user.OrganizationRole)
	assert.Equal(t, map[string]domain.Role{"p1": domain.RoleEditor}, user.ProjectRoles)

	tokenProjectRoles = []string{"p1=owner"}
	_, err = sessionUserFromFlags()
	assert.Error(t, err)

	tokenProjectRoles, tokenRole = nil, "superuser"
	_, err = sessionUserFromFlags()
	assert.Error(t, err)
}

func TestShouldTriggerReload(t *testing.T) {
	assert.True(t, shouldTriggerReload("conf/semlayer.yaml", "conf/semlayer.yaml"))
	assert.True(t, shouldTriggerReload("conf/semlayer.yaml", "conf/.env"))
	assert.True(t, shouldTriggerReload("conf/semlayer.yaml", "conf/.env.local"))
	assert.False(t, shouldTriggerReload("conf/semlayer.yaml", "conf/other.yaml"))
	assert.False(t, shouldTriggerReload("conf/semlayer.yaml", "conf/.environment"))
}

func TestEnvOr(t *testing.T) {
	t.Setenv("SEMLAYER_TEST_URL", "http://env")
	assert.Equal(t, "http://flag", envOr("SEMLAYER_TEST_URL", "http://default", "http://flag"))
	assert.Equal(t, "http://env", envOr("SEMLAYER_TEST_URL", "http://default", ""))
	assert.Equal(t, "http://default", envOr("SEMLAYER_TEST_UNSET", "http://default", ""))
}
