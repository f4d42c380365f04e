package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/core/domain"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"metrics":["revenue"],"limit":20}`))
	var q domain.SemanticLayerQuery
	require.NoError(t, DecodeJSON(req, &q))
	assert.Equal(t, []string{"revenue"}, q.Metrics)
	assert.Equal(t, 20, q.Limit)
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	var q domain.SemanticLayerQuery
	assert.NoError(t, DecodeJSON(req, &q))
}

func TestDecodeJSON_ReportsFieldsByJSONName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"metrics":["revenue"],"sortBy":[{"name":"revenue","kind":"metric","direction":"UP"}]}`))
	var q domain.SemanticLayerQuery
	err := DecodeJSON(req, &q)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Contains(t, err.Error(), "sortBy[0].direction (oneof)")
}

func TestDecodeJSON_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[1,2`))
	var q domain.SemanticLayerQuery
	err := DecodeJSON(req, &q)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, appErr.Code)
}
