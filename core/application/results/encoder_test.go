package results

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/core/domain"
)

func TestJSONLEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder("", &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "jsonl", enc.Extension())

	require.NoError(t, enc.WriteRows([]domain.SemanticLayerResultRow{
		{"status": "paid", "revenue": 10.5},
		{"status": "refunded", "revenue": nil},
	}))
	require.NoError(t, enc.Close())

	assert.Equal(t, "{\"revenue\":10.5,\"status\":\"paid\"}\n{\"revenue\":null,\"status\":\"refunded\"}\n", buf.String())
}

func TestCSVEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(domain.ResultsFormatCSV, &buf, []string{"status", "revenue"})
	require.NoError(t, err)

	require.NoError(t, enc.WriteRows([]domain.SemanticLayerResultRow{{"status": "paid, late", "revenue": 10.5}}))
	require.NoError(t, enc.WriteRows([]domain.SemanticLayerResultRow{{"status": "open", "revenue": true}}))
	require.NoError(t, enc.Close())

	assert.Equal(t, "status,revenue\n\"paid, late\",10.5\nopen,true\n", buf.String())
	assert.Equal(t, "text/csv", enc.ContentType())
}

func TestCSVEncoder_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(domain.ResultsFormatCSV, &buf, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	assert.Equal(t, "a,b\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultsFormatJSONL, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultsFormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)

	_, err = NewEncoder("xlsx", &bytes.Buffer{}, nil)
	assert.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/csv", ContentTypeFor("p/file.csv"))
	assert.Equal(t, "application/jsonl", ContentTypeFor("p/file.jsonl"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("p/file"))
}
