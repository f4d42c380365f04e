package dbtcloud

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/semlayer/semlayer/core/domain"
)

// tableResult is the pandas "table" orientation the API encodes jsonResult in
type tableResult struct {
	Schema struct {
		Fields []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fields"`
	} `json:"schema"`
	Data []map[string]any `json:"data"`
}

// decodeRows decodes a base64 jsonResult page into rows keyed by field name
func decodeRows(encoded string, query domain.SemanticLayerQuery) ([]domain.SemanticLayerResultRow, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode query results: %w", err)
	}
	var table tableResult
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to parse query results: %w", err)
	}

	// Time dimensions come back as name__grain
	rename := make(map[string]string, len(query.TimeDimensions))
	for _, td := range query.TimeDimensions {
		if td.Granularity != "" {
			rename[strings.ToLower(td.Name+"__"+string(td.Granularity))] = td.Name
		}
	}

	rows := make([]domain.SemanticLayerResultRow, 0, len(table.Data))
	for _, record := range table.Data {
		row := make(domain.SemanticLayerResultRow, len(record))
		for key, value := range record {
			name := strings.ToLower(key)
			if name == "index" {
				continue
			}
			if field, ok := rename[name]; ok {
				name = field
			}
			row[name] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}
