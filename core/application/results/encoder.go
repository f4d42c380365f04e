package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/semlayer/semlayer/core/domain"
)

// Encoder writes result rows in one file format
type Encoder interface {
	WriteRows(rows []domain.SemanticLayerResultRow) error
	// Close flushes buffered output. It does not close the underlying writer.
	Close() error
	ContentType() string
	Extension() string
}

// NewEncoder returns the encoder for format. An empty format selects JSONL.
func NewEncoder(format domain.ResultsFormat, w io.Writer, columns []string) (Encoder, error) {
	switch format {
	case "", domain.ResultsFormatJSONL:
		return &jsonlEncoder{enc: json.NewEncoder(w)}, nil
	case domain.ResultsFormatCSV:
		return &csvEncoder{w: csv.NewWriter(w), columns: columns}, nil
	default:
		return nil, fmt.Errorf("unsupported results format %q", format)
	}
}

// ParseFormat validates a format name
func ParseFormat(s string) (domain.ResultsFormat, error) {
	switch domain.ResultsFormat(s) {
	case "":
		return domain.ResultsFormatJSONL, nil
	case domain.ResultsFormatJSONL, domain.ResultsFormatCSV:
		return domain.ResultsFormat(s), nil
	default:
		return "", fmt.Errorf("unsupported results format %q", s)
	}
}

// ContentTypeFor returns the content type of a results file by its extension
func ContentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	case strings.HasSuffix(name, ".jsonl"):
		return "application/jsonl"
	default:
		return "application/octet-stream"
	}
}

type jsonlEncoder struct {
	enc *json.Encoder
}

func (e *jsonlEncoder) WriteRows(rows []domain.SemanticLayerResultRow) error {
	for _, row := range rows {
		if err := e.enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
	}
	return nil
}

func (e *jsonlEncoder) Close() error        { return nil }
func (e *jsonlEncoder) ContentType() string { return "application/jsonl" }
func (e *jsonlEncoder) Extension() string   { return "jsonl" }

type csvEncoder struct {
	w             *csv.Writer
	columns       []string
	headerWritten bool
}

func (e *csvEncoder) writeHeader() error {
	if e.headerWritten {
		return nil
	}
	e.headerWritten = true
	return e.w.Write(e.columns)
}

func (e *csvEncoder) WriteRows(rows []domain.SemanticLayerResultRow) error {
	if err := e.writeHeader(); err != nil {
		return err
	}
	record := make([]string, len(e.columns))
	for _, row := range rows {
		for i, col := range e.columns {
			record[i] = formatCell(row[col])
		}
		if err := e.w.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	return nil
}

func (e *csvEncoder) Close() error {
	if err := e.writeHeader(); err != nil {
		return err
	}
	e.w.Flush()
	return e.w.Error()
}

func (e *csvEncoder) ContentType() string { return "text/csv" }
func (e *csvEncoder) Extension() string   { return "csv" }

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
