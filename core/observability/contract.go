package observability

import (
	"net/url"
	"strings"
)

// Span and metric attribute keys
const (
	AttrProjectUUID    = "semlayer.project.uuid"
	AttrBackend        = "semlayer.backend"
	AttrOperation      = "semlayer.operation"
	AttrJobType        = "semlayer.job.type"
	AttrJobStatus      = "semlayer.job.status"
	AttrStorageBackend = "semlayer.storage.backend"
	AttrFileURL        = "semlayer.results.file_url"
	AttrErrorType      = "error.type"
	AttrRowCount       = "semlayer.rows"
)

// sensitiveKeys are attribute key fragments whose values are never exported.
// They cover dbt Cloud bearer tokens, Cube tokens and API secrets.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"bearer",
	"api_key",
	"authorization",
	"private_key",
	"credentials",
}

// RedactAttributeValue masks values of sensitive keys and drops the signed
// query string of presigned results URLs.
func RedactAttributeValue(key string, value string) string {
	lower := strings.ToLower(key)
	for _, needle := range sensitiveKeys {
		if strings.Contains(lower, needle) {
			return "[REDACTED]"
		}
	}
	return redactSignedURL(value)
}

func redactSignedURL(value string) string {
	if !strings.Contains(value, "?") || !strings.Contains(value, "://") {
		return value
	}
	u, err := url.Parse(value)
	if err != nil {
		return value
	}
	q := u.Query()
	for _, param := range []string{"X-Amz-Signature", "X-Goog-Signature", "Signature"} {
		if q.Has(param) {
			u.RawQuery = ""
			return u.String()
		}
	}
	return value
}
