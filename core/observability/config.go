package observability

import (
	"os"
	"strconv"
	"strings"
)

// Config is the observability section of the gateway config. Exporting is
// off unless enabled there or through SEMLAYER_OTEL_ENABLED.
type Config struct {
	Enabled        bool   `yaml:"enabled"`
	DisableTraces  bool   `yaml:"disable_traces"`
	DisableMetrics bool   `yaml:"disable_metrics"`
	ServiceName    string `yaml:"service_name"`
	Environment    string `yaml:"environment"`
	// Endpoint is the OTLP gRPC collector address
	Endpoint string `yaml:"endpoint"`
	// SamplingRatio of new traces, 1 when unset
	SamplingRatio *float64 `yaml:"trace_sampling_ratio" validate:"omitempty,gte=0,lte=1"`

	ServiceVersion string `yaml:"-"`
}

// TracesEnabled reports whether spans are exported
func (c Config) TracesEnabled() bool { return c.Enabled && !c.DisableTraces }

// MetricsEnabled reports whether metrics are exported
func (c Config) MetricsEnabled() bool { return c.Enabled && !c.DisableMetrics }

// TraceSamplingRate returns the sampling ratio clamped to [0, 1]
func (c Config) TraceSamplingRate() float64 {
	if c.SamplingRatio == nil {
		return 1
	}
	return min(max(*c.SamplingRatio, 0), 1)
}

// Resolve fills defaults and applies SEMLAYER_OTEL_* environment overrides
func (c Config) Resolve(serviceVersion string) Config {
	if c.ServiceName == "" {
		c.ServiceName = "semlayer"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	c.ServiceVersion = serviceVersion
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}

	if v, ok := envBool("SEMLAYER_OTEL_ENABLED"); ok {
		c.Enabled = v
	}
	if v, ok := envBool("SEMLAYER_OTEL_TRACES_ENABLED"); ok {
		c.DisableTraces = !v
	}
	if v, ok := envBool("SEMLAYER_OTEL_METRICS_ENABLED"); ok {
		c.DisableMetrics = !v
	}
	envString("SEMLAYER_OTEL_SERVICE_NAME", &c.ServiceName)
	envString("SEMLAYER_OTEL_ENVIRONMENT", &c.Environment)
	envString("SEMLAYER_OTEL_ENDPOINT", &c.Endpoint)
	if raw := os.Getenv("SEMLAYER_OTEL_TRACE_SAMPLING_RATIO"); raw != "" {
		if ratio, err := strconv.ParseFloat(raw, 64); err == nil {
			c.SamplingRatio = &ratio
		}
	}
	return c
}

func envString(name string, target *string) {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		*target = value
	}
}

// envBool ignores unset and unparsable values
func envBool(name string) (bool, bool) {
	value := os.Getenv(name)
	if value == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(value)
	return parsed, err == nil
}
