package semantic

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/semantic/cube"
	"github.com/semlayer/semlayer/core/infrastructure/semantic/dbtcloud"
)

// Config holds the global semantic layer settings
type Config struct {
	DbtCloud domain.DbtCloudConnection `yaml:"dbt_cloud"`
	Cube     domain.CubeConnection     `yaml:"cube"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
}

// Defaults returns the connection used by projects without their own
func (c Config) Defaults() domain.SemanticLayerConnection {
	return domain.SemanticLayerConnection{DbtCloud: c.DbtCloud, Cube: c.Cube}
}

// Factory builds instrumented semantic layer clients sharing one HTTP client
type Factory struct {
	httpClient  *http.Client
	pollTimeout time.Duration
}

// NewFactory creates a factory from the global settings
func NewFactory(cfg Config) *Factory {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Factory{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		pollTimeout: cfg.PollTimeout,
	}
}

// NewDbtCloudClient implements interfaces.SemanticLayerClientFactory
func (f *Factory) NewDbtCloudClient(conn domain.DbtCloudConnection) (interfaces.SemanticLayerClient, error) {
	client, err := dbtcloud.NewClient(conn, dbtcloud.Options{HTTPClient: f.httpClient, PollTimeout: f.pollTimeout})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewCubeClient implements interfaces.SemanticLayerClientFactory
func (f *Factory) NewCubeClient(conn domain.CubeConnection) (interfaces.SemanticLayerClient, error) {
	client, err := cube.NewClient(conn, cube.Options{HTTPClient: f.httpClient, PollTimeout: f.pollTimeout})
	if err != nil {
		return nil, err
	}
	return client, nil
}
