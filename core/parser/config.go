package parser

import (
	"time"

	"github.com/semlayer/semlayer/core/application/scheduler"
	"github.com/semlayer/semlayer/core/infrastructure/projects"
	"github.com/semlayer/semlayer/core/infrastructure/semantic"
	"github.com/semlayer/semlayer/core/infrastructure/storage"
	"github.com/semlayer/semlayer/core/observability"
)

// Job store drivers
const (
	JobStoreMemory = "memory"
	JobStoreRedis  = "redis"
)

// DefaultJobTTL is how long finished jobs stay visible
const DefaultJobTTL = 24 * time.Hour

// Config is the gateway configuration file
type Config struct {
	Name          string               `yaml:"name" validate:"omitempty,max=64"`
	Server        ServerConfig         `yaml:"server"`
	Auth          AuthConfig           `yaml:"auth"`
	SemanticLayer semantic.Config      `yaml:"semantic_layer"`
	Scheduler     scheduler.Config     `yaml:"scheduler"`
	Jobs          JobsConfig           `yaml:"jobs"`
	Projects      projects.Config      `yaml:"projects"`
	Storage       storage.Config       `yaml:"storage"`
	RateLimit     RateLimitConfig      `yaml:"rate_limit"`
	Observability observability.Config `yaml:"observability"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port            string        `yaml:"port" validate:"omitempty,numeric"`
	LogLevel        int           `yaml:"log_level" validate:"omitempty,min=1,max=4"`
	// PublicURL is the externally reachable base URL used in results links
	PublicURL       string        `yaml:"public_url" validate:"omitempty,url"`
	CORSOrigins     []string      `yaml:"cors_origins" validate:"omitempty,dive,required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// AuthConfig configures session token validation
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" validate:"required,min=16"`
	Issuer    string `yaml:"issuer"`
}

// JobsConfig selects where scheduler jobs are kept
type JobsConfig struct {
	Store    string        `yaml:"store" validate:"omitempty,oneof=memory redis"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// RateLimitConfig limits API requests per user. It needs jobs.redis_url.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" validate:"gte=0"`
	Window   time.Duration `yaml:"window" validate:"gte=0"`
}

// WithDefaults fills unset values
func (c *Config) WithDefaults() {
	if c.Jobs.Store == "" {
		c.Jobs.Store = JobStoreMemory
	}
	if c.Jobs.TTL == 0 {
		c.Jobs.TTL = DefaultJobTTL
	}
	if c.Projects.Driver == "" {
		c.Projects.Driver = projects.DriverMemory
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = storage.BackendLocal
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	c.Scheduler = c.Scheduler.WithDefaults()
}
