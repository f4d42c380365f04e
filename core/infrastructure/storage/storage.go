package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
)

// Backend names
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
)

// Config selects and configures the results storage backend
type Config struct {
	Backend string      `yaml:"backend" validate:"omitempty,oneof=local s3 gcs"`
	Local   LocalConfig `yaml:"local"`
	S3      S3Config    `yaml:"s3"`
	GCS     GCSConfig   `yaml:"gcs"`
}

// LocalConfig stores files under Dir
type LocalConfig struct {
	Dir string `yaml:"dir"`
}

// S3Config stores files in an S3 (or S3-compatible) bucket
type S3Config struct {
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	ForcePathStyle  bool          `yaml:"force_path_style"`
	Expiration      time.Duration `yaml:"expiration"`
}

// GCSConfig stores files in a Google Cloud Storage bucket using a service account
type GCSConfig struct {
	ProjectID string `yaml:"project_id"`
	Email     string `yaml:"email"`
	Key       string `yaml:"key"`
	Bucket    string `yaml:"bucket"`
}

// DefaultLocalDir is used when the local backend has no directory configured
const DefaultLocalDir = "/tmp/.semlayer/results"

// URLFunc turns a stored file name into the URL handed to clients
type URLFunc func(name string) string

// New builds the configured backend. urlFor is used by the local and GCS
// backends, whose files are downloaded through the gateway.
func New(ctx context.Context, cfg Config, urlFor URLFunc) (interfaces.ResultsStorage, error) {
	log := logging.New("storage")
	switch cfg.Backend {
	case "", BackendLocal:
		dir := cfg.Local.Dir
		if dir == "" {
			dir = DefaultLocalDir
		}
		log.Debugf("Using local results storage in %s", dir)
		return NewLocalStorage(dir, urlFor)
	case BackendS3:
		log.Debugf("Using S3 results storage in bucket %s", cfg.S3.Bucket)
		return NewS3Storage(ctx, cfg.S3)
	case BackendGCS:
		log.Debugf("Using GCS results storage in bucket %s", cfg.GCS.Bucket)
		return NewGCSStorage(ctx, cfg.GCS, urlFor)
	default:
		return nil, fmt.Errorf("unknown results storage backend %q", cfg.Backend)
	}
}
