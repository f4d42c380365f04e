package parser

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/semlayer/semlayer/core/infrastructure/logging"
	"github.com/semlayer/semlayer/core/infrastructure/projects"
	"github.com/semlayer/semlayer/core/infrastructure/storage"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors struct {
	Errors []string
}

// Error implements the error interface. The detailed errors are logged by
// Validate.
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed with %d error(s)", len(ve.Errors))
}

// Format returns every error on its own line
func (ve *ValidationErrors) Format() string {
	return strings.Join(ve.Errors, "\n")
}

// Validate checks struct tags and the rules that span several sections
func Validate(cfg *Config) error {
	log := logging.New("parser")
	log.Debugf("Starting validation")

	var errs []string

	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fieldMessage(fe))
		}
	}

	errs = append(errs, validateJobs(cfg)...)
	errs = append(errs, validateProjects(cfg.Projects)...)
	errs = append(errs, validateStorage(cfg.Storage)...)

	if len(errs) > 0 {
		for _, e := range errs {
			log.Errorf("%s", e)
		}
		return &ValidationErrors{Errors: errs}
	}

	log.Debugf("Validation succeeded")
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func validateJobs(cfg *Config) []string {
	var errs []string
	if cfg.Jobs.Store == JobStoreRedis && cfg.Jobs.RedisURL == "" {
		errs = append(errs, "jobs.redis_url is required when jobs.store is redis")
	}
	if cfg.RateLimit.Requests > 0 && cfg.Jobs.RedisURL == "" {
		errs = append(errs, "rate_limit needs jobs.redis_url")
	}
	return errs
}

func validateProjects(cfg projects.Config) []string {
	var errs []string
	if cfg.Driver != projects.DriverMemory {
		if cfg.URL == "" {
			errs = append(errs, fmt.Sprintf("projects.url is required for driver %s", cfg.Driver))
		}
		if len(cfg.Projects) > 0 {
			errs = append(errs, fmt.Sprintf("projects.projects is only read by the memory driver, not %s", cfg.Driver))
		}
		return errs
	}

	seen := make(map[string]bool, len(cfg.Projects))
	for i, p := range cfg.Projects {
		prefix := fmt.Sprintf("projects.projects[%d]", i)
		if p.UUID == "" {
			errs = append(errs, prefix+".uuid is required")
			continue
		}
		prefix = fmt.Sprintf("Project '%s'", p.UUID)
		if seen[p.UUID] {
			errs = append(errs, prefix+" - already defined. Project uuids must be unique")
		}
		seen[p.UUID] = true
		if p.OrganizationUUID == "" {
			errs = append(errs, prefix+" - organization_uuid is required")
		}
		dbt := p.SemanticLayer.DbtCloud
		if (dbt.BearerToken == "") != (dbt.EnvironmentID == "") {
			errs = append(errs, prefix+" - semantic_layer.dbt_cloud needs both bearer_token and environment_id")
		}
	}
	return errs
}

func validateStorage(cfg storage.Config) []string {
	var errs []string
	switch cfg.Backend {
	case storage.BackendS3:
		if cfg.S3.Bucket == "" {
			errs = append(errs, "storage.s3.bucket is required")
		}
		if (cfg.S3.AccessKeyID == "") != (cfg.S3.SecretAccessKey == "") {
			errs = append(errs, "storage.s3 needs both access_key_id and secret_access_key, or neither")
		}
	case storage.BackendGCS:
		if cfg.GCS.Bucket == "" {
			errs = append(errs, "storage.gcs.bucket is required")
		}
		if cfg.GCS.Email == "" || cfg.GCS.Key == "" {
			errs = append(errs, "storage.gcs needs email and key")
		}
	}
	return errs
}
