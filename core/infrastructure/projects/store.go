package projects

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

// Drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongoDB  = "mongodb"
)

// DefaultTable is the table (or collection) projects are read from
const DefaultTable = "projects"

// Config selects the project store
type Config struct {
	Driver   string            `yaml:"driver" validate:"omitempty,oneof=memory postgres mysql mongodb"`
	URL      string            `yaml:"url"`
	Options  map[string]string `yaml:"options"`
	Table    string            `yaml:"table"`
	Database string            `yaml:"database"`
	Projects []domain.Project  `yaml:"projects" validate:"dive"`
}

// Open connects the configured store
func Open(ctx context.Context, cfg Config) (interfaces.ProjectStore, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	log := logging.New("projects")
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}
	log.Debugf("Opening %s project store", driver)
	if driver != DriverMemory && cfg.URL == "" {
		return nil, fmt.Errorf("%s project store requires a url", driver)
	}

	switch driver {
	case DriverMemory:
		return NewMemoryStore(cfg.Projects)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.URL, cfg.Options, table)
	case DriverMySQL:
		return NewMySQLStore(ctx, cfg.URL, cfg.Options, table)
	case DriverMongoDB:
		return NewMongoDBStore(ctx, cfg.URL, cfg.Options, cfg.Database, table)
	default:
		return nil, fmt.Errorf("unknown project store driver %q", cfg.Driver)
	}
}

func projectNotFound(projectUUID string) error {
	return apperrors.NewAppError(apperrors.ErrCodeProjectNotFound, fmt.Sprintf("project %s not found", projectUUID), nil)
}

// decodeConnection parses the JSON column SQL stores keep the connection in
func decodeConnection(raw []byte) (domain.SemanticLayerConnection, error) {
	var conn domain.SemanticLayerConnection
	if len(raw) == 0 {
		return conn, nil
	}
	if err := json.Unmarshal(raw, &conn); err != nil {
		return conn, fmt.Errorf("failed to decode semantic layer connection: %w", err)
	}
	return conn, nil
}
