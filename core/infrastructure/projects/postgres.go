package projects

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// PostgresStore reads projects from PostgreSQL using pgx/v5
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// postgresConnString appends options to a URL or keyword/value connection string
func postgresConnString(connectionString string, options map[string]string) (string, error) {
	if len(options) == 0 {
		return connectionString, nil
	}
	if strings.HasPrefix(connectionString, "postgres://") || strings.HasPrefix(connectionString, "postgresql://") {
		parsedURL, err := url.Parse(connectionString)
		if err != nil {
			return "", fmt.Errorf("failed to parse postgres connection string: %w", err)
		}
		query := parsedURL.Query()
		for key, value := range options {
			query.Set(key, value)
		}
		parsedURL.RawQuery = query.Encode()
		return parsedURL.String(), nil
	}

	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := []string{strings.TrimSpace(connectionString)}
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, options[key]))
	}
	return strings.Join(parts, " "), nil
}

// NewPostgresStore opens and pings a connection pool
func NewPostgresStore(ctx context.Context, connectionString string, options map[string]string, table string) (*PostgresStore, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	connectionString, err := postgresConnString(connectionString, options)
	if err != nil {
		return nil, err
	}

	log := logging.New("projects:postgres")
	log.Debugf("Opening PostgreSQL connection pool (pgx/v5)")

	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}

	log.Debugf("Testing connection with ping")
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	log.Debugf("PostgreSQL connection pool opened successfully")
	return &PostgresStore{pool: pool, table: table}, nil
}

// Get loads one project
func (p *PostgresStore) Get(ctx context.Context, projectUUID string) (*domain.Project, error) {
	query := fmt.Sprintf(
		`SELECT project_uuid, organization_uuid, name, semantic_layer_connection FROM %s WHERE project_uuid = $1`,
		p.table,
	)
	var project domain.Project
	var raw []byte
	err := p.pool.QueryRow(ctx, query, projectUUID).
		Scan(&project.UUID, &project.OrganizationUUID, &project.Name, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, projectNotFound(projectUUID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project.SemanticLayer, err = decodeConnection(raw); err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns the organization's projects sorted by name
func (p *PostgresStore) List(ctx context.Context, organizationUUID string) ([]domain.ProjectSummary, error) {
	query := fmt.Sprintf(
		`SELECT project_uuid, organization_uuid, name FROM %s WHERE organization_uuid = $1 ORDER BY name`,
		p.table,
	)
	rows, err := p.pool.Query(ctx, query, organizationUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := []domain.ProjectSummary{}
	for rows.Next() {
		var s domain.ProjectSummary
		if err := rows.Scan(&s.UUID, &s.OrganizationUUID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Close closes the connection pool
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		log := logging.New("projects:postgres")
		log.Debugf("Closing PostgreSQL connection pool")
		p.pool.Close()
	}
	return nil
}
