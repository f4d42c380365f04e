package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/semlayer/semlayer/core/application/ability"
	"github.com/semlayer/semlayer/core/application/results"
	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	"github.com/semlayer/semlayer/core/observability"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

var resultsFileIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jsonl|csv)$`)

type cachedClient struct {
	fingerprint string
	client      interfaces.SemanticLayerClient
}

// SemanticLayerService checks permissions and delegates to the semantic layer
// client configured for the project.
type SemanticLayerService struct {
	projects  interfaces.ProjectStore
	factory   interfaces.SemanticLayerClientFactory
	scheduler interfaces.Scheduler
	storage   interfaces.ResultsStorage
	defaults  domain.SemanticLayerConnection

	mu      sync.Mutex
	clients map[string]cachedClient
}

// NewSemanticLayerService creates a new SemanticLayerService. defaults holds
// the connection used for projects that do not configure their own.
func NewSemanticLayerService(
	projects interfaces.ProjectStore,
	factory interfaces.SemanticLayerClientFactory,
	scheduler interfaces.Scheduler,
	storage interfaces.ResultsStorage,
	defaults domain.SemanticLayerConnection,
) *SemanticLayerService {
	return &SemanticLayerService{
		projects:  projects,
		factory:   factory,
		scheduler: scheduler,
		storage:   storage,
		defaults:  defaults,
		clients:   make(map[string]cachedClient),
	}
}

// authorize resolves the project and checks that user may view its semantic layer
func (s *SemanticLayerService) authorize(ctx context.Context, user domain.SessionUser, projectUUID string) (*domain.Project, error) {
	project, err := s.projects.Get(ctx, projectUUID)
	if err != nil {
		return nil, err
	}

	a := ability.ForUser(user)
	if a.Cannot(ability.ActionView, ability.SemanticViewer(project.OrganizationUUID, project.UUID)) {
		logging.New("service:semantic-layer").WithContext(ctx).
			Warnf("User %s denied semantic layer access to project %s", user.UserUUID, project.UUID)
		return nil, apperrors.Forbidden("")
	}
	return project, nil
}

// getClient selects the dbt Cloud client when it is configured, then Cube.
// The global defaults apply only to projects without any connection.
func (s *SemanticLayerService) getClient(project *domain.Project) (interfaces.SemanticLayerClient, error) {
	conn := project.SemanticLayer.WithDefaults(s.defaults)

	var build func() (interfaces.SemanticLayerClient, error)
	var backend, fingerprint string
	switch {
	case conn.DbtCloud.Configured():
		backend = "dbt_cloud"
		fingerprint = connectionFingerprint("dbt", conn.DbtCloud)
		build = func() (interfaces.SemanticLayerClient, error) { return s.factory.NewDbtCloudClient(conn.DbtCloud) }
	case conn.Cube.Configured():
		backend = "cube"
		fingerprint = connectionFingerprint("cube", conn.Cube)
		build = func() (interfaces.SemanticLayerClient, error) { return s.factory.NewCubeClient(conn.Cube) }
	default:
		return nil, apperrors.MissingConfig("")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.clients[project.UUID]; ok && cached.fingerprint == fingerprint {
		return cached.client, nil
	}

	client, err := build()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrCodeSemanticLayerError, "failed to create semantic layer client", err)
	}
	client = instrument(backend, project.UUID, client)
	s.clients[project.UUID] = cachedClient{fingerprint: fingerprint, client: client}
	return client, nil
}

func connectionFingerprint(kind string, conn any) string {
	raw, _ := json.Marshal(conn)
	sum := sha256.Sum256(append([]byte(kind+":"), raw...))
	return hex.EncodeToString(sum[:])
}

// clientFor runs the authorization gate and returns the project's client
func (s *SemanticLayerService) clientFor(ctx context.Context, user domain.SessionUser, projectUUID string) (*domain.Project, interfaces.SemanticLayerClient, error) {
	project, err := s.authorize(ctx, user, projectUUID)
	if err != nil {
		return nil, nil, err
	}
	client, err := s.getClient(project)
	if err != nil {
		return nil, nil, err
	}
	return project, client, nil
}

// GetViews lists the views of the project's semantic layer
func (s *SemanticLayerService) GetViews(ctx context.Context, user domain.SessionUser, projectUUID string) ([]domain.SemanticLayerView, error) {
	_, client, err := s.clientFor(ctx, user, projectUUID)
	if err != nil {
		return nil, err
	}
	views, err := client.GetViews(ctx)
	if err != nil {
		return nil, upstreamError("failed to list views", err)
	}
	return views, nil
}

// GetFields lists the fields of a view compatible with the current selection
func (s *SemanticLayerService) GetFields(ctx context.Context, user domain.SessionUser, projectUUID, view string, selected domain.SemanticLayerSelectedFields) ([]domain.SemanticLayerField, error) {
	_, client, err := s.clientFor(ctx, user, projectUUID)
	if err != nil {
		return nil, err
	}
	fields, err := client.GetFields(ctx, view, selected)
	if err != nil {
		return nil, upstreamError(fmt.Sprintf("failed to list fields of view %q", view), err)
	}
	return fields, nil
}

// GetSQL compiles the query into the SQL the backend would run
func (s *SemanticLayerService) GetSQL(ctx context.Context, user domain.SessionUser, projectUUID string, query domain.SemanticLayerQuery) (string, error) {
	_, client, err := s.clientFor(ctx, user, projectUUID)
	if err != nil {
		return "", err
	}
	if err := validateQuery(query); err != nil {
		return "", err
	}
	sql, err := client.GetSQL(ctx, query)
	if err != nil {
		return "", upstreamError("failed to compile query", err)
	}
	return sql, nil
}

// GetStreamingResults schedules a job that streams the query results into a
// file and returns the job id.
func (s *SemanticLayerService) GetStreamingResults(ctx context.Context, user domain.SessionUser, projectUUID string, query domain.SemanticLayerQuery, format domain.ResultsFormat) (string, error) {
	project, err := s.authorize(ctx, user, projectUUID)
	if err != nil {
		return "", err
	}
	if err := validateQuery(query); err != nil {
		return "", err
	}
	if _, err := results.ParseFormat(string(format)); err != nil {
		return "", apperrors.NewAppError(apperrors.ErrCodeValidationError, err.Error(), nil)
	}
	if format == "" {
		format = domain.ResultsFormatJSONL
	}

	return s.scheduler.SubmitStreamingResults(ctx, domain.StreamingResultsPayload{
		ProjectUUID: project.UUID,
		User:        user,
		Query:       query,
		Format:      format,
	})
}

// StreamQueryIntoFile runs the payload's query and uploads the rows to the
// results storage as they arrive.
func (s *SemanticLayerService) StreamQueryIntoFile(ctx context.Context, payload domain.StreamingResultsPayload) (_ domain.FileResult, err error) {
	project, client, err := s.clientFor(ctx, payload.User, payload.ProjectUUID)
	if err != nil {
		return domain.FileResult{}, err
	}

	ctx, span := observability.StartSpan(ctx, "semantic_layer.streamQueryIntoFile", map[string]string{
		observability.AttrProjectUUID: project.UUID,
	})
	defer func() { observability.EndSpan(span, err) }()

	log := logging.New("service:semantic-layer").WithContext(ctx)

	pr, pw := io.Pipe()
	enc, err := results.NewEncoder(payload.Format, pw, domain.SemanticLayerResultColumns(payload.Query))
	if err != nil {
		return domain.FileResult{}, apperrors.NewAppError(apperrors.ErrCodeValidationError, err.Error(), nil)
	}
	name := path.Join(project.UUID, uuid.NewString()+"."+enc.Extension())

	var fileURL string
	var rowCount int
	var streamErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := s.storage.Upload(gctx, name, enc.ContentType(), pr)
		if err != nil {
			pr.CloseWithError(err)
			return err
		}
		fileURL = url
		return nil
	})
	g.Go(func() error {
		n, err := client.StreamResults(gctx, payload.Query, enc.WriteRows)
		if err == nil {
			err = enc.Close()
		}
		pw.CloseWithError(err)
		rowCount = n
		if err != nil {
			streamErr = upstreamError("failed to stream results", err)
			return streamErr
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if streamErr != nil {
			return domain.FileResult{}, streamErr
		}
		return domain.FileResult{}, err
	}

	observability.AnnotateSpan(span, map[string]string{
		observability.AttrFileURL:  fileURL,
		observability.AttrRowCount: strconv.Itoa(rowCount),
	})
	log.Debugf("Streamed %d row(s) into %s", rowCount, name)
	return domain.FileResult{FileURL: fileURL, RowCount: rowCount}, nil
}

// RunStreamingJob adapts StreamQueryIntoFile to the scheduler
func (s *SemanticLayerService) RunStreamingJob(ctx context.Context, job *domain.SchedulerJob) (domain.SchedulerJobDetails, error) {
	res, err := s.StreamQueryIntoFile(ctx, job.Payload)
	if err != nil {
		return domain.SchedulerJobDetails{}, err
	}
	return domain.SchedulerJobDetails{FileURL: res.FileURL, RowCount: res.RowCount}, nil
}

// GetResultsFile opens a results file of the project
func (s *SemanticLayerService) GetResultsFile(ctx context.Context, user domain.SessionUser, projectUUID, fileID string) (io.ReadCloser, error) {
	project, err := s.authorize(ctx, user, projectUUID)
	if err != nil {
		return nil, err
	}
	if !resultsFileIDPattern.MatchString(fileID) {
		return nil, apperrors.NewAppError(apperrors.ErrCodeNotFound, fmt.Sprintf("results file %q not found", fileID), nil)
	}
	return s.storage.Open(ctx, path.Join(project.UUID, fileID))
}

func validateQuery(query domain.SemanticLayerQuery) error {
	if err := query.Validate(); err != nil {
		return apperrors.NewAppError(apperrors.ErrCodeValidationError, err.Error(), nil)
	}
	return nil
}

// upstreamError keeps application errors and wraps anything else as a
// semantic layer failure.
func upstreamError(message string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.WrapError(apperrors.ErrCodeSemanticLayerError, message, err)
}
