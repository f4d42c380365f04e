package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/semlayer/semlayer/core/application/scheduler"
	"github.com/semlayer/semlayer/core/application/services"
	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/jobs"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	"github.com/semlayer/semlayer/core/infrastructure/projects"
	"github.com/semlayer/semlayer/core/infrastructure/semantic"
	"github.com/semlayer/semlayer/core/infrastructure/storage"
	transporthttp "github.com/semlayer/semlayer/core/infrastructure/transport/http"
	httpmiddleware "github.com/semlayer/semlayer/core/infrastructure/transport/http/middleware"
	"github.com/semlayer/semlayer/core/parser"
)

// Container holds all dependencies
type Container struct {
	Config        *parser.Config
	Projects      interfaces.ProjectStore
	Jobs          interfaces.JobStore
	Storage       interfaces.ResultsStorage
	Scheduler     *scheduler.Scheduler
	Service       *services.SemanticLayerService
	Authenticator *httpmiddleware.Authenticator
	RateLimiter   httpmiddleware.RateLimiter

	redis *redis.Client
}

// NewContainer opens the stores in parallel and wires the services. baseURL
// is where the gateway is reachable, used for local results links.
func NewContainer(ctx context.Context, cfg *parser.Config, baseURL string) (*Container, error) {
	log := logging.New("di")
	c := &Container{Config: cfg}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		store, err := projects.Open(gctx, cfg.Projects)
		if err != nil {
			return fmt.Errorf("project store: %w", err)
		}
		c.Projects = store
		log.Debugf("Project store ready (%s)", cfg.Projects.Driver)
		return nil
	})

	g.Go(func() error {
		if cfg.Jobs.RedisURL != "" {
			client, err := jobs.NewRedisClient(gctx, cfg.Jobs.RedisURL)
			if err != nil {
				return fmt.Errorf("job store: %w", err)
			}
			c.redis = client
		}
		if cfg.Jobs.Store == parser.JobStoreRedis {
			c.Jobs = jobs.NewRedisJobStore(c.redis, cfg.Jobs.TTL)
		} else {
			c.Jobs = jobs.NewMemoryJobStore(cfg.Jobs.TTL)
		}
		log.Debugf("Job store ready (%s)", cfg.Jobs.Store)
		return nil
	})

	g.Go(func() error {
		results, err := storage.New(gctx, cfg.Storage, transporthttp.ResultsURL(baseURL))
		if err != nil {
			return fmt.Errorf("results storage: %w", err)
		}
		c.Storage = results
		log.Debugf("Results storage ready (%s)", cfg.Storage.Backend)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Errorf("Initialization failed, closing opened resources: %v", err)
		_ = c.Close()
		return nil, err
	}

	c.Scheduler = scheduler.New(c.Jobs, cfg.Scheduler)
	c.Service = services.NewSemanticLayerService(
		c.Projects,
		semantic.NewFactory(cfg.SemanticLayer),
		c.Scheduler,
		c.Storage,
		cfg.SemanticLayer.Defaults(),
	)
	c.Scheduler.Handle(domain.JobTypeSemanticLayerStreamingResults, c.Service.RunStreamingJob)

	c.Authenticator = httpmiddleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if cfg.RateLimit.Requests > 0 && c.redis != nil {
		c.RateLimiter = httpmiddleware.NewRedisRateLimiter(c.redis)
	}

	log.Debugf("Container initialized")
	return c, nil
}

// RouteDeps returns the HTTP route dependencies
func (c *Container) RouteDeps(baseURL, version string) transporthttp.RouteDeps {
	return transporthttp.RouteDeps{
		Service:       c.Service,
		Scheduler:     c.Scheduler,
		Authenticator: c.Authenticator,
		RateLimiter:   c.RateLimiter,
		RateLimit:     c.Config.RateLimit.Requests,
		RateWindow:    c.Config.RateLimit.Window,
		BaseURL:       baseURL,
		Version:       version,
	}
}

// Close closes all resources. The Redis client goes last since the job
// store and the rate limiter share it.
func (c *Container) Close() error {
	var errs []error
	if c.Projects != nil {
		errs = append(errs, c.Projects.Close())
	}
	if c.Jobs != nil {
		errs = append(errs, c.Jobs.Close())
	}
	if c.redis != nil && c.Config.Jobs.Store != parser.JobStoreRedis {
		errs = append(errs, c.redis.Close())
	}
	return errors.Join(errs...)
}
