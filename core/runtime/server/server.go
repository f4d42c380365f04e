package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/semlayer/semlayer/core/infrastructure/di"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	transporthttp "github.com/semlayer/semlayer/core/infrastructure/transport/http"
	"github.com/semlayer/semlayer/core/observability"
	"github.com/semlayer/semlayer/core/parser"
)

const stopTimeout = 30 * time.Second

// Runtime owns the gateway lifecycle: stores, scheduler workers, telemetry
// and the HTTP server
type Runtime struct {
	cfg     *parser.Config
	port    string
	version string
	baseURL string

	container *di.Container
	http      *transporthttp.Server
	providers *observability.Providers
	cancel    context.CancelFunc
}

// NewRuntime opens the configured stores. Nothing is served until Start.
func NewRuntime(cfg *parser.Config, port string, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("runtime requires a configuration")
	}
	if port == "" {
		port = "8080"
	}

	r := &Runtime{cfg: cfg, port: port, version: "dev"}
	for _, opt := range opts {
		opt(r)
	}
	if r.baseURL == "" {
		r.baseURL = strings.TrimSuffix(cfg.Server.PublicURL, "/")
	}
	if r.baseURL == "" {
		r.baseURL = "http://localhost:" + port
	}

	container, err := di.NewContainer(context.Background(), cfg, r.baseURL)
	if err != nil {
		return nil, err
	}
	r.container = container

	return r, nil
}

// BaseURL returns the URL results links point to
func (r *Runtime) BaseURL() string {
	return r.baseURL
}

// Start starts the runtime and blocks until SIGTERM/SIGINT
func (r *Runtime) Start() error {
	if err := r.StartAsync(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return r.Stop()
}

// StartAsync starts the scheduler workers and the HTTP server without blocking
func (r *Runtime) StartAsync() error {
	log := logging.New("runtime")

	providers, err := observability.Setup(context.Background(), r.cfg.Observability.Resolve(r.version))
	if err != nil {
		return fmt.Errorf("failed to set up observability: %w", err)
	}
	r.providers = providers

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.container.Scheduler.Start(ctx)

	r.http = transporthttp.NewServer(transporthttp.Options{
		Port:            r.port,
		AllowedOrigins:  r.cfg.Server.CORSOrigins,
		ShutdownTimeout: r.cfg.Server.ShutdownTimeout,
	})
	transporthttp.RegisterRoutes(r.http.Router(), r.container.RouteDeps(r.baseURL, r.version))
	r.http.SetShutdownFunc(cancel)

	if err := r.http.StartAsync(); err != nil {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		_ = r.container.Scheduler.Stop(stopCtx)
		_ = providers.Shutdown(stopCtx)
		r.http, r.providers, r.cancel = nil, nil, nil
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	log.Infof("Results links point to %s", r.baseURL)
	return nil
}

// Stop stops accepting requests, then drains the workers and closes the stores
func (r *Runtime) Stop() error {
	log := logging.New("runtime")
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	var errs []error
	if r.http != nil {
		errs = append(errs, r.http.Stop())
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.container != nil {
		if err := r.container.Scheduler.Stop(ctx); err != nil {
			log.Warnf("Scheduler did not stop in time: %v", err)
			errs = append(errs, err)
		}
		errs = append(errs, r.container.Close())
	}
	if r.providers != nil {
		errs = append(errs, r.providers.Shutdown(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Infof("Runtime stopped")
	return nil
}
