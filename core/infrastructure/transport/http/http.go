package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/semlayer/semlayer/core/infrastructure/logging"
	httpmiddleware "github.com/semlayer/semlayer/core/infrastructure/transport/http/middleware"
)

const defaultShutdownTimeout = 15 * time.Second

// Options configure the HTTP server
type Options struct {
	Port string
	// AllowedOrigins for CORS, every origin when empty
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// Server is the gateway HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	opts     Options
	addr     net.Addr
	shutdown context.CancelFunc
}

// NewServer creates the router with the gateway middleware stack
func NewServer(opts Options) *Server {
	if opts.Port == "" {
		opts.Port = "8080"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(httpmiddleware.RequestContext)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.Tracing)
	r.Use(httpmiddleware.Metrics)

	// Session tokens travel in the Authorization header, so credentialed
	// requests are only allowed for an explicit origin list.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id", "Retry-After"},
		AllowCredentials: !slices.Contains(opts.AllowedOrigins, "*"),
		MaxAge:           300,
	}))

	return &Server{
		router: r,
		opts:   opts,
	}
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the bound listener address once started
func (s *Server) Addr() net.Addr {
	return s.addr
}

// StartAsync binds the port and serves in the background. Binding errors are
// returned to the caller.
func (s *Server) StartAsync() error {
	log := logging.New("http")

	s.server = &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Results downloads stream for as long as the file takes
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()

	go func() {
		log.Successf("HTTP server listening on %s", s.addr)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop drains in-flight requests for up to the shutdown timeout, then
// closes the remaining connections
func (s *Server) Stop() error {
	log := logging.New("http")

	if s.shutdown != nil {
		s.shutdown()
	}
	if s.server == nil {
		return nil
	}
	log.Infof("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Warnf("Graceful shutdown interrupted after %s: %v", s.opts.ShutdownTimeout, err)
		if closeErr := s.server.Close(); closeErr != nil {
			log.Errorf("Error force closing HTTP server: %v", closeErr)
		}
		return err
	}

	log.Infof("HTTP server stopped")
	return nil
}

// SetShutdownFunc sets the function called first on Stop
func (s *Server) SetShutdownFunc(fn context.CancelFunc) {
	s.shutdown = fn
}
