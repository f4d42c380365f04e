package http

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	"github.com/semlayer/semlayer/core/infrastructure/transport/http/handlers"
	httpmiddleware "github.com/semlayer/semlayer/core/infrastructure/transport/http/middleware"
)

// RouteDeps holds what the routes need. A nil RateLimiter disables rate
// limiting.
type RouteDeps struct {
	Service       interfaces.SemanticLayerService
	Scheduler     interfaces.Scheduler
	Authenticator *httpmiddleware.Authenticator
	RateLimiter   httpmiddleware.RateLimiter
	RateLimit     int
	RateWindow    time.Duration
	BaseURL       string
	Version       string
}

// RegisterRoutes registers all HTTP routes
func RegisterRoutes(r chi.Router, deps RouteDeps) {
	log := logging.New("routes")
	log.Infof("Registering HTTP routes")

	var utilityRoutes []string
	var apiRoutes []string

	r.Get("/heartbeat", handlers.Heartbeat(deps.Version))
	utilityRoutes = append(utilityRoutes, "GET /heartbeat")

	r.Method("GET", "/metrics", httpmiddleware.MetricsHandler())
	utilityRoutes = append(utilityRoutes, "GET /metrics")

	r.Get("/docs", handlers.OpenAPIHandler(deps.BaseURL, deps.Version))
	utilityRoutes = append(utilityRoutes, "GET /docs")

	semanticLayer := handlers.NewSemanticLayerHandler(deps.Service)
	scheduler := handlers.NewSchedulerHandler(deps.Scheduler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.Authenticator.Authenticate(semanticLayer.WriteError))
		if deps.RateLimiter != nil && deps.RateLimit > 0 {
			r.Use(httpmiddleware.RateLimit(deps.RateLimiter, deps.RateLimit, deps.RateWindow, httpmiddleware.ClientKey, semanticLayer.WriteError))
		}

		r.Route("/projects/{projectUuid}/semantic-layer", func(r chi.Router) {
			r.Use(httpmiddleware.ProjectContext)
			r.Get("/views", semanticLayer.GetViews)
			r.Post("/views/{view}/query-fields", semanticLayer.QueryFields)
			r.Post("/sql", semanticLayer.GetSQL)
			r.Post("/run", semanticLayer.RunQuery)
			r.Get("/results/{fileId}", semanticLayer.GetResults)
		})
		apiRoutes = append(apiRoutes,
			"GET /api/v1/projects/{projectUuid}/semantic-layer/views",
			"POST /api/v1/projects/{projectUuid}/semantic-layer/views/{view}/query-fields",
			"POST /api/v1/projects/{projectUuid}/semantic-layer/sql",
			"POST /api/v1/projects/{projectUuid}/semantic-layer/run",
			"GET /api/v1/projects/{projectUuid}/semantic-layer/results/{fileId}",
		)

		r.Get("/schedulers/job/{jobId}/status", scheduler.GetJobStatus)
		apiRoutes = append(apiRoutes, "GET /api/v1/schedulers/job/{jobId}/status")
	})

	log.Infof("Routes registered: %d utility, %d api", len(utilityRoutes), len(apiRoutes))
	log.Debugf("Utility routes:")
	for _, route := range utilityRoutes {
		log.Debugf("  %s", route)
	}
	log.Debugf("API routes:")
	for _, route := range apiRoutes {
		log.Debugf("  %s", route)
	}
}

// ResultsURL returns the download URL of a results file served by the
// gateway. name is "{projectUuid}/{fileId}".
func ResultsURL(baseURL string) func(name string) string {
	return func(name string) string {
		project, file := path.Split(name)
		return fmt.Sprintf("%s/api/v1/projects/%s/semantic-layer/results/%s", baseURL, strings.TrimSuffix(project, "/"), file)
	}
}
