/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap "request completed" line per request
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the allocation screens
  5. Auth:       Bearer token on /api when API_TOKEN is set

ROUTE GROUPS:
  /api/workflow/batches/*   Batches
  /api/users/*              Users
  /api/roles                Role selector
  /api/allocations/*        Workforce and material allocations
  /api/reports/*            Aggregated statistics and archive
  /api/filters/*            Report filter state
  /api/scenarios/*          Demo scenarios
  /healthz                  Liveness (no auth)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Logging and auth middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures cross-cutting router behavior.
type RouterOptions struct {
	APIToken    string
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(zapLoggerMiddleware(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(bearerAuth(opts.APIToken))

		r.Route("/workflow/batches", func(r chi.Router) {
			r.Get("/", h.ListBatches)
			r.Post("/", h.CreateBatch)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
		})

		r.Get("/roles", h.ListRoles)

		r.Route("/allocations", func(r chi.Router) {
			r.Post("/validate-dates", h.ValidateDates)
			r.Get("/workforce/", h.ListWorkforceAllocations)
			r.Post("/workforce/", h.CreateWorkforceAllocation)
			r.Get("/material/", h.ListMaterialAllocations)
			r.Post("/material/", h.CreateMaterialAllocation)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/utilization", h.GetUtilization)
			r.Get("/costs", h.GetCosts)
			r.Get("/productivity", h.GetProductivity)
			r.Get("/summary", h.GetSummary)
			r.Get("/archive", h.ListArchivedReports)
			r.Post("/archive", h.ArchiveReport)
		})

		r.Route("/filters", func(r chi.Router) {
			r.Post("/normalize", h.NormalizeFilter)
			r.Post("/preset", h.ApplyFilterPreset)
			r.Post("/toggle", h.ToggleFilterValue)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
