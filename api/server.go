/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. CORS:          Cross-origin requests for frontend
  2. RequestLogger: Structured request logging (httplog, ECS schema)
  3. RequestID:     Unique ID per request for tracing
  4. CleanPath:     Normalizes duplicate slashes
  5. Recoverer:     Panic recovery (500 instead of crash)
  6. Heartbeat:     GET /health for load balancers

ROUTE GROUPS:
  /api/payroll/*        Payroll calculation
  /api/formulas/*       Formula tooling
  /api/clients/*        Client payroll configuration
  /api/pay-grades/*     Pay grade components
  /api/boarding/*       Tickets and the staff approval workflow
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  Authentication happens upstream. The gateway forwards X-Actor-ID and
  X-Actor-Capabilities, which the boarding endpoints trust.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderActorID, HeaderActorCapabilities},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httplog.RequestLogger(h.Logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Post("/calculate", h.CalculatePayroll)
			r.Post("/bulk", h.CalculateBulk)
			r.Get("/results/{id}", h.GetCalculation)
		})

		// Formula routes
		r.Route("/formulas", func(r chi.Router) {
			r.Post("/evaluate", h.EvaluateFormula)
			r.Post("/validate", h.ValidateFormula)
			r.Post("/variables", h.ExtractVariables)
		})

		// Client configuration routes
		r.Route("/clients/{id}", func(r chi.Router) {
			r.Get("/config", h.GetClientConfig)
			r.Put("/config", h.PutClientConfig)
		})
		r.Put("/pay-grades/{grade}", h.PutPayGrade)

		// Boarding routes
		r.Route("/boarding", func(r chi.Router) {
			r.Post("/tickets", h.OpenTicket)
			r.Get("/tickets/{id}", h.GetTicket)

			r.Post("/staff", h.BoardStaff)
			r.Route("/staff/{id}", func(r chi.Router) {
				r.Get("/", h.GetStaff)
				r.Get("/history", h.StaffHistory)
				r.Post("/approve", h.ApproveStaff)
				r.Post("/reject", h.RejectStaff)
				r.Post("/control-approve", h.ControlApproveStaff)
				r.Post("/control-reject", h.ControlRejectStaff)
				r.Post("/accept-offer", h.AcceptOffer)
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
