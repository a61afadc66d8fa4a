package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/wardsync/internal/transport/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health   *HealthHandler
	Patients *PatientHandler
	Agent    *AgentHandler
}

// NewRouter mounts the probes and the /local API. local wraps only the /local
// routes; probes stay open for process supervisors.
func NewRouter(h Handlers, local middleware.Middleware) http.Handler {
	r := chi.NewRouter()

	r.Get("/live", h.Health.Live)
	r.Get("/ready", h.Health.Ready)
	r.Get("/health", h.Health.Health)

	r.Route("/local", func(r chi.Router) {
		r.Use(local)

		r.Post("/patients", h.Patients.Submit)
		r.Get("/patients", h.Patients.List)
		r.Get("/patients/{id}", h.Patients.Get)
		r.Get("/patients/identificacion/{identificacion}", h.Patients.GetByIdentificacion)

		r.Get("/pending", h.Agent.Pending)
		r.Post("/sync", h.Agent.Sync)
		r.Post("/connectivity", h.Agent.Connectivity)
		r.Get("/status", h.Agent.Status)
		r.Put("/token", h.Agent.PutToken)
		r.Delete("/token", h.Agent.DeleteToken)
	})

	return r
}
