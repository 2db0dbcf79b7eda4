package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"lab-catalog-go/internal/config"
	"lab-catalog-go/internal/transport/httpserver/handler"
	callermw "lab-catalog-go/internal/transport/httpserver/middleware"
	"lab-catalog-go/pkg/logger"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, memberships callermw.MembershipSource, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(callermw.NewCORS(cfg.CORSOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		caller := callermw.NewCallerProvider(memberships, cfg.PublicPricesEnabled, log)
		r.Group(func(r chi.Router) {
			r.Use(caller.Middleware)

			r.Get("/catalog/exams", handlers.ListCatalog)
			r.Get("/catalog/exams/{id}", handlers.GetExam)
			r.Get("/catalog/exams/{id}/price", handlers.GetExamPrice)

			r.Route("/admin", func(r chi.Router) {
				r.Use(callermw.RequireAdmin)

				r.Get("/tariffs", handlers.ListTariffs)
				r.Post("/tariffs", handlers.CreateTariff)
				r.Get("/tariffs/{id}", handlers.GetTariff)
				r.Put("/tariffs/{id}", handlers.UpdateTariff)
				r.Delete("/tariffs/{id}", handlers.DeleteTariff)
				r.Patch("/tariffs/{id}/enabled", handlers.SetTariffEnabled)
				r.Get("/tariffs/{id}/stats", handlers.TariffStats)
				r.Post("/tariffs/{id}/import-legacy", handlers.ImportLegacyPrices)

				r.Get("/prices", handlers.ListAllPrices)
				r.Get("/tariffs/{id}/prices", handlers.ListPrices)
				r.Put("/tariffs/{id}/prices/{exam_id}", handlers.SetPrice)
				r.Delete("/tariffs/{id}/prices/{exam_id}", handlers.DeletePrice)

				r.Get("/references", handlers.ListReferences)
				r.Post("/references", handlers.CreateReference)
				r.Get("/references/{id}", handlers.GetReference)
				r.Put("/references/{id}", handlers.UpdateReference)
				r.Delete("/references/{id}", handlers.DeleteReference)
				r.Patch("/references/{id}/active", handlers.SetReferenceActive)
				r.Post("/references/{id}/members", handlers.AssignMember)
				r.Delete("/references/{id}/members/{user_id}", handlers.RemoveMember)
			})
		})
	})

	return r
}
