package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		r.Group(func(r chi.Router) {
			r.Use(apiHandler.AuthMiddleware)

			// Chat widget surface
			r.Route("/assistant", func(r chi.Router) {
				r.Post("/chat", apiHandler.ChatHandler)
				r.Post("/feedback", apiHandler.SubmitFeedbackHandler)
				r.Get("/sessions", apiHandler.MySessionsHandler)
				r.Get("/sessions/{sessionID}", apiHandler.SessionHistoryHandler)
			})

			// Admin dashboard surface
			r.Route("/admin", func(r chi.Router) {
				r.Use(apiHandler.AdminOnly)

				r.Get("/stats", apiHandler.DashboardStatsHandler)

				r.Get("/settings", apiHandler.GetSettingsHandler)
				r.Put("/settings", apiHandler.SaveSettingsHandler)
				r.Get("/tools", apiHandler.ListToolsHandler)

				r.Get("/sessions", apiHandler.AllSessionsHandler)
				r.Get("/sessions/{sessionID}", apiHandler.SessionDetailHandler)
				r.Delete("/sessions/{sessionID}", apiHandler.DeleteSessionHandler)

				r.Get("/feedback", apiHandler.AllFeedbackHandler)

				r.Route("/knowledge", func(r chi.Router) {
					r.Get("/", apiHandler.ListKnowledgeHandler)
					r.Post("/", apiHandler.AddKnowledgeHandler)
					r.Patch("/{entryID}", apiHandler.UpdateKnowledgeHandler)
					r.Delete("/{entryID}", apiHandler.DeleteKnowledgeHandler)
				})
			})
		})
	})

	return r
}
