package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/questboard-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса квестборд.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/activities/{activityID}/start", h.StartActivity)
			r.Post("/activities/{activityID}/steps", h.SubmitStep)
			r.Get("/activities/{activityID}", h.GetActivityProgress)
			r.Get("/activities", h.ListActivityProgress)

			r.Get("/progress", h.GetUserProgress)
			r.Post("/xp", h.CreditXP)
			r.Post("/checkin", h.CheckIn)

			r.Get("/balance", h.GetBalance)
			r.Get("/transactions", h.GetTransactions)

			r.Get("/daily", h.GetDailyRotation)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
