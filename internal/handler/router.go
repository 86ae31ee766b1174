package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/roomie/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса Roomie.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.Logger(h.logger))
	if h.opts.Metrics != nil {
		r.Use(custommiddleware.Metrics(h.opts.Metrics))
		// promhttp сам сжимает ответ, поэтому /metrics монтируется вне GzipMiddleware.
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Encoding"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		h.apiRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "This route does not exist")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}

func (h *Handler) apiRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			if h.opts.RateLimiter != nil {
				r.Use(h.opts.RateLimiter.Middleware)
			}
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
			r.With(h.authMiddleware.Middleware).Get("/verify", h.Verify)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/flats", func(r chi.Router) {
				r.Post("/", h.CreateFlat)
				r.Get("/", h.ListFlats)

				r.Route("/{flatID}", func(r chi.Router) {
					r.Get("/", h.GetFlat)
					r.Get("/members", h.ListMembers)
					r.Post("/members", h.AddMember)
					r.Delete("/members/{memberID}", h.RemoveMember)

					r.Get("/expenses", h.ListExpenses)
					r.Post("/expenses", h.CreateExpense)

					r.Get("/tasks", h.ListTasks)
					r.Post("/tasks", h.CreateTask)

					r.Get("/balance", h.FlatBalance)
					r.Get("/balance/me", h.MyBalance)
					r.Get("/dashboard", h.Dashboard)
				})
			})

			r.Put("/expenses/{expenseID}", h.UpdateExpense)
			r.Delete("/expenses/{expenseID}", h.DeleteExpense)

			r.Put("/tasks/{taskID}", h.UpdateTask)
			r.Delete("/tasks/{taskID}", h.DeleteTask)

			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", h.ListInvitations)
				r.Post("/", h.CreateInvitation)
				r.Post("/accept", h.AcceptInvitation)
				r.Post("/{invitationID}/revoke", h.RevokeInvitation)
			})
		})
	})
}
