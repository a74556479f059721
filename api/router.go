package api

import (
	"net/http"

	"github.com/billbatista/zensplit/middleware"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

// NewRouter mounts every endpoint. Sessions resolve the cookie on all
// requests; everything outside /health and the login endpoints requires one.
func NewRouter(h *Handlers, sessions middleware.SessionFinder) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.AuthMiddleware(sessions))

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	router.Get("/health", h.health)

	router.Route("/user", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/otp", h.requestOTP)
		r.Post("/otp/verify", h.verifyOTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", h.logout)
			r.Get("/profile", h.profile)
			r.Post("/profile", h.updateProfile)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Route("/ledgers", func(r chi.Router) {
			r.Get("/", h.listLedgers)
			r.Post("/", h.createLedger)

			r.Route("/{ledgerID}", func(r chi.Router) {
				r.Get("/members", h.listMembers)
				r.Post("/members", h.addMember)
				r.Get("/expenses", h.listExpenses)
				r.Post("/expenses", h.addExpense)
				r.Delete("/expenses/{expenseID}", h.deleteExpense)
				r.Get("/balances", h.balances)
				r.Get("/activity", h.ledgerActivity)
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.listPayments)
			r.Post("/", h.declarePayment)
			r.Post("/{paymentID}/verify", h.verifyPayment)
			r.Post("/{paymentID}/cancel", h.cancelPayment)
			r.Delete("/{paymentID}", h.deletePayment)
		})
	})

	return router
}
