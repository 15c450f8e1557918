package http

import (
	"net/http"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler, log logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(Instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/account", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Get("/reset-password", h.ValidateResetToken)
		r.Post("/reset-password", h.ResetPassword)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(h.RequireActiveSession)
		r.Get("/", h.ListAccounts)
		r.Post("/block", h.bulk(h.svc.BlockAccounts))
		r.Post("/unblock", h.bulk(h.svc.UnblockAccounts))
		r.Post("/delete", h.bulk(h.svc.DeleteAccounts))
		r.Post("/delete-unverified", h.bulk(h.svc.DeleteUnverifiedAccounts))
	})

	return r
}
