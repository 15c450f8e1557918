package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/dmitrijs2005/accountkeeper/internal/server/sessions"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type ctxKey struct{}

// ClaimsFromContext returns the session claims stored by RequireActiveSession.
func ClaimsFromContext(ctx context.Context) (*sessions.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*sessions.Claims)
	return c, ok
}

// RequireActiveSession admits requests carrying a valid session cookie of
// an account that still exists and is not blocked. Sessions of blocked or
// deleted accounts are revoked and the cookie cleared.
func (h *Handler) RequireActiveSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.sessions.FromRequest(r)
		if err != nil {
			if !errors.Is(err, common.ErrNoSession) && !errors.Is(err, common.ErrInvalidToken) && !errors.Is(err, common.ErrTokenExpired) {
				h.log.Error(r.Context(), "session check failed", "error", err)
				writeResult(w, services.Result{Message: "something went wrong, please try again later", Err: common.ErrDependencyFailure})
				return
			}
			writeResult(w, services.Result{Message: "please log in", Err: common.ErrNoSession})
			return
		}

		id, err := uuid.Parse(claims.AccountID)
		if err != nil {
			writeResult(w, services.Result{Message: "please log in", Err: common.ErrInvalidToken})
			return
		}

		account, err := h.svc.Account(r.Context(), id)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			h.endSession(w, r)
			writeResult(w, services.Result{Message: "account no longer exists", Err: common.ErrNoSession})
			return
		case err != nil:
			writeResult(w, services.Result{Message: "something went wrong, please try again later", Err: err})
			return
		case account.Status == models.StatusBlocked:
			h.endSession(w, r)
			writeResult(w, services.Result{Message: "account is blocked", Err: common.ErrAccountBlocked})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	if err := h.session(w, r).End(r.Context()); err != nil {
		h.log.Warn(r.Context(), "cannot end session", "error", err)
	}
}

// Instrument records request counts and latencies by route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RequestLogger logs one line per request with its chi request id.
func RequestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info(r.Context(), "http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}
