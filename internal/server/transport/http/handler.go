// Package http is the thin JSON-over-HTTP adapter in front of the account
// lifecycle service.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/dmitrijs2005/accountkeeper/internal/server/sessions"
	"github.com/google/uuid"
)

// AccountService is the part of *services.AccountService served over HTTP.
type AccountService interface {
	RegisterAccount(ctx context.Context, in services.RegisterInput) services.Result
	LogInAccount(ctx context.Context, session services.Session, in services.LoginInput) services.Result
	LogOutAccount(ctx context.Context, session services.Session) services.Result
	VerifyEmail(ctx context.Context, id uuid.UUID, token string) bool
	RequestPasswordReset(ctx context.Context, email string) bool
	ValidateResetToken(ctx context.Context, id uuid.UUID, token string) services.Result
	ResetPassword(ctx context.Context, id uuid.UUID, token, newPassword string) bool
	BlockAccounts(ctx context.Context, sel services.Selection) services.Result
	UnblockAccounts(ctx context.Context, sel services.Selection) services.Result
	DeleteAccounts(ctx context.Context, sel services.Selection) services.Result
	DeleteUnverifiedAccounts(ctx context.Context, sel services.Selection) services.Result
	ListAllAccounts(ctx context.Context) ([]*models.Account, error)
	Account(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type Handler struct {
	svc           AccountService
	sessions      *sessions.Manager
	log           logging.Logger
	secureCookies bool
}

func NewHandler(svc AccountService, mgr *sessions.Manager, log logging.Logger, secureCookies bool) *Handler {
	return &Handler{svc: svc, sessions: mgr, log: log, secureCookies: secureCookies}
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Position        string `json:"position"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	UserID          string `json:"userId"`
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// selectionRequest distinguishes an absent or null "ids" (nothing selected)
// from an empty array.
type selectionRequest struct {
	IDs *[]uuid.UUID `json:"ids"`
}

func (r selectionRequest) selection() services.Selection {
	if r.IDs == nil {
		return services.NoSelection
	}
	return services.Select(*r.IDs...)
}

type resultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type accountResponse struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Position    string        `json:"position"`
	Status      models.Status `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	LastLoginAt *time.Time    `json:"lastLoginAt"`
}

func toAccountResponse(a *models.Account) accountResponse {
	resp := accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Position:  a.Position,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
	if a.HasLoggedIn() {
		t := a.LastLoginAt
		resp.LastLoginAt = &t
	}
	return resp
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) *sessions.CookieSession {
	return sessions.NewCookieSession(h.sessions, w, r, h.secureCookies)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Password != req.ConfirmPassword {
		writeResult(w, services.Result{Message: "passwords do not match", Err: common.ErrValidation})
		return
	}

	writeResult(w, h.svc.RegisterAccount(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Position: req.Position,
		Password: req.Password,
	}))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	writeResult(w, h.svc.LogInAccount(r.Context(), h.session(w, r), services.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	}))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.svc.LogOutAccount(r.Context(), h.session(w, r)))
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil || !h.svc.VerifyEmail(r.Context(), id, r.URL.Query().Get("token")) {
		writeResult(w, services.Result{Message: "verification link is invalid or expired", Err: common.ErrTokenInvalidOrExpired})
		return
	}
	writeResult(w, services.Result{Success: true, Message: "email verified, you can log in now"})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.svc.RequestPasswordReset(r.Context(), req.Email) {
		writeResult(w, services.Result{Message: "failed to send reset link", Err: common.ErrValidation})
		return
	}
	writeResult(w, services.Result{Success: true, Message: "reset link sent, check your inbox"})
}

func (h *Handler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		writeResult(w, services.Result{Message: "token expired or invalid", Err: common.ErrTokenInvalidOrExpired})
		return
	}
	writeResult(w, h.svc.ValidateResetToken(r.Context(), id, r.URL.Query().Get("token")))
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeResult(w, services.Result{Message: "passwords do not match", Err: common.ErrValidation})
		return
	}
	id, err := uuid.Parse(req.UserID)
	if err != nil || !h.svc.ResetPassword(r.Context(), id, req.Token, req.NewPassword) {
		writeResult(w, services.Result{Message: "invalid or expired reset link", Err: common.ErrTokenInvalidOrExpired})
		return
	}
	writeResult(w, services.Result{Success: true, Message: "password has been reset, you can log in now"})
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAllAccounts(r.Context())
	if err != nil {
		writeResult(w, services.Result{Message: "cannot list users", Err: err})
		return
	}

	out := make([]accountResponse, len(list))
	for i, a := range list {
		out[i] = toAccountResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) bulk(action func(context.Context, services.Selection) services.Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectionRequest
		if !decode(w, r, &req) {
			return
		}
		writeResult(w, action(r.Context(), req.selection()))
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeResult(w, services.Result{Message: "bad request", Err: common.ErrValidation})
		return false
	}
	return true
}

// statusFor maps a failure category to an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrTokenInvalidOrExpired),
		errors.Is(err, common.ErrNothingSelected):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrEmailAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrNoSession),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrAccountBlocked),
		errors.Is(err, common.ErrEmailNotVerified):
		return http.StatusForbidden
	case errors.Is(err, common.ErrDependencyFailure):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(w http.ResponseWriter, res services.Result) {
	resp := resultResponse{Success: res.Success, Message: res.Message}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	writeJSON(w, statusFor(res.Err), resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
