package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/lamitie/server/internal/api/problem"
	"github.com/lamitie/server/internal/auth"
)

// AdminAuthHandler issues JWTs for the single admin identity. There is no
// user table; the credential is the bcrypt hash loaded from configuration.
type AdminAuthHandler struct {
	PasswordHash string
	JWTManager   *auth.JWTManager
	TokenTTL     time.Duration
	Env          string
}

func NewAdminAuthHandler(passwordHash string, jwtManager *auth.JWTManager, tokenTTL time.Duration, env string) *AdminAuthHandler {
	return &AdminAuthHandler{
		PasswordHash: passwordHash,
		JWTManager:   jwtManager,
		TokenTTL:     tokenTTL,
		Env:          env,
	}
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Role      string `json:"role"`
}

// Login handles POST /api/v1/admin/login. On success the token is returned
// in the body for API clients and set as an HttpOnly cookie for browsers.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.JWTManager == nil || h.PasswordHash == "" {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", nil, h.Env)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	if err := auth.VerifyPassword(h.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", err, h.Env)
		return
	}

	token, err := h.JWTManager.Generate("admin", auth.RoleAdmin)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", err, h.Env)
		return
	}

	expiresAt := time.Now().Add(h.TokenTTL)

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Role:      auth.RoleAdmin,
	})
}

// Logout handles POST /api/v1/admin/logout by clearing the auth cookie.
// Bearer tokens simply expire; there is no server-side revocation list.
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
