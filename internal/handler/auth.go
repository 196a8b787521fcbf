package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amogham/storefront/internal/auth"
	"github.com/amogham/storefront/internal/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SessionIssuer is the admin session manager as seen by the login endpoints.
// Satisfied by *auth.SessionManager.
type SessionIssuer interface {
	Login(password string) (auth.Session, error)
	Logout(token string) error
}

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	sessions SessionIssuer
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions SessionIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers the public login endpoint.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admin/login", h.Login)
}

// RegisterProtectedRoutes registers endpoints that need an authenticated session.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.Logout)
}

// --- Request / Response types ---

type loginRequest struct {
	Password string `json:"password"`
}

// --- Handlers ---

// Login exchanges the admin password for a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password is required"})
		return
	}

	sess, err := h.sessions.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Incorrect password"})
			return
		}
		h.logger.Error("admin login", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// Logout revokes the session the request was authenticated with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(middleware.TokenFromContext(r.Context())); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure is a dropped client.
	_ = json.NewEncoder(w).Encode(v)
}
