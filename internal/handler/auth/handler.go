package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wozlab/woz-relay/internal/config"
	"github.com/wozlab/woz-relay/pkg/utils"
)

// CookieName holds the signed session token in the browser.
const CookieName = "woz_auth"

// Handler implements the shared-password gate: one site password, a signed
// cookie on success, and a middleware that guards everything else.
type Handler struct {
	cfg config.AuthConfig
}

// New creates the auth handler.
func New(cfg config.AuthConfig) *Handler {
	return &Handler{cfg: cfg}
}

// RegisterRoutes mounts the login and logout endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid request body"})
		return
	}

	if !h.cfg.Enabled() {
		utils.RespondJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "SITE_PASSWORD is not configured."})
		return
	}

	if payload.Password == "" || payload.Password != h.cfg.SitePassword {
		utils.RespondJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "Incorrect password. Please try again."})
		return
	}

	token, err := h.signToken()
	if err != nil {
		utils.RespondJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "failed to issue token"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookies,
	})
	utils.RespondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookies,
	})
	utils.RespondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Middleware rejects requests without a valid token. With the gate disabled
// it passes everything through.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(CookieName); err == nil {
				token = cookie.Value
			}
		}

		if token == "" || !h.verifyToken(token) {
			utils.RespondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
