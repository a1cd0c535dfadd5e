package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/httpserver"
)

// Handler exposes the login/logout/whoami HTTP endpoints.
type Handler struct {
	exchanger   *Exchanger
	sessions    *SessionStore
	rateLimiter *RateLimiter
	cookieName  string
	ttl         time.Duration
	logger      *slog.Logger
}

// NewHandler builds the auth Handler.
func NewHandler(exchanger *Exchanger, sessions *SessionStore, rateLimiter *RateLimiter, cookieName string, ttl time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		exchanger:   exchanger,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		cookieName:  cookieName,
		ttl:         ttl,
		logger:      logger,
	}
}

type loginRequest struct {
	Token string `json:"token"`
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return r.RemoteAddr
}

// Login exchanges an upstream SSO token for a local session, setting the
// session cookie on success.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if h.rateLimiter != nil {
		allowed, err := h.rateLimiter.Allow(r.Context(), ip)
		if err != nil {
			httpserver.RespondError(w, h.logger, err)
			return
		}
		if !allowed {
			httpserver.RespondError(w, h.logger, apperr.New(apperr.KindForbidden, "too many login attempts"))
			return
		}
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpserver.RespondError(w, h.logger, apperr.New(apperr.KindBadRequest, "bad request"))
		return
	}

	h.logger.Info("login requested")

	principal, err := h.exchanger.Exchange(r.Context(), req.Token)
	if err != nil {
		httpserver.RespondError(w, h.logger, err)
		return
	}

	token, err := h.sessions.Put(r.Context(), principal)
	if err != nil {
		httpserver.RespondError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		HttpOnly: true,
		MaxAge:   int(h.ttl.Seconds()),
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	if h.rateLimiter != nil {
		_ = h.rateLimiter.Reset(r.Context(), ip)
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout drops the current session, if any, and clears the cookie. A
// missing cookie is not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Drop(r.Context(), cookie.Value); err != nil {
			httpserver.RespondError(w, h.logger, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		HttpOnly: true,
		MaxAge:   0,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me returns the authenticated Principal, for smoke-testing a session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpserver.RespondError(w, h.logger, apperr.New(apperr.KindUnauthorized, "not authenticated"))
		return
	}
	httpserver.Respond(w, http.StatusOK, p)
}
