package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comanda-pos/comanda/internal/platform/httpx"
	"github.com/comanda-pos/comanda/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	tokens         *TokenIssuer
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, tokens *TokenIssuer) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		tokens:         tokens,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User      shared.Actor `json:"user"`
	Name      string       `json:"name"`
	CSRFToken string       `json:"csrf_token"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Info("login rejected", slog.String("username", req.Username))
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "usuario o contraseña incorrectos")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	actor := user.Actor()
	sess.SetActor(actor)
	csrfToken, err := h.csrfManager.EnsureToken(sess)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	token, expires, err := h.tokens.Issue(actor)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.logger.Info("login", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	httpx.JSON(w, http.StatusOK, loginResponse{
		User:      actor,
		Name:      user.Name,
		CSRFToken: csrfToken,
		Token:     token,
		ExpiresAt: expires,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	user, err := h.service.Current(r.Context(), actor)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "account no longer available")
		return
	}
	resp := map[string]any{"user": user.Actor(), "name": user.Name}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if token := sess.Get(shared.CSRFSessionKey); token != "" {
			resp["csrf_token"] = token
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
