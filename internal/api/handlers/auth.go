// auth.go — обработчики аутентификации: вход, выход, текущая сессия,
// anti-forgery токен, смена секретной фразы.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/goportfolio/internal/api/errors"
	"github.com/bigkaa/goportfolio/internal/api/middleware"
	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/service"
)

// AuthHandler — обработчики сессионных endpoint-ов.
type AuthHandler struct {
	accounts *service.AccountService
	sessions *auth.SessionManager
	csrf     *auth.CSRFManager
	logger   *slog.Logger
}

// NewAuthHandler создаёт обработчик аутентификации.
func NewAuthHandler(accounts *service.AccountService, sessions *auth.SessionManager, csrf *auth.CSRFManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		csrf:     csrf,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

type loginRequest struct {
	Handle string `json:"handle"`
	Secret string `json:"secret"`
}

type loginResponse struct {
	Tenant    *model.Tenant `json:"tenant"`
	CSRFToken string        `json:"csrf_token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Login — POST /api/v1/auth/login.
// Устанавливает сессионный cookie и возвращает anti-forgery токен.
// Токен отдаётся только в теле ответа, из cookie он не выводится.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if req.Handle == "" || req.Secret == "" {
		apierrors.ValidationError(w, "Поля handle и secret обязательны")
		return
	}

	tenant, err := h.accounts.Authenticate(r.Context(), req.Handle, req.Secret, service.SourceAddr(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := time.Now()
	token, sess, err := h.sessions.Issue(tenant.ID, tenant.Role, now)
	if err != nil {
		h.logger.Error("не удалось выпустить сессию", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}
	h.sessions.SetCookie(w, token)

	writeJSON(w, http.StatusOK, loginResponse{
		Tenant:    tenant,
		CSRFToken: h.csrf.Issue(sess.SessionID, now),
		ExpiresAt: sess.ExpiresAt,
	})
}

// Logout — POST /api/v1/auth/logout.
// Сессия stateless, выход — это удаление cookie на клиенте.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		h.accounts.RecordLogout(r.Context(), sess.TenantID, service.SourceAddr(r))
	}
	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me — GET /api/v1/auth/me. Возвращает тенанта текущей сессии.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	tenant, err := h.accounts.GetTenant(r.Context(), sess.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// CSRFToken — GET /api/v1/auth/csrf.
// Выдаёт свежий anti-forgery токен для текущей сессии: токены живут
// меньше сессии, страница может запросить новый без повторного входа.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"csrf_token": h.csrf.Issue(sess.SessionID, time.Now()),
	})
}

type changeSecretRequest struct {
	Current string `json:"current_secret"`
	Next    string `json:"new_secret"`
}

// ChangeSecret — POST /api/v1/auth/secret.
func (h *AuthHandler) ChangeSecret(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	var req changeSecretRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	if err := h.accounts.ChangeSecret(r.Context(), sess.TenantID, req.Current, req.Next, service.SourceAddr(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
