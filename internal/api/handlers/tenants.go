// tenants.go — обработчики управления тенантами: регистрация (только
// администратор), список, настройки и учёт расходов.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goportfolio/internal/api/errors"
	"github.com/bigkaa/goportfolio/internal/api/middleware"
	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/service"
)

// TenantHandler — обработчики управления тенантами.
type TenantHandler struct {
	accounts *service.AccountService
	ingest   *service.IngestService
	logger   *slog.Logger
}

// NewTenantHandler создаёт обработчик тенантов.
func NewTenantHandler(accounts *service.AccountService, ingest *service.IngestService, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{
		accounts: accounts,
		ingest:   ingest,
		logger:   logger.With(slog.String("component", "tenant_handler")),
	}
}

// requireAdmin проверяет роль администратора у текущей сессии.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil || sess.Role != model.RoleAdmin {
		apierrors.Forbidden(w, "Требуется роль администратора")
		return false
	}
	return true
}

type registerRequest struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Secret      string `json:"secret"`
	Subdomain   string `json:"subdomain"`
	Role        string `json:"role"`
	AIStyle     string `json:"ai_style"`
}

// Register — POST /api/v1/tenants. Только администратор.
func (h *TenantHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	sess := middleware.SessionFromContext(r.Context())

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	tenant, err := h.accounts.Register(r.Context(), sess.TenantID, service.RegisterParams{
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		Secret:      req.Secret,
		Subdomain:   req.Subdomain,
		Role:        model.Role(req.Role),
		AIStyle:     model.AIStyle(req.AIStyle),
	}, service.SourceAddr(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

// List — GET /api/v1/tenants. Только администратор.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	tenants, err := h.accounts.ListTenants(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

type settingsRequest struct {
	AIStyle   string `json:"ai_style"`
	ShareEXIF bool   `json:"share_exif"`
}

// UpdateSettings — PUT /api/v1/settings. Настройки текущего тенанта.
func (h *TenantHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	tenant, err := h.accounts.UpdateSettings(r.Context(), sess.TenantID, service.SettingsParams{
		AIStyle:   model.AIStyle(req.AIStyle),
		ShareEXIF: req.ShareEXIF,
	}, service.SourceAddr(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// Usage — GET /api/v1/usage. Суммарные расходы текущего тенанта
// на генерацию описаний.
func (h *TenantHandler) Usage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		apierrors.Unauthorized(w, "Требуется вход")
		return
	}

	in, out, err := h.ingest.TotalUsage(r.Context(), sess.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"input_tokens":  in,
		"output_tokens": out,
	})
}
