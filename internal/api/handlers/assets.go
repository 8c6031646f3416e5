// assets.go — обработчики изображений владельца: загрузка, список,
// правка метаданных, переходы публикации, удаление.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/goportfolio/internal/api/errors"
	"github.com/bigkaa/goportfolio/internal/api/middleware"
	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/domain/publication"
	"github.com/bigkaa/goportfolio/internal/repository"
	"github.com/bigkaa/goportfolio/internal/service"
	"github.com/bigkaa/goportfolio/internal/tenancy"
)

// AssetHandler — обработчики изображений.
type AssetHandler struct {
	ingest   *service.IngestService
	assets   *service.AssetService
	accounts *service.AccountService
	// maxUploadSize ограничивает тело multipart-запроса
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAssetHandler создаёт обработчик изображений.
func NewAssetHandler(ingest *service.IngestService, assets *service.AssetService, accounts *service.AccountService, maxUploadSize int64, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{
		ingest:        ingest,
		assets:        assets,
		accounts:      accounts,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "asset_handler")),
	}
}

// uploadResponse — ответ на загрузку изображения.
type uploadResponse struct {
	Status   string                  `json:"status"`
	Asset    *model.Asset            `json:"asset"`
	Variants []*model.AssetVariant   `json:"variants"`
	Warnings []service.IngestWarning `json:"warnings"`
}

// Upload — POST /api/v1/assets. Принимает multipart-форму с полем file.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	tenant, err := h.accounts.GetTenant(r.Context(), sess.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Запас на multipart-обвязку поверх лимита самого файла.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, service.ErrFileTooLarge.Error())
			return
		}
		apierrors.ValidationError(w, "Ожидается multipart-форма с полем file")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле file обязательно")
		return
	}
	defer file.Close()

	result, err := h.ingest.Ingest(r.Context(), tenant, file, header.Filename, service.SourceAddr(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	middleware.IngestsTotal.WithLabelValues(result.Status()).Inc()
	for _, warn := range result.Warnings {
		middleware.IngestWarningsTotal.WithLabelValues(warn.Code).Inc()
	}
	if result.Usage != nil {
		middleware.AITokensTotal.WithLabelValues("input").Add(float64(result.Usage.InputTokens))
		middleware.AITokensTotal.WithLabelValues("output").Add(float64(result.Usage.OutputTokens))
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Status:   result.Status(),
		Asset:    result.Asset,
		Variants: result.Variants,
		Warnings: result.Warnings,
	})
}

// List — GET /api/v1/assets. Список изображений владельца,
// включая черновики.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	filter := repository.AssetFilter{Category: r.URL.Query().Get("category")}
	filter.Limit, filter.Offset = paginationParams(r)
	if v := r.URL.Query().Get("published"); v != "" {
		published, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.ValidationError(w, "Параметр published должен быть true или false")
			return
		}
		filter.Published = &published
	}

	assets, total, err := h.assets.List(r.Context(), sess.TenantID, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assets": assets,
		"total":  total,
	})
}

// loadOwned возвращает изображение из пути запроса после проверки
// владения. Админ проходит проверку для любого изображения.
func (h *AssetHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*model.Asset, *auth.Session, bool) {
	sess := middleware.SessionFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректный идентификатор изображения")
		return nil, nil, false
	}

	asset, err := h.assets.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return nil, nil, false
	}

	if err := tenancy.AuthorizeOwner(sess, asset.OwnerID); err != nil {
		writeServiceError(w, err)
		return nil, nil, false
	}
	return asset, sess, true
}

// Get — GET /api/v1/assets/{id}.
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	asset, _, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	variants, err := h.assets.Variants(r.Context(), asset.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":    asset,
		"variants": variants,
	})
}

// metadataRequest — тело правки метаданных.
// Version обязательна: правка строится на оптимистичной блокировке.
type metadataRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category"`
	Tags         []string `json:"tags"`
	ISO          *string  `json:"iso"`
	Aperture     *string  `json:"aperture"`
	ShutterSpeed *string  `json:"shutter_speed"`
	FocalLength  *string  `json:"focal_length"`
	Version      *int     `json:"version"`
}

// Update — PATCH /api/v1/assets/{id}.
func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request) {
	asset, sess, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req metadataRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if req.Version == nil {
		apierrors.ValidationError(w, "Поле version обязательно")
		return
	}

	patch := service.MetadataPatch{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Tags:         req.Tags,
		ISO:          req.ISO,
		Aperture:     req.Aperture,
		ShutterSpeed: req.ShutterSpeed,
		FocalLength:  req.FocalLength,
	}

	updated, err := h.assets.UpdateMetadata(r.Context(), asset.ID, patch, *req.Version, sess.TenantID, service.SourceAddr(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type transitionRequest struct {
	Event string `json:"event"`
}

// Transition — POST /api/v1/assets/{id}/transition.
// События: publish, unpublish, feature, unfeature.
func (h *AssetHandler) Transition(w http.ResponseWriter, r *http.Request) {
	asset, sess, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	event, err := publication.ParseEvent(req.Event)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	updated, err := h.assets.Transition(r.Context(), asset.ID, event, sess.TenantID, service.SourceAddr(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete — DELETE /api/v1/assets/{id}. Удаляет изображение, варианты
// и файлы на диске.
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	asset, sess, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	owner, err := h.accounts.GetTenant(r.Context(), asset.OwnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.assets.Delete(r.Context(), asset.ID, owner.Handle, sess.TenantID, service.SourceAddr(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
