// gallery.go — публичная галерея. Тенант определяется по контексту
// маршрутизации (метка поддомена или заголовок доверенного прокси),
// аутентификация не требуется. Отдаются только опубликованные
// изображения.
package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/goportfolio/internal/api/errors"
	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/service"
	"github.com/bigkaa/goportfolio/internal/tenancy"
)

// GalleryHandler — обработчики публичной галереи.
type GalleryHandler struct {
	resolver *tenancy.Resolver
	gallery  *service.GalleryService
	logger   *slog.Logger
}

// NewGalleryHandler создаёт обработчик галереи.
func NewGalleryHandler(resolver *tenancy.Resolver, gallery *service.GalleryService, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{
		resolver: resolver,
		gallery:  gallery,
		logger:   logger.With(slog.String("component", "gallery_handler")),
	}
}

// resolveTenant определяет тенанта по контексту маршрутизации.
// Любая неоднозначность — 404, галерея закрывается, а не угадывает.
func (h *GalleryHandler) resolveTenant(w http.ResponseWriter, r *http.Request) (*model.Tenant, bool) {
	label := tenancy.LabelFromRequest(r)
	tenant, err := h.resolver.Resolve(r.Context(), label)
	if err != nil {
		apierrors.NotFound(w, "Портфолио не найдено")
		return nil, false
	}
	return tenant, true
}

// galleryTenant — публичное представление тенанта, без служебных полей.
type galleryTenant struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
}

// List — GET /api/v1/gallery. Опубликованные изображения тенанта.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	limit, offset := paginationParams(r)
	assets, total, err := h.gallery.ListPublished(r.Context(), tenant, r.URL.Query().Get("category"), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tenant": galleryTenant{Handle: tenant.Handle, DisplayName: tenant.DisplayName},
		"assets": assets,
		"total":  total,
	})
}

// Get — GET /api/v1/gallery/{slug}. Опубликованное изображение по slug.
func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	asset, variants, err := h.gallery.GetBySlug(r.Context(), tenant, chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset":    asset,
		"variants": variants,
	})
}

// File — GET /api/v1/files/{id}/{class}. Файл варианта опубликованного
// изображения; class: large, medium, thumbnail или original.
func (h *GalleryHandler) File(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректный идентификатор изображения")
		return
	}
	class := model.VariantClass(chi.URLParam(r, "class"))
	switch class {
	case model.VariantLarge, model.VariantMedium, model.VariantThumbnail, "original":
	default:
		apierrors.ValidationError(w, "Недопустимый класс варианта")
		return
	}

	f, contentType, err := h.gallery.OpenVariant(r.Context(), tenant, id, class)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Debug("прерванная отдача файла", slog.String("error", err.Error()))
	}
}
