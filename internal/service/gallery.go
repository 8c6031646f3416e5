// gallery.go — сервис публичной галереи. Отдаёт только опубликованные
// изображения и скрывает параметры съёмки, если тенант не разрешил
// их показывать.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/repository"
	"github.com/bigkaa/goportfolio/internal/storage/filestore"
)

// GalleryService — чтение публичной галереи тенанта.
type GalleryService struct {
	assets repository.AssetRepository
	store  *filestore.FileStore
	logger *slog.Logger
}

// NewGalleryService создаёт сервис галереи.
func NewGalleryService(assets repository.AssetRepository, store *filestore.FileStore, logger *slog.Logger) *GalleryService {
	return &GalleryService{
		assets: assets,
		store:  store,
		logger: logger.With(slog.String("component", "gallery_service")),
	}
}

// published — фиксированный фильтр галереи.
func published() *bool {
	v := true
	return &v
}

// ListPublished возвращает опубликованные изображения тенанта.
// Параметры съёмки скрываются, если тенант не разрешил их показывать.
func (s *GalleryService) ListPublished(ctx context.Context, tenant *model.Tenant, category string, limit, offset int) ([]*model.Asset, int, error) {
	filter := repository.AssetFilter{
		Published: published(),
		Category:  category,
		Limit:     limit,
		Offset:    offset,
	}

	assets, err := s.assets.List(ctx, tenant.ID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения галереи: %w", err)
	}
	total, err := s.assets.Count(ctx, tenant.ID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта галереи: %w", err)
	}

	for _, a := range assets {
		redactCamera(a, tenant)
	}
	return assets, total, nil
}

// GetBySlug возвращает опубликованное изображение тенанта по slug.
// Черновики для публичной галереи не существуют: ErrNotFound.
func (s *GalleryService) GetBySlug(ctx context.Context, tenant *model.Tenant, assetSlug string) (*model.Asset, []*model.AssetVariant, error) {
	asset, err := s.assets.GetBySlug(ctx, tenant.ID, assetSlug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("ошибка поиска изображения: %w", err)
	}
	if !asset.Published {
		return nil, nil, ErrNotFound
	}

	variants, err := s.assets.ListVariants(ctx, asset.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка получения вариантов: %w", err)
	}

	redactCamera(asset, tenant)
	return asset, variants, nil
}

// OpenVariant открывает файл варианта опубликованного изображения.
// Запрошенный класс отдаётся при наличии, иначе оригинал:
// он остаётся финальным запасным вариантом.
func (s *GalleryService) OpenVariant(ctx context.Context, tenant *model.Tenant, assetID uuid.UUID, class model.VariantClass) (*os.File, string, error) {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("ошибка поиска изображения: %w", err)
	}
	if asset.OwnerID != tenant.ID || !asset.Published {
		return nil, "", ErrNotFound
	}

	storageName := asset.StorageName
	contentType := asset.ContentType

	variants, err := s.assets.ListVariants(ctx, assetID)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка получения вариантов: %w", err)
	}
	for _, v := range variants {
		if v.Class == class {
			storageName = v.StorageName
			contentType = "image/jpeg"
			break
		}
	}

	f, err := s.store.Open(tenant.Handle, storageName)
	if err != nil {
		s.logger.Error("файл изображения отсутствует на диске",
			slog.String("file", storageName),
			slog.String("asset_id", assetID.String()))
		return nil, "", ErrNotFound
	}
	return f, contentType, nil
}

// redactCamera скрывает параметры съёмки, если тенант их не раскрывает.
func redactCamera(a *model.Asset, tenant *model.Tenant) {
	if !tenant.ShareEXIF {
		a.Camera = model.CameraInfo{}
	}
}
