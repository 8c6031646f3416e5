// assets.go — сервис управления изображениями: переходы состояния
// публикации, правка метаданных, удаление.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/domain/publication"
	"github.com/bigkaa/goportfolio/internal/repository"
	"github.com/bigkaa/goportfolio/internal/storage/filestore"
)

// AssetService управляет изображениями после приёма.
type AssetService struct {
	assets repository.AssetRepository
	tx     *repository.TxRunner
	store  *filestore.FileStore
	audit  *AuditService
	logger *slog.Logger
}

// NewAssetService создаёт сервис управления изображениями.
func NewAssetService(assets repository.AssetRepository, tx *repository.TxRunner, store *filestore.FileStore, audit *AuditService, logger *slog.Logger) *AssetService {
	return &AssetService{
		assets: assets,
		tx:     tx,
		store:  store,
		audit:  audit,
		logger: logger.With(slog.String("component", "asset_service")),
	}
}

// Get возвращает изображение по UUID.
func (s *AssetService) Get(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска изображения: %w", err)
	}
	return asset, nil
}

// List возвращает изображения владельца.
func (s *AssetService) List(ctx context.Context, ownerID uuid.UUID, filter repository.AssetFilter) ([]*model.Asset, int, error) {
	assets, err := s.assets.List(ctx, ownerID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка: %w", err)
	}
	total, err := s.assets.Count(ctx, ownerID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта: %w", err)
	}
	return assets, total, nil
}

// Variants возвращает варианты изображения.
func (s *AssetService) Variants(ctx context.Context, assetID uuid.UUID) ([]*model.AssetVariant, error) {
	return s.assets.ListVariants(ctx, assetID)
}

// Transition применяет событие публикации к изображению.
//
// Строка блокируется SELECT ... FOR UPDATE на время транзакции:
// конкурентные переходы на одном изображении сериализуются, инвариант
// featured ⊂ published не нарушается ни в какой момент.
// Возвращает *publication.TransitionError для недопустимых переходов.
func (s *AssetService) Transition(ctx context.Context, id uuid.UUID, event publication.Event, actorID uuid.UUID, sourceAddr string) (*model.Asset, error) {
	var updated *model.Asset

	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		repo := repository.NewAssetRepository(tx)

		asset, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("ошибка поиска изображения: %w", err)
		}

		current := publication.Snapshot{
			State:       publication.StateOf(asset.Published),
			Featured:    asset.Featured,
			PublishedAt: asset.PublishedAt,
		}
		next, err := publication.Apply(current, event, time.Now())
		if err != nil {
			return err
		}

		if err := repo.UpdatePublication(ctx, id,
			next.State == publication.StatePublished, next.Featured,
			next.PublishedAt, asset.Version); err != nil {
			return err
		}

		asset.Published = next.State == publication.StatePublished
		asset.Featured = next.Featured
		asset.PublishedAt = next.PublishedAt
		asset.Version++
		updated = asset
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &actorID, auditActionFor(event), "asset", &id, sourceAddr, nil)

	return updated, nil
}

func auditActionFor(event publication.Event) string {
	switch event {
	case publication.EventPublish:
		return model.ActionAssetPublish
	case publication.EventUnpublish:
		return model.ActionAssetUnpublish
	case publication.EventFeature:
		return model.ActionAssetFeature
	case publication.EventUnfeature:
		return model.ActionAssetUnfeature
	}
	return model.ActionAssetUpdate
}

// MetadataPatch — правка описательных метаданных.
// nil-поле означает "не менять".
type MetadataPatch struct {
	Title       *string
	Description *string
	Category    *string
	Tags        []string

	// Технические метаданные, правятся вручную при сбое извлечения
	ISO          *string
	Aperture     *string
	ShutterSpeed *string
	FocalLength  *string
}

// UpdateMetadata правит описательные метаданные изображения.
// Версия проверяется оптимистично: ErrConflict при параллельной правке.
func (s *AssetService) UpdateMetadata(ctx context.Context, id uuid.UUID, patch MetadataPatch, expectedVersion int, actorID uuid.UUID, sourceAddr string) (*model.Asset, error) {
	var updated *model.Asset

	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		repo := repository.NewAssetRepository(tx)

		asset, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("ошибка поиска изображения: %w", err)
		}
		if asset.Version != expectedVersion {
			return repository.ErrVersionMismatch
		}

		if err := applyPatch(asset, patch); err != nil {
			return err
		}

		if err := repo.UpdateMetadata(ctx, asset); err != nil {
			return err
		}
		updated = asset
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &actorID, model.ActionAssetUpdate, "asset", &id, sourceAddr, nil)

	return updated, nil
}

// applyPatch переносит непустые поля патча в изображение с валидацией.
func applyPatch(asset *model.Asset, patch MetadataPatch) error {
	if patch.Title != nil {
		title := *patch.Title
		if title == "" {
			return fmt.Errorf("%w: название не может быть пустым", ErrValidation)
		}
		asset.Title = title
	}
	if patch.Description != nil {
		asset.Description = *patch.Description
	}
	if patch.Category != nil {
		asset.Category = *patch.Category
	}
	if patch.Tags != nil {
		if len(patch.Tags) > model.MaxTags {
			return fmt.Errorf("%w: не более %d тегов", ErrValidation, model.MaxTags)
		}
		for _, tag := range patch.Tags {
			if len(tag) > model.MaxTagLength {
				return fmt.Errorf("%w: тег длиннее %d символов", ErrValidation, model.MaxTagLength)
			}
		}
		asset.Tags = patch.Tags
	}

	if patch.ISO != nil {
		iso, err := model.ValidateISO(*patch.ISO)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrValidation, err)
		}
		asset.Camera.ISO = iso
	}
	if patch.Aperture != nil {
		v, err := model.ValidateAperture(*patch.Aperture)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrValidation, err)
		}
		asset.Camera.Aperture = v
	}
	if patch.ShutterSpeed != nil {
		v, err := model.ValidateShutterSpeed(*patch.ShutterSpeed)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrValidation, err)
		}
		asset.Camera.ShutterSpeed = v
	}
	if patch.FocalLength != nil {
		v, err := model.ValidateFocalLength(*patch.FocalLength)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrValidation, err)
		}
		asset.Camera.FocalLength = v
	}

	return nil
}

// Delete удаляет изображение, его варианты (каскадом в БД) и все файлы.
// Файлы удаляются после успешной транзакции: при ошибке БД изображение
// остаётся целым.
func (s *AssetService) Delete(ctx context.Context, id uuid.UUID, tenantHandle string, actorID uuid.UUID, sourceAddr string) error {
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка поиска изображения: %w", err)
	}

	variants, err := s.assets.ListVariants(ctx, id)
	if err != nil {
		return fmt.Errorf("ошибка получения вариантов: %w", err)
	}

	if err := s.assets.Delete(ctx, id); err != nil {
		return fmt.Errorf("ошибка удаления изображения: %w", err)
	}

	// Файлы удаляются после строк: осиротевшая строка хуже осиротевшего
	// файла. Ошибки удаления файлов логируются, операция уже необратима.
	if err := s.store.Delete(tenantHandle, asset.StorageName); err != nil {
		s.logger.Error("не удалось удалить оригинал",
			slog.String("file", asset.StorageName),
			slog.String("error", err.Error()))
	}
	for _, v := range variants {
		if err := s.store.Delete(tenantHandle, v.StorageName); err != nil {
			s.logger.Error("не удалось удалить вариант",
				slog.String("file", v.StorageName),
				slog.String("error", err.Error()))
		}
	}

	s.audit.Record(ctx, &actorID, model.ActionAssetDelete, "asset", &id, sourceAddr,
		map[string]any{"filename": asset.OriginalFilename})

	return nil
}
