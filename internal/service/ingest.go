// ingest.go — конвейер приёма изображений.
//
// Стадии: приём → валидация → извлечение EXIF → генерация описания →
// генерация вариантов → атомарное сохранение. После валидации фатальна
// только финальная запись: остальные сбои накапливаются как предупреждения,
// и изображение всё равно сохраняется.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/imaging"
	"github.com/bigkaa/goportfolio/internal/repository"
	"github.com/bigkaa/goportfolio/internal/storage/filestore"
	"github.com/bigkaa/goportfolio/internal/vision"
)

// Коды предупреждений конвейера.
const (
	WarnMetadataExtractionFailed    = "METADATA_EXTRACTION_FAILED"
	WarnDescriptionGenerationFailed = "DESCRIPTION_GENERATION_FAILED"
	WarnVariantGenerationFailed     = "VARIANT_GENERATION_FAILED"
)

// Статусы завершения конвейера.
const (
	StatusComplete          = "complete"
	StatusPartiallyComplete = "partially_complete"
)

// IngestWarning — некритичный сбой одной из стадий конвейера.
type IngestWarning struct {
	// Code — машинный код предупреждения
	Code string `json:"code"`
	// SizeClass — класс варианта, заполняется только для
	// VARIANT_GENERATION_FAILED
	SizeClass string `json:"size_class,omitempty"`
	// Message — описание для оператора
	Message string `json:"message"`
}

// IngestResult — итог приёма: изображение, варианты и накопленные
// предупреждения.
type IngestResult struct {
	Asset    *model.Asset          `json:"asset"`
	Variants []*model.AssetVariant `json:"variants"`
	Warnings []IngestWarning       `json:"warnings"`
	// Usage — потреблённые токены сервиса описаний. nil, если
	// описание не генерировалось.
	Usage *vision.Usage `json:"-"`
}

// Status возвращает complete при отсутствии предупреждений,
// иначе partially_complete.
func (r *IngestResult) Status() string {
	if len(r.Warnings) == 0 {
		return StatusComplete
	}
	return StatusPartiallyComplete
}

// IngestService — конвейер приёма изображений.
type IngestService struct {
	assets  repository.AssetRepository
	aiCosts repository.AICostRepository
	tx      *repository.TxRunner
	store   *filestore.FileStore
	// describer генерирует описательные метаданные, nil допустим
	describer vision.Describer
	audit     *AuditService
	// uploadLimiter ограничивает загрузки по идентификатору тенанта
	uploadLimiter  *auth.RateLimiter
	maxUploadSize  int64
	storageTimeout time.Duration
	logger         *slog.Logger
}

// NewIngestService создаёт конвейер приёма.
func NewIngestService(
	assets repository.AssetRepository,
	aiCosts repository.AICostRepository,
	tx *repository.TxRunner,
	store *filestore.FileStore,
	describer vision.Describer,
	audit *AuditService,
	uploadLimiter *auth.RateLimiter,
	maxUploadSize int64,
	storageTimeout time.Duration,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		assets:         assets,
		aiCosts:        aiCosts,
		tx:             tx,
		store:          store,
		describer:      describer,
		audit:          audit,
		uploadLimiter:  uploadLimiter,
		maxUploadSize:  maxUploadSize,
		storageTimeout: storageTimeout,
		logger:         logger.With(slog.String("component", "ingest_service")),
	}
}

// Ingest проводит загруженный файл через все стадии конвейера.
//
// Фатальны только валидация (неподдерживаемый формат, превышение размера)
// и финальная атомарная запись. Сбои EXIF, описания и отдельных вариантов
// накапливаются в Warnings, изображение при этом сохраняется.
// При ошибке записи уже размещённые файлы удаляются: клиент, оборвавший
// загрузку, не оставляет частично видимых изображений.
func (s *IngestService) Ingest(ctx context.Context, tenant *model.Tenant, reader io.Reader, originalFilename, sourceAddr string) (*IngestResult, error) {
	if err := s.uploadLimiter.Allow(tenant.ID.String()); err != nil {
		s.logger.Warn("превышен лимит загрузок тенанта",
			slog.String("tenant", tenant.Handle))
		return nil, ErrThrottled
	}

	// Received → Validated. Единственная стадия, читающая тело запроса.
	data, err := io.ReadAll(io.LimitReader(reader, s.maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения загружаемого файла: %w", err)
	}
	if int64(len(data)) > s.maxUploadSize {
		return nil, ErrFileTooLarge
	}

	// Тип определяется по содержимому, заявленный клиентом MIME-тип
	// не учитывается.
	info, err := imaging.Validate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, err)
	}

	result := &IngestResult{}
	now := time.Now().UTC()

	// Validated → MetadataExtracted.
	camera := s.extractMetadata(data, info, result)

	// MetadataExtracted → DescribedOrSkipped.
	desc, usage := s.describe(ctx, tenant, data, info.ContentType, originalFilename, now, result)

	// DescribedOrSkipped → VariantsGenerated. Варианты готовятся в памяти,
	// на диск ничего не пишется до успешного размещения оригинала.
	renditions := s.generateVariants(data, result)

	// VariantsGenerated → Persisted.
	asset, variants, err := s.persist(ctx, tenant, data, originalFilename, info, camera, desc, renditions, now)
	if err != nil {
		return nil, err
	}

	if usage != nil {
		s.recordUsage(ctx, tenant.ID, asset.ID, usage)
		result.Usage = usage
	}

	result.Asset = asset
	result.Variants = variants

	s.audit.Record(ctx, &tenant.ID, model.ActionAssetIngest, "asset", &asset.ID, sourceAddr,
		map[string]any{"filename": originalFilename, "status": result.Status()})

	s.logger.Info("изображение принято",
		slog.String("tenant", tenant.Handle),
		slog.String("asset_id", asset.ID.String()),
		slog.String("status", result.Status()),
		slog.Int("warnings", len(result.Warnings)))

	return result, nil
}

// extractMetadata извлекает параметры съёмки из EXIF.
// Отсутствие или нечитаемость EXIF не прерывает конвейер.
func (s *IngestService) extractMetadata(data []byte, info *imaging.ImageInfo, result *IngestResult) model.CameraInfo {
	// EXIF бывает только в JPEG, для PNG стадия пропускается без предупреждения.
	if info.Format != "jpeg" {
		return model.CameraInfo{}
	}

	camera, err := imaging.ExtractCameraInfo(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("не удалось извлечь EXIF", slog.String("error", err.Error()))
		result.Warnings = append(result.Warnings, IngestWarning{
			Code:    WarnMetadataExtractionFailed,
			Message: "не удалось извлечь параметры съёмки, технические метаданные пусты",
		})
		return model.CameraInfo{}
	}
	return camera
}

// describe запрашивает описание у внешнего сервиса. Любой сбой
// (таймаут, квота, некорректный ответ) заменяется детерминированным
// описанием из имени файла.
func (s *IngestService) describe(ctx context.Context, tenant *model.Tenant, data []byte, contentType, originalFilename string, now time.Time, result *IngestResult) (*vision.Description, *vision.Usage) {
	if s.describer == nil {
		return vision.Fallback(originalFilename, now), nil
	}

	desc, usage, err := s.describer.Describe(ctx, data, contentType, tenant.AIStyle)
	if err != nil {
		if !errors.Is(err, vision.ErrNotConfigured) {
			s.logger.Warn("не удалось сгенерировать описание",
				slog.String("tenant", tenant.Handle),
				slog.String("error", err.Error()))
			result.Warnings = append(result.Warnings, IngestWarning{
				Code:    WarnDescriptionGenerationFailed,
				Message: "описание не сгенерировано, использованы значения из имени файла",
			})
		}
		// Токены могли быть потрачены и при некорректном ответе.
		return vision.Fallback(originalFilename, now), usage
	}
	return desc, usage
}

// generateVariants готовит производные изображения в памяти.
// Сбой отдельного класса не отменяет остальные: оригинал остаётся
// финальным запасным вариантом.
func (s *IngestService) generateVariants(data []byte, result *IngestResult) []*imaging.VariantResult {
	img, err := imaging.DecodeImage(data)
	if err != nil {
		s.logger.Warn("не удалось декодировать изображение для вариантов",
			slog.String("error", err.Error()))
		for _, class := range model.VariantClasses {
			result.Warnings = append(result.Warnings, IngestWarning{
				Code:      WarnVariantGenerationFailed,
				SizeClass: string(class),
				Message:   fmt.Sprintf("вариант %s не сгенерирован", class),
			})
		}
		return nil
	}

	renditions := make([]*imaging.VariantResult, 0, len(model.VariantClasses))
	for _, class := range model.VariantClasses {
		v, err := imaging.GenerateVariant(img, class)
		if err != nil {
			s.logger.Warn("не удалось сгенерировать вариант",
				slog.String("class", string(class)),
				slog.String("error", err.Error()))
			result.Warnings = append(result.Warnings, IngestWarning{
				Code:      WarnVariantGenerationFailed,
				SizeClass: string(class),
				Message:   fmt.Sprintf("вариант %s не сгенерирован", class),
			})
			continue
		}
		renditions = append(renditions, v)
	}
	return renditions
}

// persist размещает файлы на диске и записывает изображение с вариантами
// в одной транзакции. При ошибке транзакции все размещённые файлы
// удаляются, осиротевших blob-ов не остаётся.
func (s *IngestService) persist(ctx context.Context, tenant *model.Tenant, data []byte, originalFilename string, info *imaging.ImageInfo, camera model.CameraInfo, desc *vision.Description, renditions []*imaging.VariantResult, now time.Time) (*model.Asset, []*model.AssetVariant, error) {
	storageCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	saved, err := s.store.SaveOriginal(tenant.Handle, bytes.NewReader(data), originalFilename)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка сохранения оригинала: %w", err)
	}
	// Имена всех размещённых файлов, для очистки при откате.
	written := []string{saved.StorageName}
	cleanup := func() {
		for _, name := range written {
			if err := s.store.Delete(tenant.Handle, name); err != nil {
				s.logger.Error("не удалось удалить файл при откате",
					slog.String("file", name),
					slog.String("error", err.Error()))
			}
		}
	}

	assetID := uuid.New()
	variants := make([]*model.AssetVariant, 0, len(renditions))
	for _, r := range renditions {
		name, size, err := s.store.SaveVariant(tenant.Handle, saved.StorageName, string(r.Class), r.Data)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("ошибка сохранения варианта %s: %w", r.Class, err)
		}
		written = append(written, name)
		variants = append(variants, &model.AssetVariant{
			ID:          uuid.New(),
			AssetID:     assetID,
			Class:       r.Class,
			StorageName: name,
			Width:       r.Width,
			Height:      r.Height,
			Size:        size,
		})
	}

	asset := &model.Asset{
		ID:               assetID,
		OwnerID:          tenant.ID,
		Title:            desc.Title,
		Description:      desc.Description,
		Category:         desc.Category,
		Tags:             desc.Tags,
		StorageName:      saved.StorageName,
		OriginalFilename: originalFilename,
		ContentType:      info.ContentType,
		Size:             saved.Size,
		Checksum:         saved.Checksum,
		Width:            info.Width,
		Height:           info.Height,
		Camera:           camera,
	}
	if asset.Category == "" {
		asset.Category = vision.FallbackCategory
	}

	asset.Slug, err = s.uniqueSlug(storageCtx, tenant.ID, asset.Title, now)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	err = s.tx.RunInTx(storageCtx, func(tx pgx.Tx) error {
		repo := repository.NewAssetRepository(tx)
		if err := repo.Create(storageCtx, asset); err != nil {
			return err
		}
		for _, v := range variants {
			if err := repo.CreateVariant(storageCtx, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("ошибка записи изображения: %w", err)
	}

	return asset, variants, nil
}

// uniqueSlug строит slug из названия, уникальный в пределах владельца.
// Занятые slug получают числовой суффикс.
func (s *IngestService) uniqueSlug(ctx context.Context, ownerID uuid.UUID, title string, now time.Time) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = now.Format("2006-01-02-150405")
	}

	candidate := base
	for i := 2; ; i++ {
		exists, err := s.assets.SlugExists(ctx, ownerID, candidate)
		if err != nil {
			return "", fmt.Errorf("ошибка проверки slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// recordUsage пишет запись учёта расходов. Сбой учёта логируется,
// но не влияет на результат приёма.
func (s *IngestService) recordUsage(ctx context.Context, tenantID, assetID uuid.UUID, usage *vision.Usage) {
	modelName := ""
	if s.describer != nil {
		modelName = s.describer.Model()
	}
	cost := &model.AICost{
		ID:           uuid.New(),
		TenantID:     tenantID,
		AssetID:      assetID,
		Model:        modelName,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
	}
	if err := s.aiCosts.Record(ctx, cost); err != nil {
		s.logger.Error("не удалось записать расходы на описание",
			slog.String("error", err.Error()))
	}
}

// TotalUsage возвращает суммарные потреблённые токены тенанта.
func (s *IngestService) TotalUsage(ctx context.Context, tenantID uuid.UUID) (inputTokens, outputTokens int, err error) {
	return s.aiCosts.TotalsByTenant(ctx, tenantID)
}
