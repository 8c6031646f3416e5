package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// AssetFilter — фильтрация списка изображений владельца.
type AssetFilter struct {
	// Published — фильтр по состоянию публикации, nil — без фильтра
	Published *bool
	// Category — фильтр по категории, пустая строка — без фильтра
	Category string
	Limit    int
	Offset   int
}

// AssetRepository — доступ к таблицам assets и asset_variants.
type AssetRepository interface {
	// Create сохраняет изображение.
	Create(ctx context.Context, a *model.Asset) error
	// CreateVariant сохраняет производное изображение.
	CreateVariant(ctx context.Context, v *model.AssetVariant) error
	// GetByID возвращает изображение по UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	// GetByIDForUpdate возвращает изображение, удерживая блокировку
	// строки до конца транзакции. Вызывается только внутри pgx.Tx.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	// GetBySlug возвращает изображение владельца по slug.
	GetBySlug(ctx context.Context, ownerID uuid.UUID, slug string) (*model.Asset, error)
	// List возвращает изображения владельца с фильтрацией.
	List(ctx context.Context, ownerID uuid.UUID, filter AssetFilter) ([]*model.Asset, error)
	// Count возвращает количество изображений владельца с фильтрацией.
	Count(ctx context.Context, ownerID uuid.UUID, filter AssetFilter) (int, error)
	// ListVariants возвращает варианты изображения.
	ListVariants(ctx context.Context, assetID uuid.UUID) ([]*model.AssetVariant, error)
	// SlugExists проверяет занятость slug у владельца.
	SlugExists(ctx context.Context, ownerID uuid.UUID, slug string) (bool, error)
	// UpdateMetadata обновляет описательные метаданные с проверкой версии.
	UpdateMetadata(ctx context.Context, a *model.Asset) error
	// UpdatePublication обновляет состояние публикации с проверкой версии.
	UpdatePublication(ctx context.Context, id uuid.UUID, published, featured bool,
		publishedAt *time.Time, expectedVersion int) error
	// Delete удаляет изображение. Варианты удаляются каскадно.
	Delete(ctx context.Context, id uuid.UUID) error
}

type assetRepo struct {
	db DBTX
}

// NewAssetRepository создаёт репозиторий изображений.
func NewAssetRepository(db DBTX) AssetRepository {
	return &assetRepo{db: db}
}

// assetColumns — список колонок для SELECT-запросов.
const assetColumns = `id, owner_id, title, slug, description, category, tags,
	storage_name, original_filename, content_type, size, checksum, width, height,
	camera_make, camera_model, lens_model, iso, aperture, shutter_speed, focal_length, taken_at, location,
	published, featured, published_at, version, created_at, updated_at`

func (r *assetRepo) Create(ctx context.Context, a *model.Asset) error {
	query := `
		INSERT INTO assets (id, owner_id, title, slug, description, category, tags,
			storage_name, original_filename, content_type, size, checksum, width, height,
			camera_make, camera_model, lens_model, iso, aperture, shutter_speed, focal_length, taken_at, location,
			published, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING version, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.OwnerID, a.Title, a.Slug, a.Description, a.Category, a.Tags,
		a.StorageName, a.OriginalFilename, a.ContentType, a.Size, a.Checksum, a.Width, a.Height,
		nullStr(a.Camera.CameraMake), nullStr(a.Camera.CameraModel), nullStr(a.Camera.LensModel),
		nullInt(a.Camera.ISO), nullStr(a.Camera.Aperture), nullStr(a.Camera.ShutterSpeed),
		nullStr(a.Camera.FocalLength), a.Camera.TakenAt, nullStr(a.Camera.Location),
		a.Published, a.Featured,
	).Scan(&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug уже занят у этого владельца", ErrConflict)
		}
		return fmt.Errorf("ошибка сохранения изображения: %w", err)
	}
	return nil
}

func (r *assetRepo) CreateVariant(ctx context.Context, v *model.AssetVariant) error {
	query := `
		INSERT INTO asset_variants (id, asset_id, class, storage_name, width, height, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		v.ID, v.AssetID, v.Class, v.StorageName, v.Width, v.Height, v.Size,
	).Scan(&v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: вариант %s уже существует", ErrConflict, v.Class)
		}
		return fmt.Errorf("ошибка сохранения варианта: %w", err)
	}
	return nil
}

func (r *assetRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id = $1`, assetColumns)
	return r.getOne(ctx, query, id)
}

func (r *assetRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	// Блокировка строки сериализует конкурентные переходы публикации
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id = $1 FOR UPDATE`, assetColumns)
	return r.getOne(ctx, query, id)
}

func (r *assetRepo) GetBySlug(ctx context.Context, ownerID uuid.UUID, slug string) (*model.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE owner_id = $1 AND slug = $2`, assetColumns)
	return r.getOne(ctx, query, ownerID, slug)
}

func (r *assetRepo) getOne(ctx context.Context, query string, args ...any) (*model.Asset, error) {
	a, err := scanAsset(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения изображения: %w", err)
	}
	return a, nil
}

func (r *assetRepo) List(ctx context.Context, ownerID uuid.UUID, filter AssetFilter) ([]*model.Asset, error) {
	where, args := assetWhere(ownerID, filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT %s FROM assets
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, assetColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка изображений: %w", err)
	}
	defer rows.Close()

	var result []*model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения изображения: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *assetRepo) Count(ctx context.Context, ownerID uuid.UUID, filter AssetFilter) (int, error) {
	where, args := assetWhere(ownerID, filter)

	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM assets `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта изображений: %w", err)
	}
	return count, nil
}

// assetWhere строит условие WHERE для List и Count.
func assetWhere(ownerID uuid.UUID, filter AssetFilter) (string, []any) {
	where := "WHERE owner_id = $1"
	args := []any{ownerID}

	if filter.Published != nil {
		args = append(args, *filter.Published)
		where += fmt.Sprintf(" AND published = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	return where, args
}

func (r *assetRepo) ListVariants(ctx context.Context, assetID uuid.UUID) ([]*model.AssetVariant, error) {
	query := `
		SELECT id, asset_id, class, storage_name, width, height, size, created_at
		FROM asset_variants
		WHERE asset_id = $1
		ORDER BY class`

	rows, err := r.db.Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения вариантов: %w", err)
	}
	defer rows.Close()

	var result []*model.AssetVariant
	for rows.Next() {
		v := &model.AssetVariant{}
		if err := rows.Scan(&v.ID, &v.AssetID, &v.Class, &v.StorageName,
			&v.Width, &v.Height, &v.Size, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения варианта: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *assetRepo) SlugExists(ctx context.Context, ownerID uuid.UUID, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM assets WHERE owner_id = $1 AND slug = $2)`,
		ownerID, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки slug: %w", err)
	}
	return exists, nil
}

func (r *assetRepo) UpdateMetadata(ctx context.Context, a *model.Asset) error {
	query := `
		UPDATE assets
		SET title = $3, slug = $4, description = $5, category = $6, tags = $7,
			camera_make = $8, camera_model = $9, lens_model = $10, iso = $11,
			aperture = $12, shutter_speed = $13, focal_length = $14, taken_at = $15, location = $16,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.Version, a.Title, a.Slug, a.Description, a.Category, a.Tags,
		nullStr(a.Camera.CameraMake), nullStr(a.Camera.CameraModel), nullStr(a.Camera.LensModel),
		nullInt(a.Camera.ISO), nullStr(a.Camera.Aperture), nullStr(a.Camera.ShutterSpeed),
		nullStr(a.Camera.FocalLength), a.Camera.TakenAt, nullStr(a.Camera.Location),
	).Scan(&a.Version, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrVersionMismatch
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug уже занят у этого владельца", ErrConflict)
		}
		return fmt.Errorf("ошибка обновления метаданных: %w", err)
	}
	return nil
}

func (r *assetRepo) UpdatePublication(ctx context.Context, id uuid.UUID, published, featured bool,
	publishedAt *time.Time, expectedVersion int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE assets
		SET published = $3, featured = $4, published_at = $5,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`,
		id, expectedVersion, published, featured, publishedAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления публикации: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionMismatch
	}
	return nil
}

func (r *assetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления изображения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanAsset читает строку assets в модель.
func scanAsset(row pgx.Row) (*model.Asset, error) {
	a := &model.Asset{}
	var cameraMake, cameraModel, lensModel, aperture, shutter, focal, location *string
	var iso *int

	err := row.Scan(
		&a.ID, &a.OwnerID, &a.Title, &a.Slug, &a.Description, &a.Category, &a.Tags,
		&a.StorageName, &a.OriginalFilename, &a.ContentType, &a.Size, &a.Checksum,
		&a.Width, &a.Height,
		&cameraMake, &cameraModel, &lensModel, &iso, &aperture, &shutter, &focal, &a.Camera.TakenAt,
		&location,
		&a.Published, &a.Featured, &a.PublishedAt, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Camera.CameraMake = deref(cameraMake)
	a.Camera.CameraModel = deref(cameraModel)
	a.Camera.LensModel = deref(lensModel)
	a.Camera.Aperture = deref(aperture)
	a.Camera.ShutterSpeed = deref(shutter)
	a.Camera.FocalLength = deref(focal)
	a.Camera.Location = deref(location)
	if iso != nil {
		a.Camera.ISO = *iso
	}

	return a, nil
}

// nullStr возвращает nil для пустой строки.
func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullInt возвращает nil для нулевого значения.
func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
