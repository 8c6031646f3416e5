package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// TenantRepository — доступ к таблице tenants.
type TenantRepository interface {
	// Create регистрирует нового тенанта.
	Create(ctx context.Context, t *model.Tenant) error
	// GetByID возвращает тенанта по UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	// GetByHandle возвращает тенанта по handle.
	GetByHandle(ctx context.Context, handle string) (*model.Tenant, error)
	// GetBySubdomain возвращает тенанта по назначенному поддомену.
	GetBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error)
	// UpdateSecretHash заменяет хэш секретной фразы.
	UpdateSecretHash(ctx context.Context, id uuid.UUID, hash string) error
	// UpdateSettings изменяет стиль описаний и публикацию EXIF.
	UpdateSettings(ctx context.Context, id uuid.UUID, aiStyle model.AIStyle, shareEXIF bool) error
	// List возвращает всех тенантов (административная операция).
	List(ctx context.Context) ([]*model.Tenant, error)
}

type tenantRepo struct {
	db DBTX
}

// NewTenantRepository создаёт репозиторий тенантов.
func NewTenantRepository(db DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

// tenantColumns — список колонок для SELECT-запросов.
const tenantColumns = `id, handle, display_name, subdomain, secret_hash,
	role, ai_style, share_exif, created_at, updated_at`

func (r *tenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	query := `
		INSERT INTO tenants (id, handle, display_name, subdomain, secret_hash,
			role, ai_style, share_exif)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	var subdomain *string
	if v, ok := t.Subdomain.Value(); ok {
		subdomain = &v
	}

	err := r.db.QueryRow(ctx, query,
		t.ID, t.Handle, t.DisplayName, subdomain, t.SecretHash,
		t.Role, t.AIStyle, t.ShareEXIF,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: handle или поддомен уже занят", ErrConflict)
		}
		return fmt.Errorf("ошибка создания тенанта: %w", err)
	}
	return nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *tenantRepo) GetByHandle(ctx context.Context, handle string) (*model.Tenant, error) {
	return r.getBy(ctx, "handle = $1", handle)
}

func (r *tenantRepo) GetBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	// Сравнение только с ненулевым значением: NULL-поддомен
	// не должен совпасть ни с чем
	return r.getBy(ctx, "subdomain IS NOT NULL AND subdomain = $1", subdomain)
}

func (r *tenantRepo) getBy(ctx context.Context, cond string, arg any) (*model.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE %s`, tenantColumns, cond)

	t, err := scanTenant(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения тенанта: %w", err)
	}
	return t, nil
}

func (r *tenantRepo) UpdateSecretHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tenants SET secret_hash = $2, updated_at = now() WHERE id = $1`,
		id, hash)
	if err != nil {
		return fmt.Errorf("ошибка смены секрета: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tenantRepo) UpdateSettings(ctx context.Context, id uuid.UUID, aiStyle model.AIStyle, shareEXIF bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tenants SET ai_style = $2, share_exif = $3, updated_at = now() WHERE id = $1`,
		id, aiStyle, shareEXIF)
	if err != nil {
		return fmt.Errorf("ошибка обновления настроек тенанта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tenantRepo) List(ctx context.Context) ([]*model.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants ORDER BY created_at`, tenantColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка тенантов: %w", err)
	}
	defer rows.Close()

	var result []*model.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения тенанта: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// scanTenant читает строку tenants в модель, разворачивая
// NULL-поддомен в неназначенное значение.
func scanTenant(row pgx.Row) (*model.Tenant, error) {
	t := &model.Tenant{}
	var subdomain *string

	err := row.Scan(
		&t.ID, &t.Handle, &t.DisplayName, &subdomain, &t.SecretHash,
		&t.Role, &t.AIStyle, &t.ShareEXIF, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if subdomain != nil {
		sub, err := model.AssignedSubdomain(*subdomain)
		if err != nil {
			return nil, fmt.Errorf("недопустимый поддомен в БД: %w", err)
		}
		t.Subdomain = sub
	} else {
		t.Subdomain = model.UnassignedSubdomain()
	}

	return t, nil
}
