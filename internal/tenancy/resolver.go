// Пакет tenancy — сопоставление входящего запроса с тенантом
// и проверка прав доступа.
//
// Резолвер работает по принципу fail-closed: запрос без однозначно
// определённого тенанта отклоняется. Тенант с неназначенным
// поддоменом не соответствует ни одному запросу.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// Заголовок, через который доверенный reverse proxy передаёт
// метку поддомена. Имеет приоритет над разбором Host.
const TenantHeaderName = "X-Portfolio-Tenant"

// Ошибки разрешения и авторизации.
var (
	// ErrUnknownTenant — метка не соответствует ни одному тенанту
	ErrUnknownTenant = errors.New("тенант не определён")
	// ErrForbidden — доступ к чужому ресурсу запрещён
	ErrForbidden = errors.New("доступ запрещён")
)

// TenantLookup — доступ к тенантам для резолвера.
type TenantLookup interface {
	// GetBySubdomain возвращает тенанта по назначенному поддомену.
	// ErrNotFound, если поддомен никому не назначен.
	GetBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error)
}

// Resolver сопоставляет контекст маршрутизации запроса с тенантом.
type Resolver struct {
	lookup TenantLookup
}

// NewResolver создаёт резолвер тенантов.
func NewResolver(lookup TenantLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// LabelFromRequest извлекает метку поддомена из запроса.
// Сначала заголовок X-Portfolio-Tenant (устанавливается доверенным
// proxy), затем первая метка Host. Пустая строка — метка не определена.
func LabelFromRequest(r *http.Request) string {
	if label := strings.TrimSpace(r.Header.Get(TenantHeaderName)); label != "" {
		return strings.ToLower(label)
	}

	host := r.Host
	// Отбрасываем порт
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	parts := strings.Split(host, ".")
	// Поддомен есть только при трёх и более метках (anna.example.com)
	if len(parts) < 3 {
		return ""
	}
	return strings.ToLower(parts[0])
}

// Resolve возвращает тенанта по метке поддомена.
// Fail-closed: пустая или зарезервированная метка, неизвестный
// поддомен и тенант с неназначенным поддоменом дают ErrUnknownTenant.
func (rs *Resolver) Resolve(ctx context.Context, label string) (*model.Tenant, error) {
	if label == "" {
		return nil, ErrUnknownTenant
	}
	if model.ReservedHandles[label] {
		return nil, ErrUnknownTenant
	}

	tenant, err := rs.lookup.GetBySubdomain(ctx, label)
	if err != nil {
		return nil, ErrUnknownTenant
	}

	// Сверяем явно через Matches: тенант без назначенного поддомена
	// не должен пройти даже при ошибке в хранилище
	if !tenant.Subdomain.Matches(label) {
		return nil, ErrUnknownTenant
	}

	return tenant, nil
}

// Authorize проверяет право сессии действовать от имени тенанта.
// Администратор проходит всегда; остальные только при совпадении
// собственного идентификатора с целевым.
func Authorize(sess *auth.Session, targetTenant uuid.UUID) error {
	if sess == nil {
		return ErrForbidden
	}
	if sess.Role == model.RoleAdmin {
		return nil
	}
	if sess.TenantID != targetTenant {
		return fmt.Errorf("%w: ресурс принадлежит другому тенанту", ErrForbidden)
	}
	return nil
}

// AuthorizeOwner проверяет право сессии изменять ресурс с указанным
// владельцем. Семантика совпадает с Authorize, имя подчёркивает
// проверку владения при мутациях.
func AuthorizeOwner(sess *auth.Session, ownerID uuid.UUID) error {
	return Authorize(sess, ownerID)
}
