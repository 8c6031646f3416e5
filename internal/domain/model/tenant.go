// Пакет model — доменные модели Portfolio API.
// Tenant — владелец портфолио, Asset — изображение с метаданными,
// AuditEntry — запись журнала действий, AICost — учёт расходов
// на генерацию описаний.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role — роль тенанта в системе.
type Role string

const (
	// RoleAdmin — полный доступ, включая регистрацию новых тенантов
	RoleAdmin Role = "admin"
	// RoleTenant — владелец собственного портфолио
	RoleTenant Role = "tenant"
)

// AIStyle — стиль генерируемых описаний изображений.
type AIStyle string

const (
	AIStyleTechnical   AIStyle = "technical"
	AIStyleArtistic    AIStyle = "artistic"
	AIStyleDocumentary AIStyle = "documentary"
	AIStyleBalanced    AIStyle = "balanced"
)

// ValidAIStyle проверяет, что значение является допустимым стилем описаний.
func ValidAIStyle(s AIStyle) bool {
	switch s {
	case AIStyleTechnical, AIStyleArtistic, AIStyleDocumentary, AIStyleBalanced:
		return true
	}
	return false
}

// ReservedHandles — идентификаторы, запрещённые для регистрации тенантов.
// Совпадают с системными поддоменами и служебными именами.
var ReservedHandles = map[string]bool{
	"admin":  true,
	"root":   true,
	"system": true,
	"api":    true,
	"www":    true,
	"mail":   true,
	"ftp":    true,
	"smtp":   true,
}

// Tenant — владелец портфолио. Handle совпадает с поддоменом,
// по которому доступна публичная галерея.
type Tenant struct {
	// ID — уникальный идентификатор тенанта (UUID v4)
	ID uuid.UUID `json:"id"`

	// Handle — короткий идентификатор для входа.
	// Только строчные латинские буквы, цифры и дефис.
	Handle string `json:"handle"`

	// Subdomain — routing-поддомен публичной галереи.
	// Может быть неназначенным (администраторы без портфолио).
	Subdomain Subdomain `json:"subdomain"`

	// DisplayName — отображаемое имя владельца
	DisplayName string `json:"display_name"`

	// SecretHash — bcrypt-хэш секретной фразы. Не возвращается в API.
	SecretHash string `json:"-"`

	// Role — роль тенанта
	Role Role `json:"role"`

	// AIStyle — стиль генерируемых описаний для изображений тенанта
	AIStyle AIStyle `json:"ai_style"`

	// ShareEXIF — публиковать ли параметры съёмки в публичной галерее
	ShareEXIF bool `json:"share_exif"`

	// CreatedAt — дата регистрации (UTC)
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — дата последнего изменения (UTC)
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin проверяет, что тенант имеет административную роль.
func (t *Tenant) IsAdmin() bool {
	return t.Role == RoleAdmin
}
