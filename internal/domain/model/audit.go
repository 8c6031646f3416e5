package model

import (
	"time"

	"github.com/google/uuid"
)

// Действия журнала аудита. Формат: {область}.{действие}.
const (
	ActionLogin           = "auth.login"
	ActionLoginFailed     = "auth.login_failed"
	ActionLogout          = "auth.logout"
	ActionSecretChanged   = "auth.secret_changed"
	ActionTenantRegister  = "tenant.register"
	ActionAssetIngest     = "asset.ingest"
	ActionAssetUpdate     = "asset.update"
	ActionAssetDelete     = "asset.delete"
	ActionAssetPublish    = "asset.publish"
	ActionAssetUnpublish  = "asset.unpublish"
	ActionAssetFeature    = "asset.feature"
	ActionAssetUnfeature  = "asset.unfeature"
	ActionSettingsUpdate  = "tenant.settings_update"
)

// AuditEntry — запись журнала действий. Журнал append-only:
// записи никогда не изменяются и не удаляются.
type AuditEntry struct {
	// ID — уникальный идентификатор записи
	ID uuid.UUID `json:"id"`

	// ActorID — тенант, выполнивший действие.
	// nil для неуспешных попыток входа с неизвестным handle.
	ActorID *uuid.UUID `json:"actor_id,omitempty"`

	// Action — действие в формате {область}.{действие}
	Action string `json:"action"`

	// TargetType — тип затронутого объекта (asset, tenant)
	TargetType string `json:"target_type,omitempty"`

	// TargetID — идентификатор затронутого объекта
	TargetID *uuid.UUID `json:"target_id,omitempty"`

	// SourceAddr — адрес источника запроса.
	// Берётся из X-Forwarded-For, при отсутствии — из RemoteAddr.
	SourceAddr string `json:"source_addr"`

	// Details — произвольные детали действия
	Details map[string]any `json:"details,omitempty"`

	// CreatedAt — время действия (UTC)
	CreatedAt time.Time `json:"created_at"`
}

// AICost — запись учёта расходов на генерацию описания изображения.
type AICost struct {
	// ID — уникальный идентификатор записи
	ID uuid.UUID `json:"id"`

	// TenantID — тенант, для которого сгенерировано описание
	TenantID uuid.UUID `json:"tenant_id"`

	// AssetID — изображение, для которого сгенерировано описание
	AssetID uuid.UUID `json:"asset_id"`

	// Model — использованная модель
	Model string `json:"model"`

	// InputTokens, OutputTokens — потреблённые токены
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// CreatedAt — время вызова (UTC)
	CreatedAt time.Time `json:"created_at"`
}
