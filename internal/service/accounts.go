// accounts.go — сервис учётных записей: вход, смена секретной фразы,
// регистрация тенантов и настройки.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/repository"
)

// AccountService управляет учётными записями тенантов.
type AccountService struct {
	tenants repository.TenantRepository
	audit   *AuditService
	// loginLimiter ограничивает попытки входа по адресу источника.
	loginLimiter *auth.RateLimiter
	logger       *slog.Logger
}

// NewAccountService создаёт сервис учётных записей.
func NewAccountService(tenants repository.TenantRepository, audit *AuditService, loginLimiter *auth.RateLimiter, logger *slog.Logger) *AccountService {
	return &AccountService{
		tenants:      tenants,
		audit:        audit,
		loginLimiter: loginLimiter,
		logger:       logger.With(slog.String("component", "account_service")),
	}
}

// Authenticate проверяет handle и секретную фразу.
//
// Любой отказ (неизвестный handle, неверная фраза) возвращает одну и ту же
// ошибку ErrInvalidCredentials, чтобы не раскрывать существование учётной
// записи. При превышении лимита попыток с одного адреса отклоняются даже
// верные данные. Успешный вход сбрасывает счётчик адреса.
func (s *AccountService) Authenticate(ctx context.Context, handle, secret, sourceAddr string) (*model.Tenant, error) {
	if err := s.loginLimiter.Allow(sourceAddr); err != nil {
		s.logger.Warn("превышен лимит попыток входа",
			slog.String("source_addr", sourceAddr))
		return nil, ErrThrottled
	}

	tenant, err := s.tenants.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Холостое сравнение выравнивает время ответа с путём
			// неверной фразы: существование handle не определяется
			// по задержке.
			auth.BurnSecretPhrase(secret)
			s.recordLoginFailed(ctx, handle, sourceAddr)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("ошибка поиска тенанта: %w", err)
	}

	if !auth.VerifySecretPhrase(secret, tenant.SecretHash) {
		s.recordLoginFailed(ctx, handle, sourceAddr)
		return nil, ErrInvalidCredentials
	}

	s.loginLimiter.Reset(sourceAddr)
	s.audit.Record(ctx, &tenant.ID, model.ActionLogin, "tenant", &tenant.ID, sourceAddr, nil)

	return tenant, nil
}

func (s *AccountService) recordLoginFailed(ctx context.Context, handle, sourceAddr string) {
	// Актор неизвестен: вход не состоялся.
	s.audit.Record(ctx, nil, model.ActionLoginFailed, "tenant", nil, sourceAddr,
		map[string]any{"handle": handle})
}

// RecordLogout пишет событие выхода в журнал аудита.
func (s *AccountService) RecordLogout(ctx context.Context, tenantID uuid.UUID, sourceAddr string) {
	s.audit.Record(ctx, &tenantID, model.ActionLogout, "tenant", &tenantID, sourceAddr, nil)
}

// ChangeSecret меняет секретную фразу тенанта.
// Требует подтверждения текущей фразой и проверяет политику сложности.
func (s *AccountService) ChangeSecret(ctx context.Context, tenantID uuid.UUID, current, next, sourceAddr string) error {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка поиска тенанта: %w", err)
	}

	if !auth.VerifySecretPhrase(current, tenant.SecretHash) {
		return ErrInvalidCredentials
	}

	if err := auth.ValidateSecretPhrase(next); err != nil {
		return err
	}

	hash, err := auth.HashSecretPhrase(next)
	if err != nil {
		return fmt.Errorf("ошибка хеширования секретной фразы: %w", err)
	}

	if err := s.tenants.UpdateSecretHash(ctx, tenantID, hash); err != nil {
		return fmt.Errorf("ошибка обновления секретной фразы: %w", err)
	}

	s.audit.Record(ctx, &tenantID, model.ActionSecretChanged, "tenant", &tenantID, sourceAddr, nil)

	return nil
}

// RegisterParams — параметры регистрации нового тенанта.
type RegisterParams struct {
	Handle      string
	DisplayName string
	Secret      string
	// Subdomain — метка маршрутизации. Пустая строка — без поддомена.
	Subdomain string
	Role      model.Role
	AIStyle   model.AIStyle
}

// Register создаёт нового тенанта. Вызывается только администратором,
// проверка роли выполняется на уровне обработчика.
func (s *AccountService) Register(ctx context.Context, actorID uuid.UUID, p RegisterParams, sourceAddr string) (*model.Tenant, error) {
	if err := model.ValidateHandle(p.Handle); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	displayName, err := model.ValidateDisplayName(p.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := auth.ValidateSecretPhrase(p.Secret); err != nil {
		return nil, err
	}

	sub := model.UnassignedSubdomain()
	if p.Subdomain != "" {
		var err error
		sub, err = model.AssignedSubdomain(p.Subdomain)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err)
		}
	}

	role := p.Role
	if role == "" {
		role = model.RoleTenant
	}
	style := p.AIStyle
	if style == "" {
		style = model.AIStyleBalanced
	}
	if !model.ValidAIStyle(style) {
		return nil, fmt.Errorf("%w: недопустимый стиль описаний", ErrValidation)
	}

	hash, err := auth.HashSecretPhrase(p.Secret)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования секретной фразы: %w", err)
	}

	tenant := &model.Tenant{
		ID:          uuid.New(),
		Handle:      p.Handle,
		Subdomain:   sub,
		DisplayName: displayName,
		SecretHash:  hash,
		Role:        role,
		AIStyle:     style,
		ShareEXIF:   false,
	}

	if err := s.tenants.Create(ctx, tenant); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("ошибка создания тенанта: %w", err)
	}

	s.audit.Record(ctx, &actorID, model.ActionTenantRegister, "tenant", &tenant.ID, sourceAddr,
		map[string]any{"handle": tenant.Handle})

	s.logger.Info("зарегистрирован новый тенант",
		slog.String("handle", tenant.Handle),
		slog.String("id", tenant.ID.String()))

	return tenant, nil
}

// EnsureBootstrapAdmin создаёт начального администратора, если тенант
// с таким handle ещё не существует. Вызывается один раз при старте
// сервиса; повторные запуски с тем же handle — no-op.
func (s *AccountService) EnsureBootstrapAdmin(ctx context.Context, handle, secret string) error {
	_, err := s.tenants.GetByHandle(ctx, handle)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("ошибка проверки администратора: %w", err)
	}

	if err := model.ValidateHandle(handle); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := auth.ValidateSecretPhrase(secret); err != nil {
		return err
	}

	hash, err := auth.HashSecretPhrase(secret)
	if err != nil {
		return fmt.Errorf("ошибка хеширования секретной фразы: %w", err)
	}

	tenant := &model.Tenant{
		ID:          uuid.New(),
		Handle:      handle,
		Subdomain:   model.UnassignedSubdomain(),
		DisplayName: handle,
		SecretHash:  hash,
		Role:        model.RoleAdmin,
		AIStyle:     model.AIStyleBalanced,
		ShareEXIF:   false,
	}

	if err := s.tenants.Create(ctx, tenant); err != nil {
		// Параллельный старт второй реплики мог создать администратора
		// между проверкой и вставкой.
		if errors.Is(err, repository.ErrConflict) {
			return nil
		}
		return fmt.Errorf("ошибка создания администратора: %w", err)
	}

	s.audit.Record(ctx, nil, model.ActionTenantRegister, "tenant", &tenant.ID, "bootstrap",
		map[string]any{"handle": tenant.Handle, "bootstrap": true})

	s.logger.Info("создан начальный администратор", slog.String("handle", handle))
	return nil
}

// SettingsParams — изменяемые настройки тенанта.
type SettingsParams struct {
	AIStyle   model.AIStyle
	ShareEXIF bool
}

// UpdateSettings обновляет настройки тенанта.
func (s *AccountService) UpdateSettings(ctx context.Context, tenantID uuid.UUID, p SettingsParams, sourceAddr string) (*model.Tenant, error) {
	if !model.ValidAIStyle(p.AIStyle) {
		return nil, fmt.Errorf("%w: недопустимый стиль описаний", ErrValidation)
	}

	if err := s.tenants.UpdateSettings(ctx, tenantID, p.AIStyle, p.ShareEXIF); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления настроек: %w", err)
	}

	s.audit.Record(ctx, &tenantID, model.ActionSettingsUpdate, "tenant", &tenantID, sourceAddr,
		map[string]any{"ai_style": string(p.AIStyle), "share_exif": p.ShareEXIF})

	return s.tenants.GetByID(ctx, tenantID)
}

// GetTenant возвращает тенанта по UUID.
func (s *AccountService) GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска тенанта: %w", err)
	}
	return tenant, nil
}

// ListTenants возвращает всех тенантов. Только для администратора.
func (s *AccountService) ListTenants(ctx context.Context) ([]*model.Tenant, error) {
	return s.tenants.List(ctx)
}
