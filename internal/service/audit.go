// audit.go — сервис журнала аудита.
//
// Журнал append-only: записи только добавляются, обновления и удаления
// не предусмотрены. Ошибка записи в журнал никогда не проваливает
// основную операцию, она только логируется.
package service

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/goportfolio/internal/domain/model"
	"github.com/bigkaa/goportfolio/internal/repository"
)

// AuditService пишет записи в журнал аудита.
type AuditService struct {
	repo   repository.AuditRepository
	logger *slog.Logger
}

// NewAuditService создает сервис журнала аудита.
func NewAuditService(repo repository.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger.With(slog.String("component", "audit_service")),
	}
}

// Record добавляет запись в журнал. Ошибка записи логируется и не возвращается:
// аудит не должен ломать основную операцию.
func (s *AuditService) Record(ctx context.Context, actorID *uuid.UUID, action, targetType string, targetID *uuid.UUID, sourceAddr string, details map[string]any) {
	entry := &model.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		SourceAddr: sourceAddr,
		Details:    details,
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("не удалось записать событие аудита",
			slog.String("action", action),
			slog.String("error", err.Error()))
	}
}

// ListByActor возвращает записи журнала по актору.
func (s *AuditService) ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*model.AuditEntry, error) {
	return s.repo.ListByActor(ctx, actorID, limit, offset)
}

// SourceAddr извлекает адрес клиента из запроса. Сначала X-Forwarded-For
// (первый адрес в списке), иначе RemoteAddr без порта.
func SourceAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
