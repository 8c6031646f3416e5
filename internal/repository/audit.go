package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// AuditRepository — запись и чтение журнала действий.
// Журнал append-only: методов обновления и удаления нет.
type AuditRepository interface {
	// Append добавляет запись в журнал.
	Append(ctx context.Context, e *model.AuditEntry) error
	// ListByActor возвращает записи тенанта, новые первыми.
	ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*model.AuditEntry, error)
}

type auditRepo struct {
	db DBTX
}

// NewAuditRepository создаёт репозиторий журнала действий.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, actor_id, action, target_type, target_id, source_addr, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.ActorID, e.Action, nullStr(e.TargetType), e.TargetID, e.SourceAddr, e.Details,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал действий: %w", err)
	}
	return nil
}

func (r *auditRepo) ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, actor_id, action, COALESCE(target_type, ''), target_id, source_addr, details, created_at
		FROM audit_log
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, actorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала действий: %w", err)
	}
	defer rows.Close()

	var result []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetType,
			&e.TargetID, &e.SourceAddr, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения записи журнала: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
