package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// AICostRepository — учёт расходов на генерацию описаний.
type AICostRepository interface {
	// Record сохраняет запись о потреблённых токенах.
	Record(ctx context.Context, c *model.AICost) error
	// TotalsByTenant возвращает суммарное потребление тенанта.
	TotalsByTenant(ctx context.Context, tenantID uuid.UUID) (inputTokens, outputTokens int, err error)
}

type aiCostRepo struct {
	db DBTX
}

// NewAICostRepository создаёт репозиторий учёта расходов.
func NewAICostRepository(db DBTX) AICostRepository {
	return &aiCostRepo{db: db}
}

func (r *aiCostRepo) Record(ctx context.Context, c *model.AICost) error {
	query := `
		INSERT INTO ai_costs (id, tenant_id, asset_id, model, input_tokens, output_tokens)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.TenantID, c.AssetID, c.Model, c.InputTokens, c.OutputTokens,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи учёта расходов: %w", err)
	}
	return nil
}

func (r *aiCostRepo) TotalsByTenant(ctx context.Context, tenantID uuid.UUID) (int, int, error) {
	var input, output int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM ai_costs
		WHERE tenant_id = $1`,
		tenantID).Scan(&input, &output)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка подсчёта расходов: %w", err)
	}
	return input, output, nil
}
