package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BillingSweep promotes completed projects that have a customer acceptance
// on file but were never marked ready for billing. Idempotent; safe to run
// on any schedule.
type BillingSweep struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewBillingSweep constructs the handler.
func NewBillingSweep(pool *pgxpool.Pool, logger *slog.Logger) *BillingSweep {
	return &BillingSweep{pool: pool, logger: logger}
}

// Handle runs one sweep.
func (s *BillingSweep) Handle(ctx context.Context, t *asynq.Task) error {
	tag, err := s.pool.Exec(ctx, `UPDATE projects SET billing_status='Pending', updated_at=NOW()
WHERE status='Completed'
  AND (billing_status IS NULL OR billing_status='Not Ready')
  AND EXISTS (SELECT 1 FROM acceptance_forms f WHERE f.project_id = projects.id)`)
	if err != nil {
		return err
	}
	if n := tag.RowsAffected(); n > 0 {
		s.logger.Info("billing sweep promoted projects", "count", n)
	}
	return nil
}
