package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogsDDL creates the audit_logs table. The seeder applies it, keeping
// the schema and the recorder's column list in one place.
const AuditLogsDDL = `CREATE TABLE IF NOT EXISTS audit_logs (
	id BIGSERIAL PRIMARY KEY,
	actor_id BIGINT NOT NULL,
	action TEXT NOT NULL,
	entity TEXT NOT NULL,
	ref_id UUID NOT NULL,
	meta JSONB,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// auditColumns is the insert/select column list of audit_logs minus the key.
const auditColumns = "actor_id, action, entity, ref_id, meta, occurred_at"

// AuditLog represents a single workflow transition record.
type AuditLog struct {
	ID      int64
	ActorID int64
	Action  string
	Entity  string
	RefID   uuid.UUID
	Meta    map[string]any
	At      time.Time
}

// AuditLogger writes transition records into audit_logs.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{pool: pool, logger: logger}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" {
		return errors.New("audit log requires action/entity")
	}
	if log.RefID == uuid.Nil {
		return errors.New("audit ref id required")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	if log.At.IsZero() {
		log.At = time.Now()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (`+auditColumns+`)
VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ActorID, log.Action, log.Entity, log.RefID, metaJSON, log.At)
	if err != nil {
		l.logger.Error("record audit log", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns entries for an entity/ref ordered oldest first.
func (l *AuditLogger) List(ctx context.Context, entity string, ref uuid.UUID) ([]AuditLog, error) {
	if l == nil {
		return nil, errors.New("audit logger not initialised")
	}
	rows, err := l.pool.Query(ctx, `SELECT id, `+auditColumns+`
FROM audit_logs WHERE entity=$1 AND ref_id=$2 ORDER BY occurred_at ASC`, entity, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []AuditLog
	for rows.Next() {
		var (
			entry AuditLog
			meta  []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.RefID, &meta, &entry.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, err
			}
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// ProjectRef derives a stable audit reference for a project id.
func ProjectRef(projectID int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte("project:"+strconv.FormatInt(projectID, 10)))
}
