package shared

import (
	"context"
	"log/slog"
	"time"
)

// Mutations runs console writes at most once per submission key and audits
// the ones that succeed.
type Mutations struct {
	Idempotency *IdempotencyStore
	Audit       AuditSink
	Logger      *slog.Logger
}

// Run claims key for entry.Entity, calls fn and records entry. The key is
// released when fn fails so the form can be resubmitted. fn may return the id
// of the entity it created to fill entry.EntityID.
func (m Mutations) Run(ctx context.Context, key string, entry AuditLog, fn func(ctx context.Context) (string, error)) error {
	if err := m.Idempotency.CheckAndInsert(ctx, key, entry.Entity); err != nil {
		return err
	}
	id, err := fn(ctx)
	if err != nil {
		if delErr := m.Idempotency.Delete(ctx, key, entry.Entity); delErr != nil {
			m.logger().WarnContext(ctx, "release idempotency key", slog.Any("error", delErr))
		}
		return err
	}
	if id != "" {
		entry.EntityID = id
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if m.Audit != nil {
		if err := m.Audit.Record(ctx, entry); err != nil {
			m.logger().WarnContext(ctx, "audit", slog.String("action", entry.Action), slog.Any("error", err))
		}
	}
	return nil
}

func (m Mutations) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}
