package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAudit struct{ logs []AuditLog }

func (m *memAudit) Record(_ context.Context, log AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func TestMutationsRunOncePerKey(t *testing.T) {
	_, client := newTestRedis(t)
	audit := &memAudit{}
	m := Mutations{Idempotency: NewIdempotencyStore(client, time.Hour), Audit: audit}
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) (string, error) {
		calls++
		return "r-9", nil
	}
	entry := AuditLog{ActorID: "u-1", Action: "roles.create", Entity: "role"}
	require.NoError(t, m.Run(ctx, "k1", entry, fn))
	assert.ErrorIs(t, m.Run(ctx, "k1", entry, fn), ErrIdempotencyConflict)

	assert.Equal(t, 1, calls)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "r-9", audit.logs[0].EntityID)
	assert.False(t, audit.logs[0].At.IsZero())
}

func TestMutationsReleaseKeyOnFailure(t *testing.T) {
	_, client := newTestRedis(t)
	audit := &memAudit{}
	m := Mutations{Idempotency: NewIdempotencyStore(client, time.Hour), Audit: audit}
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.Run(ctx, "k1", AuditLog{Entity: "user"}, func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, audit.logs)

	require.NoError(t, m.Run(ctx, "k1", AuditLog{Entity: "user", EntityID: "u-2"}, func(context.Context) (string, error) { return "", nil }))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "u-2", audit.logs[0].EntityID)
}
