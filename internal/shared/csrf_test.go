package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenIsStableWithinSession(t *testing.T) {
	_, client := newTestRedis(t)
	sm := NewSessionManager(client, "console_session", "secret", time.Hour, false)
	csrf := NewCSRFManager("csrf-secret")
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)
}

func TestCSRFTokenIsBoundToSessionID(t *testing.T) {
	_, client := newTestRedis(t)
	sm := NewSessionManager(client, "console_session", "secret", time.Hour, false)
	csrf := NewCSRFManager("csrf-secret")
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)

	other, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	other.Set(CSRFSessionKey, token)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, other, token), ErrCSRFTokenMismatch)

	reissued, err := csrf.EnsureToken(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, token, reissued)
	assert.NoError(t, csrf.VerifyToken(ctx, other, reissued))

	sess.Regenerate()
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, token), ErrCSRFTokenMissing)
}
