package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func commitAndCookie(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, sm.Commit(context.Background(), rec, req, sess))
	for _, c := range rec.Result().Cookies() {
		if c.Name == sm.CookieName() {
			return c
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func TestSessionRoundTripWithJSONValues(t *testing.T) {
	_, client := newTestRedis(t)
	sm := NewSessionManager(client, "console_session", "secret", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("u-1")
	require.NoError(t, sess.SetJSON("profile", map[string]string{"email": "a@example.com"}))
	cookie := commitAndCookie(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "u-1", loaded.User())
	var profile map[string]string
	found, err := loaded.GetJSON("profile", &profile)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a@example.com", profile["email"])

	found, err = loaded.GetJSON("missing", &profile)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionRegenerateDropsOldRecord(t *testing.T) {
	mr, client := newTestRedis(t)
	sm := NewSessionManager(client, "console_session", "secret", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("k", "v")
	sess.Set(CSRFSessionKey, "old-token")
	cookie := commitAndCookie(t, sm, sess)
	oldID := sess.ID

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, oldID, loaded.ID)
	loaded.Regenerate()
	newCookie := commitAndCookie(t, sm, loaded)

	assert.NotEqual(t, cookie.Value, newCookie.Value)
	assert.Equal(t, sm.CookieValue(loaded.ID), newCookie.Value)
	assert.False(t, mr.Exists("session:"+oldID))
	assert.True(t, mr.Exists("session:"+loaded.ID))
	assert.Equal(t, "v", loaded.Get("k"))
	assert.Empty(t, loaded.Get(CSRFSessionKey))

	exists, err := sm.Exists(ctx, loaded.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSessionIgnoresTamperedCookie(t *testing.T) {
	_, client := newTestRedis(t)
	sm := NewSessionManager(client, "console_session", "secret", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("u-1")
	commitAndCookie(t, sm, sess)

	for _, value := range []string{sess.ID, sess.ID + ".forged", "." + sm.CookieValue(sess.ID)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: value})
		loaded, err := sm.Load(ctx, req)
		require.NoError(t, err)
		assert.NotEqual(t, sess.ID, loaded.ID, value)
		assert.Empty(t, loaded.User(), value)
	}
}

func TestSessionTTLSlidesOnLoad(t *testing.T) {
	mr, client := newTestRedis(t)
	sm := NewSessionManager(client, "console_session", "secret", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	cookie := commitAndCookie(t, sm, sess)

	mr.FastForward(50 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	_, err = sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("session:"+sess.ID))

	mr.FastForward(61 * time.Minute)
	assert.False(t, mr.Exists("session:"+sess.ID))
}

func TestSessionDestroyClearsCookie(t *testing.T) {
	mr, client := newTestRedis(t)
	sm := NewSessionManager(client, "console_session", "secret", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	commitAndCookie(t, sm, sess)
	require.True(t, mr.Exists("session:"+sess.ID))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil), sess))
	assert.False(t, mr.Exists("session:"+sess.ID))
	cleared := rec.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestSessionFlashIsConsumedOnce(t *testing.T) {
	_, client := newTestRedis(t)
	sm := NewSessionManager(client, "console_session", "secret", time.Hour, false)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: FlashSuccess, Message: "Saved"})

	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Saved", flash.Message)
	assert.Nil(t, sess.PopFlash())
}

func TestSessionFlashSurvivesRedirect(t *testing.T) {
	_, client := newTestRedis(t)
	sm := NewSessionManager(client, "console_session", "secret", time.Hour, false)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodPost, "/roles", nil))
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: FlashSuccess, Message: "Role created"})
	cookie := commitAndCookie(t, sm, sess)

	next := httptest.NewRequest(http.MethodGet, "/roles", nil)
	next.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), next)
	require.NoError(t, err)
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Role created", flash.Message)
	commitAndCookie(t, sm, loaded)

	again := httptest.NewRequest(http.MethodGet, "/roles", nil)
	again.AddCookie(cookie)
	reloaded, err := sm.Load(context.Background(), again)
	require.NoError(t, err)
	assert.Nil(t, reloaded.PopFlash())
}
