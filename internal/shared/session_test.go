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

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "comanda_session", time.Hour, false), mr
}

func TestSessionRoundTripWithActor(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Renew(ctx, sess))
	sess.SetActor(Actor{UserID: 7, Username: "ana", Role: RoleWaiter})

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	assert.True(t, mr.Exists("comanda:session:"+sess.ID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	actor, ok := loaded.Actor()
	require.True(t, ok)
	assert.Equal(t, int64(7), actor.UserID)
	assert.Equal(t, RoleWaiter, actor.Role)
}

func TestAnonymousSessionIsNotStored(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	assert.Empty(t, mr.Keys())
	assert.Empty(t, rec.Result().Cookies())
}

func TestDestroyRemovesSession(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, _ := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	sess.Set("k", "v")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	require.True(t, mr.Exists("comanda:session:"+sess.ID))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	assert.False(t, mr.Exists("comanda:session:"+sess.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestCSRFTokenVerification(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	sess, _ := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	csrf := NewCSRFManager("secret")

	token, err := csrf.EnsureToken(sess)
	require.NoError(t, err)
	again, _ := csrf.EnsureToken(sess)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(sess, ""), ErrCSRFTokenMissing)
}

func TestActorFromContextPrefersBearer(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	sess, _ := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	sess.SetActor(Actor{UserID: 1, Role: RoleAdmin})

	ctx := ContextWithSession(context.Background(), sess)
	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, actor.Role)

	ctx = ContextWithActor(ctx, Actor{UserID: 2, Role: RoleKitchen})
	actor, ok = ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, RoleKitchen, actor.Role)

	_, ok = ActorFromContext(context.Background())
	assert.False(t, ok)
}

func TestRolePermissions(t *testing.T) {
	admin := RolePermissions(RoleAdmin)
	assert.Contains(t, admin, PermUsersEdit)
	assert.Contains(t, admin, PermKitchenView)
	assert.Contains(t, RolePermissions(RoleKitchen), PermKitchenView)
	assert.NotContains(t, RolePermissions(RoleWaiter), PermInvoiceDelete)
	assert.Nil(t, RolePermissions(Role("guest")))

	role, ok := ParseRole(" Mesero ")
	assert.True(t, ok)
	assert.Equal(t, RoleWaiter, role)
}
