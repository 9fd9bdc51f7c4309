package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/comanda-pos/comanda/internal/auth"
	"github.com/comanda-pos/comanda/internal/shared"
	_ "github.com/comanda-pos/comanda/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager, *auth.TokenIssuer) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	tokens := auth.NewTokenIssuer("jwtsecret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return auth.NewHandler(logger, auth.NewService(repo), sessionManager, csrfManager, tokens), sessionManager, tokens
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func doLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	rr := chiRouter(handler)
	res := httptest.NewRecorder()
	rr.ServeHTTP(res, req.WithContext(ctx))
	require.NoError(t, sm.Commit(ctx, res, sess))
	return res, sess
}

func TestLoginIssuesSessionAndToken(t *testing.T) {
	user := &auth.User{ID: 4, Username: "cocina1", Name: "Cocina", PasswordHash: hashed(t, "secreto"), Role: shared.RoleKitchen, IsActive: true}
	handler, sm, tokens := newAuthHandler(t, &stubRepo{user: user})

	res, sess := doLogin(t, handler, sm, `{"username":"cocina1","password":"secreto"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		User      shared.Actor `json:"user"`
		CSRFToken string       `json:"csrf_token"`
		Token     string       `json:"token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, shared.RoleKitchen, body.User.Role)
	assert.NotEmpty(t, body.CSRFToken)

	actor, ok := sess.Actor()
	require.True(t, ok)
	assert.Equal(t, int64(4), actor.UserID)

	parsed, err := tokens.ParseToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, actor, parsed)
}

func TestLoginInvalidCredentials(t *testing.T) {
	user := &auth.User{ID: 1, Username: "admin", PasswordHash: hashed(t, "correctpass"), Role: shared.RoleAdmin, IsActive: true}
	handler, sm, _ := newAuthHandler(t, &stubRepo{user: user})

	res, sess := doLogin(t, handler, sm, `{"username":"admin","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	_, ok := sess.Actor()
	assert.False(t, ok)
}

func TestLoginInactiveUserRejected(t *testing.T) {
	user := &auth.User{ID: 1, Username: "admin", PasswordHash: hashed(t, "pw"), Role: shared.RoleAdmin, IsActive: false}
	handler, sm, _ := newAuthHandler(t, &stubRepo{user: user})

	res, _ := doLogin(t, handler, sm, `{"username":"admin","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidatesBody(t *testing.T) {
	handler, sm, _ := newAuthHandler(t, &stubRepo{})
	res, _ := doLogin(t, handler, sm, `{"username":""}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestMeRequiresActor(t *testing.T) {
	user := &auth.User{ID: 2, Username: "mesero1", Name: "Mesero", Role: shared.RoleWaiter, IsActive: true}
	handler, _, _ := newAuthHandler(t, &stubRepo{user: user})
	router := chiRouter(handler)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), user.Actor()))
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"mesero"`)
}
