package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatspace/internal/database"
	"chatspace/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func signTestToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString(GetJWTSecret())
	require.NoError(t, err)
	return signed
}

func newAuthRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetString("userID")})
	})
	r.GET("/protected", chain...)
	return r
}

func TestParseUserIDRoundTrip(t *testing.T) {
	userID := uuid.NewString()
	token := signTestToken(t, userID)

	parsed, err := ParseUserID(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)

	_, err = ParseUserID("not-a-token")
	assert.Error(t, err)
}

func TestParseUserIDRejectsWrongSecret(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("some_other_secret"))
	require.NoError(t, err)

	_, err = ParseUserID(signed)
	assert.Error(t, err)
}

func TestRequireAuthBearerHeader(t *testing.T) {
	r := newAuthRouter(RequireAuth())
	userID := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, userID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID)
}

func TestRequireAuthCookieTakesPrecedence(t *testing.T) {
	r := newAuthRouter(RequireAuth())
	cookieUser := uuid.NewString()
	headerUser := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: signTestToken(t, cookieUser)})
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, headerUser))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), cookieUser)
	assert.NotContains(t, w.Body.String(), headerUser)
}

func TestRequireAuthRejectsMissingOrMalformed(t *testing.T) {
	r := newAuthRouter(RequireAuth())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	r := newAuthRouter(OptionalAuth())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Garbage tokens fall through to anonymous instead of failing.
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func setupAuthzDB(t *testing.T) (*gorm.DB, *model.User) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	user := &model.User{Name: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	perm := &model.Permission{Code: "send-messages", Name: "Send messages", Group: "messages"}
	require.NoError(t, db.Create(perm).Error)
	role := &model.Role{Name: model.RoleManager, Permissions: []model.Permission{*perm}}
	require.NoError(t, db.Create(role).Error)
	require.NoError(t, db.Exec("INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)", user.ID, role.ID).Error)

	InitAuthzMiddleware(db)
	ClearAuthzCache("")
	t.Cleanup(func() {
		InitAuthzMiddleware(nil)
		ClearAuthzCache("")
	})
	return db, user
}

func TestRequireRole(t *testing.T) {
	_, user := setupAuthzDB(t)
	token := signTestToken(t, user.ID.String())

	r := newAuthRouter(RequireRole(model.RoleManager, model.RoleMaster))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	r = newAuthRouter(RequireRole(model.RoleAdmin))
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermission(t *testing.T) {
	_, user := setupAuthzDB(t)
	token := signTestToken(t, user.ID.String())

	r := newAuthRouter(RequirePermission("send-messages"))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	r = newAuthRouter(RequirePermission("delete-any-room"))
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestClearAuthzCacheInvalidates(t *testing.T) {
	db, user := setupAuthzDB(t)
	token := signTestToken(t, user.ID.String())

	r := newAuthRouter(RequireRole(model.RoleManager))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Revoke the role; the cached entry still grants access until cleared.
	require.NoError(t, db.Exec("DELETE FROM user_roles WHERE user_id = ?", user.ID).Error)
	ClearAuthzCache(user.ID.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
