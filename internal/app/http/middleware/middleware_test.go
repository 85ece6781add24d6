package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("role")})
	})
	r.GET("/admin", AuthMiddleware(testSecret), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tok, err := IssueToken(testSecret, "u1", "u1@example.com", "user", time.Hour)
	require.NoError(t, err)

	w := get(authRouter(), "/me", tok)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "user", body["role"])
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	expired, err := IssueToken(testSecret, "u1", "", "user", -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", "u1", "", "user", time.Hour)
	require.NoError(t, err)
	noUser, err := IssueToken(testSecret, "", "", "user", time.Hour)
	require.NoError(t, err)

	r := authRouter()
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", expired).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", foreign).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", noUser).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "garbage").Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	userTok, err := IssueToken(testSecret, "u1", "", "user", time.Hour)
	require.NoError(t, err)
	adminTok, err := IssueToken(testSecret, "a1", "", "admin", time.Hour)
	require.NoError(t, err)

	r := authRouter()
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", userTok).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", adminTok).Code)
}

func echoRouter() *gin.Engine {
	r := gin.New()
	r.Use(SanitizeAndCleanInputMiddleware())
	r.POST("/echo", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusOK, "application/json", b)
	})
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSanitize_StripsMarkupButKeepsPasswords(t *testing.T) {
	w := post(echoRouter(), "/echo",
		`{"name":"<script>alert(1)</script>Ana","password":"<b>p@ss</b>","nested":{"bio":"<i>hi</i>"},"tags":["<u>x</u>"],"n":3}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, "<b>p@ss</b>", body["password"])
	assert.Equal(t, "hi", body["nested"].(map[string]interface{})["bio"])
	assert.Equal(t, []interface{}{"x"}, body["tags"])
	assert.Equal(t, float64(3), body["n"])
}

func TestSanitize_EmptyAndMalformed(t *testing.T) {
	r := echoRouter()

	w := post(r, "/echo", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, post(r, "/echo", "{nope").Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/echo", `["a"]`).Code)
}

func TestRequireServiceKey(t *testing.T) {
	handler := func(c *gin.Context) { c.Status(http.StatusOK) }

	r := gin.New()
	r.GET("/guarded", RequireServiceKey("k3y", false), handler)
	r.GET("/open", RequireServiceKey("", true), handler)
	r.GET("/unconfigured", RequireServiceKey("", false), handler)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(ServiceKeyHeader, "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(ServiceKeyHeader, "k3y")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusOK, get(r, "/open", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/unconfigured", "").Code)

	// a configured key is still required in development
	r.GET("/dev-guarded", RequireServiceKey("k3y", true), handler)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/dev-guarded", "").Code)
}

func TestRequestLogger_SetsIDAndContextLogger(t *testing.T) {
	var fromCtx *zerolog.Logger
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) {
		fromCtx = zerolog.Ctx(c.Request.Context())
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := get(r, "/ping", "")
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())
	require.NotNil(t, fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
