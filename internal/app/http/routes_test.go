package routes

import (
	"net/http"
	"testing"
	"time"

	"gpt-storefront/internal/api/apitest"
	"gpt-storefront/internal/app/http/middleware"
	"gpt-storefront/internal/infra/assistant"
	"gpt-storefront/internal/infra/mail"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret"

func newRouter(t *testing.T) (*gin.Engine, *apitest.Env) {
	t.Helper()
	env := apitest.New(t)
	r := gin.New()
	RegisterRoutes(r, Deps{
		Store:         env.Store,
		Gateway:       env.Gateway,
		Reconciler:    env.Reconciler,
		Entitlement:   env.Entitlement,
		Mailer:        mail.LogMailer{},
		Assistant:     assistant.NewClient("", "", ""),
		JWTSecret:     testSecret,
		AppURL:        "http://localhost:5173",
		WebhookSecret: "whsec_test",
		VerifyAPIKey:  "verify-key",
	})
	return r, env
}

func bearer(t *testing.T, userID, role string) map[string]string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, userID, userID+"@example.com", role, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func TestPublicRoutes(t *testing.T) {
	r, _ := newRouter(t)

	w := apitest.Do(r, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = apitest.Do(r, http.MethodGet, "/products", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Google sign-in is not mounted without configuration.
	w = apitest.Do(r, http.MethodGet, "/auth/google", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionRoutesNeedToken(t *testing.T) {
	r, env := newRouter(t)
	env.User(t, "u1", "u1@example.com")

	for _, path := range []string{"/me", "/payments", "/api/dashboard"} {
		w := apitest.Do(r, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = apitest.Do(r, http.MethodGet, path, nil, bearer(t, "u1", "user"))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := apitest.Do(r, http.MethodPost, "/api/support/chat", map[string]string{"message": "hola"}, bearer(t, "u1", "user"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminRoutesNeedRole(t *testing.T) {
	r, env := newRouter(t)
	env.User(t, "u1", "u1@example.com")

	w := apitest.Do(r, http.MethodGet, "/admin/stats", nil, bearer(t, "u1", "user"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = apitest.Do(r, http.MethodGet, "/admin/stats", nil, bearer(t, "u1", "admin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyNeedsServiceKey(t *testing.T) {
	r, _ := newRouter(t)
	body := map[string]string{"email": "nobody@example.com", "gptName": "generador-sermones"}

	w := apitest.Do(r, http.MethodPost, "/api/gpt-verify", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = apitest.Do(r, http.MethodPost, "/api/gpt-verify", body, map[string]string{middleware.ServiceKeyHeader: "verify-key"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyWithoutConfiguredKeyIsClosed(t *testing.T) {
	env := apitest.New(t)
	env.User(t, "u1", "u1@example.com")
	r := gin.New()
	RegisterRoutes(r, Deps{
		Store:       env.Store,
		Gateway:     env.Gateway,
		Reconciler:  env.Reconciler,
		Entitlement: env.Entitlement,
		Mailer:      mail.LogMailer{},
		Assistant:   assistant.NewClient("", "", ""),
		JWTSecret:   testSecret,
	})
	body := map[string]string{"email": "u1@example.com", "gptName": "generador-sermones"}

	w := apitest.Do(r, http.MethodPost, "/api/gpt-verify", body, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebhookRejectsUnsigned(t *testing.T) {
	r, _ := newRouter(t)
	w := apitest.Do(r, http.MethodPost, "/api/webhooks/stripe", []byte(`{"id":"evt_1"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
