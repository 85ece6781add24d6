// Package apitest wires the storefront services over an in-memory database
// and a fake Stripe gateway for handler tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gpt-storefront/internal/domain/users"
	"gpt-storefront/internal/entitlement"
	"gpt-storefront/internal/infra/stripe/stripetest"
	"gpt-storefront/internal/ledger"
	"gpt-storefront/internal/ledger/ledgertest"
	"gpt-storefront/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type Env struct {
	Store       *ledger.GormStore
	Gateway     *stripetest.Gateway
	Reconciler  *reconcile.Service
	Entitlement *entitlement.Service
}

func New(t testing.TB) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := ledgertest.NewStore(t)
	gw := stripetest.NewGateway()
	return &Env{
		Store:       store,
		Gateway:     gw,
		Reconciler:  reconcile.NewService(gw, store),
		Entitlement: entitlement.NewService(store),
	}
}

func (e *Env) User(t testing.TB, id, email string) *users.User {
	t.Helper()
	return ledgertest.CreateUser(t, e.Store.DB(), id, email)
}

// AsUser stands in for the auth middleware.
func AsUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

func Do(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func Decode(t testing.TB, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
