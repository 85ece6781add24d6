package support

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gpt-storefront/internal/infra/assistant"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubAssistant struct {
	reply *assistant.Reply
	err   error
	asked []string
}

func (s *stubAssistant) Ask(ctx context.Context, message string) (*assistant.Reply, error) {
	s.asked = append(s.asked, message)
	return s.reply, s.err
}

func serve(a Assistant, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/chat", NewHandler(a).Chat)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChat(t *testing.T) {
	stub := &stubAssistant{reply: &assistant.Reply{Answer: "Revisa tu panel", Severity: "high", Category: "billing"}}
	w := serve(stub, `{"message":"  me cobraron dos veces  "}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"Revisa tu panel","severity":"high","category":"billing"}`, w.Body.String())
	assert.Equal(t, []string{"me cobraron dos veces"}, stub.asked)
}

func TestChatErrors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, serve(&stubAssistant{}, `{"message":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(&stubAssistant{}, `{"message":"`+strings.Repeat("a", maxMessageRunes+1)+`"}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(&stubAssistant{err: assistant.ErrNotConfigured}, `{"message":"hola"}`).Code)
	assert.Equal(t, http.StatusBadGateway, serve(&stubAssistant{err: errors.New("boom")}, `{"message":"hola"}`).Code)
}
