package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return b
}

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Len(t, req.Messages, 2)

		_, _ = w.Write(completion(`{"answer":"Revisa tu panel.","severity":"HIGH","category":"access"}`))
	}))
	defer srv.Close()

	c := NewClient("key", "gpt-test", srv.URL+"/v1/")
	r, err := c.Ask(context.Background(), "No puedo entrar a mi herramienta")
	require.NoError(t, err)
	assert.Equal(t, "Revisa tu panel.", r.Answer)
	assert.Equal(t, "high", r.Severity)
	assert.Equal(t, "access", r.Category)
}

func TestAskRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(completion("```json\n{\"answer\":\"ok\",\"severity\":\"weird\",\"category\":\"nope\"}\n```"))
	}))
	defer srv.Close()

	c := NewClient("key", "gpt-test", srv.URL)
	c.delay = time.Millisecond
	r, err := c.Ask(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "low", r.Severity)
	assert.Equal(t, "other", r.Category)
}

func TestAskDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("key", "gpt-test", srv.URL)
	_, err := c.Ask(context.Background(), "hola")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAskNotConfigured(t *testing.T) {
	_, err := NewClient("", "m", "http://unused").Ask(context.Background(), "hola")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestParseReplyRejectsEmptyAnswer(t *testing.T) {
	_, err := parseReply(`{"answer":"  "}`)
	assert.Error(t, err)
	_, err = parseReply(`not json`)
	assert.Error(t, err)
}
