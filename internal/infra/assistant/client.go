// Package assistant talks to an OpenAI-compatible chat completions API for the
// support chat.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	maxRetries   = 3
	initialDelay = 500 * time.Millisecond
)

var ErrNotConfigured = errors.New("support assistant not configured")

// Severity and category values the model is asked to choose from.
var (
	Severities = []string{"low", "medium", "high"}
	Categories = []string{"billing", "access", "account", "technical", "other"}
)

type Reply struct {
	Answer   string `json:"answer"`
	Severity string `json:"severity"`
	Category string `json:"category"`
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	delay   time.Duration
}

func NewClient(apiKey, model, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		delay:   initialDelay,
	}
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `Eres el asistente de soporte de una tienda de herramientas GPT para pastores y líderes.
Responde en el idioma del usuario, de forma breve y amable.
Devuelve SOLO un objeto JSON con las claves "answer", "severity" (low|medium|high) y "category" (billing|access|account|technical|other).
Nunca inventes datos de pagos ni prometas reembolsos.`

// Ask sends one user message and returns the classified reply.
func (c *Client) Ask(ctx context.Context, message string) (*Reply, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Temperature:    0.2,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.delay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("assistant api error (%d)", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return nil, lastErr
		}

		var out chatResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if len(out.Choices) == 0 {
			return nil, errors.New("empty response")
		}
		return parseReply(out.Choices[0].Message.Content)
	}
	return nil, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// parseReply accepts the model's JSON, with or without a markdown fence, and
// clamps severity and category to the known values.
func parseReply(text string) (*Reply, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var r Reply
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return nil, fmt.Errorf("parse assistant JSON: %w", err)
	}
	if strings.TrimSpace(r.Answer) == "" {
		return nil, errors.New("assistant returned an empty answer")
	}
	r.Severity = oneOf(strings.ToLower(r.Severity), Severities, "low")
	r.Category = oneOf(strings.ToLower(r.Category), Categories, "other")
	return &r, nil
}

func oneOf(v string, allowed []string, fallback string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}
