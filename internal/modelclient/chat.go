// Package modelclient is a small OpenAI-style HTTP client for the chat
// completion and embeddings endpoints the dialog engine's role-answer
// generation and the embeddings subscribers depend on.
package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrWong99/screeningd/internal/retry"
)

// Message is one entry in a chat completion's conversation history.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// ChatClient talks to a single OpenAI-compatible /v1/chat/completions
// endpoint.
type ChatClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	retries    int
}

// NewChatClient constructs a ChatClient against baseURL using model for
// every completion request. retries is the number of additional
// attempts after the first on any failure (transport, non-2xx status
// or decode error).
func NewChatClient(baseURL, model string, timeout time.Duration, retries int) *ChatClient {
	return &ChatClient{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
	}
}

type chatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete runs a single-turn (non-streaming) chat completion and
// returns the first choice's message content.
func (c *ChatClient) Complete(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	messages := make([]Message, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, history...)

	reqBody, err := json.Marshal(chatCompletionRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("modelclient: marshal chat request: %w", err)
	}

	var result chatCompletionResponse
	err = retry.Do(ctx, c.retries+1, 200*time.Millisecond, func(attempt int) error {
		return c.post(ctx, "/v1/chat/completions", reqBody, &result)
	})
	if err != nil {
		return "", fmt.Errorf("modelclient: chat completion: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("modelclient: chat completion returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *ChatClient) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("client error: status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
