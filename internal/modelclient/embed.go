package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MrWong99/screeningd/internal/retry"
)

// EmbedClient talks to a single OpenAI-compatible /v1/embeddings
// endpoint.
type EmbedClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	retries    int
}

// NewEmbedClient constructs an EmbedClient against baseURL using model
// for every embedding request.
func NewEmbedClient(baseURL, model string, timeout time.Duration, retries int) *EmbedClient {
	return &EmbedClient{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("modelclient: marshal embedding request: %w", err)
	}

	var result embeddingResponse
	err = retry.Do(ctx, c.retries+1, 200*time.Millisecond, func(attempt int) error {
		return c.post(ctx, reqBody, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("modelclient: embedding request: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("modelclient: embedding response had no data")
	}
	return result.Data[0].Embedding, nil
}

func (c *EmbedClient) post(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
