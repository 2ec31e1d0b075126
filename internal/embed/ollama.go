package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ollamaRequest is the /api/embeddings request body.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaResponse is the /api/embeddings response body.
type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllama returns an Embedder backed by an Ollama server's
// /api/embeddings endpoint (spec.md §6's embed_fn(text, model?)
// protocol, concretized with the one provider the config surface
// names: embeddings.ollama_url).
func NewOllama(baseURL, model string, timeout time.Duration) Embedder {
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	fn := func(ctx context.Context, text string) ([]float32, error) {
		body, err := json.Marshal(ollamaRequest{Model: model, Prompt: text})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ollama embeddings: status %d", resp.StatusCode)
		}

		var out ollamaResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, err
		}
		return out.Embedding, nil
	}

	return New(model, fn)
}
