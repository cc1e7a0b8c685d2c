// Package ollama talks to a local Ollama daemon for text generation and
// embeddings.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

type Provider struct {
	url        string
	model      string
	embedModel string
	client     *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewFromEnv builds an Ollama provider from OLLAMA_URL, OLLAMA_MODEL and
// OLLAMA_EMBED_MODEL, falling back to defaults.
func NewFromEnv() *Provider {
	return &Provider{
		url:        envOrDefault("OLLAMA_URL", "http://ollama:11434"),
		model:      envOrDefault("OLLAMA_MODEL", "llama3"),
		embedModel: envOrDefault("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		client:     &http.Client{Timeout: 150 * time.Second},
	}
}

// Generate implements the upstream model contract.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}
	var out generateResponse
	if err := p.post(ctx, "/api/generate", &generateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: false,
	}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Embed returns a unit-length embedding vector for the text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}
	var out embedResponse
	if err := p.post(ctx, "/api/embeddings", &embedRequest{
		Model:  p.embedModel,
		Prompt: text,
	}, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding from model %s", p.embedModel)
	}

	vec := make([]float32, len(out.Embedding))
	var norm float64
	for i, v := range out.Embedding {
		vec[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
