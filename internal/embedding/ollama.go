package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/ELITR/alignmeet/internal/model"
)

// OllamaConfig configures OllamaEmbedder. Zero values take defaults.
type OllamaConfig struct {
	// BaseURL of the Ollama API (default http://localhost:11434).
	BaseURL string
	// Model name (default nomic-embed-text).
	Model string
	// Timeout per request (default 30s).
	Timeout time.Duration
	// RequestsPerSecond caps the request rate; 0 means unlimited.
	RequestsPerSecond float64
	Breaker           BreakerConfig
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaEmbedder calls a local Ollama server's /api/embed endpoint.
type OllamaEmbedder struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	breaker *breaker
	log     zerolog.Logger
}

// NewOllamaEmbedder builds an embedder from cfg.
func NewOllamaEmbedder(cfg OllamaConfig, log zerolog.Logger) *OllamaEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Breaker.MaxFailures == 0 {
		cfg.Breaker = DefaultBreakerConfig()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	e := &OllamaEmbedder{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With().Str("component", "ollama").Logger(),
	}
	e.breaker = newBreaker("ollama-embed", cfg.Breaker, func(from, to gobreaker.State) {
		e.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("embedder breaker state changed")
	})
	return e
}

func (e *OllamaEmbedder) Model() string { return e.model }

// BreakerState reports "closed", "half-open" or "open".
func (e *OllamaEmbedder) BreakerState() string { return e.breaker.state() }

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (model.Vector, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := e.breaker.execute(ctx, func() (any, error) {
		return e.embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return res.(model.Vector), nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, text string) (model.Vector, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding vector")
	}
	return model.Vector(out.Embeddings[0]), nil
}
