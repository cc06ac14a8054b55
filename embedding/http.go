package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/snapsweep/imaging"
)

// Compile time check to ensure HTTPEmbedder satisfies the Embedder interface.
var _ Embedder = (*HTTPEmbedder)(nil)

type embedRequest struct {
	Model  string   `json:"model"`
	Images []string `json:"images"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HTTPEmbedderOption configures an HTTPEmbedder.
type HTTPEmbedderOption func(*HTTPEmbedder)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) HTTPEmbedderOption {
	return func(e *HTTPEmbedder) {
		e.httpClient = client
	}
}

// WithRateLimiter throttles requests against the service.
// Pass nil to disable throttling.
func WithRateLimiter(limiter *rate.Limiter) HTTPEmbedderOption {
	return func(e *HTTPEmbedder) {
		e.limiter = limiter
	}
}

// HTTPEmbedder calls an Ollama-style embedding service: one POST per
// batch with the raw image bytes base64-encoded.
type HTTPEmbedder struct {
	host       string
	model      string
	dimension  int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPEmbedder creates a client for the embedding service at host
// (e.g. "http://localhost:11434") using the given model name.
// dimension is the model's fixed output dimension and is validated on
// every response.
func NewHTTPEmbedder(host, model string, dimension int, optFns ...HTTPEmbedderOption) *HTTPEmbedder {
	e := &HTTPEmbedder{
		host:      host,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(e)
		}
	}
	return e
}

// Dimension returns the model's fixed output dimension.
func (e *HTTPEmbedder) Dimension() int { return e.dimension }

// Embed sends one batch request and returns index-aligned vectors.
func (e *HTTPEmbedder) Embed(ctx context.Context, images []imaging.Image) ([][]float32, error) {
	if len(images) == 0 {
		return nil, nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqBody := embedRequest{
		Model:  e.model,
		Images: make([]string, len(images)),
	}
	for i, img := range images {
		reqBody.Images[i] = base64.StdEncoding.EncodeToString(img.Data)
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}

	if len(result.Embeddings) != len(images) {
		return nil, &ErrBatchSize{Sent: len(images), Received: len(result.Embeddings)}
	}
	for _, vec := range result.Embeddings {
		if len(vec) != e.dimension {
			return nil, &ErrDimensionMismatch{Expected: e.dimension, Actual: len(vec)}
		}
	}

	return result.Embeddings, nil
}
