// Package mlprovider is the HTTP-backed ML provider used by
// internal/platform/encoders' five factory singletons (spec.md §5
// "Shared resources"). Grounded on the teacher's internal/platform/openai.Client
// (bearer-token HTTP client, JSON request/response, retry-with-jitter
// on 429/5xx), generalized from a single OpenAI-flavored API surface to
// a model-serving endpoint exposing one route per encoder role.
package mlprovider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pierdell/mediaforge-backend/internal/platform/httpx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// Config points Client at a running model-serving backend. A single
// deployment typically fronts CLIP/DINO/VLM/sentence-encoder models
// behind one HTTP service (e.g. a Triton or TorchServe ensemble),
// hence one baseURL for every role.
type Config struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
	Timeout    time.Duration
}

// Client implements every encoders factory interface against the
// configured model-serving endpoint. One Client backs all five
// encoders.Manager singletons; encoders.NewManager's factory funcs each
// close over the same *Client and bind it to one route.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
}

func NewClient(log *logger.Logger, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		log:        log.With("component", "MLProviderClient"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	ImageBase64 string `json:"image_base64,omitempty"`
	Text        string `json:"text,omitempty"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type captionRequest struct {
	ImageBase64 string `json:"image_base64"`
	Prompt      string `json:"prompt"`
}

type captionResponse struct {
	Text string `json:"text"`
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("mlprovider: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(httpx.JitterSleep(time.Duration(attempt) * 200 * time.Millisecond)):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("mlprovider: build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			if httpx.IsRetryableError(err) {
				continue
			}
			return fmt.Errorf("mlprovider: request %s: %w", path, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode >= 300 {
			lastErr = &statusError{code: resp.StatusCode, body: string(body)}
			if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
				continue
			}
			return lastErr
		}
		if respBody == nil {
			return nil
		}
		if err := json.Unmarshal(body, respBody); err != nil {
			return fmt.Errorf("mlprovider: decode response from %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("mlprovider: %s failed after %d attempts: %w", path, c.maxRetries+1, lastErr)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("mlprovider: http %d: %s", e.code, e.body)
}

func (e *statusError) HTTPStatusCode() int { return e.code }

func encodeImage(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}

// EmbedImage implements encoders.ImageEmbedder for the /v1/clip/image route.
func (c *Client) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	var resp embedResponse
	if err := c.post(ctx, "/v1/clip/image", embedRequest{ImageBase64: encodeImage(image)}, &resp); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// EmbedCLIPText implements encoders.CLIPTextEmbedder for the /v1/clip/text route.
func (c *Client) EmbedCLIPText(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := c.post(ctx, "/v1/clip/text", embedRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// dinoClient wraps Client so encoders.NewManager can be given a DINO
// factory distinct from CLIP's, even though both satisfy ImageEmbedder
// against the same underlying *Client.
type dinoClient struct{ c *Client }

func (d dinoClient) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	var resp embedResponse
	if err := d.c.post(ctx, "/v1/dino/image", embedRequest{ImageBase64: encodeImage(image)}, &resp); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// EmbedText implements encoders.TextEmbedder for the /v1/text/embed route
// (the sentence encoder backing the TEXT collection, distinct from
// EmbedCLIPText's joint image/text space).
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := c.post(ctx, "/v1/text/embed", embedRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// Generate implements encoders.Captioner for the /v1/vlm/caption route.
func (c *Client) Generate(ctx context.Context, image []byte, prompt string) (string, error) {
	var resp captionResponse
	if err := c.post(ctx, "/v1/vlm/caption", captionRequest{ImageBase64: encodeImage(image), Prompt: prompt}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// DINO returns a value satisfying encoders.ImageEmbedder against the
// /v1/dino/image route, kept separate from Client.EmbedImage (CLIP's
// route) so one Config can back both singletons.
func (c *Client) DINO() interface{ EmbedImage(context.Context, []byte) ([]float32, error) } {
	return dinoClient{c: c}
}
