// Package inference provides the client for the ML inference collaborator.
// The collaborator runs the pretrained NER, sentiment, and classification
// models; this package only consumes their structured output.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lvonguyen/threatlens/internal/analysis"
)

// Common errors.
var (
	ErrUnavailable = errors.New("inference service unavailable")
	ErrBadResponse = errors.New("inference service returned unusable output")
)

const defaultBaseURL = "http://localhost:8090"

// Config holds inference client settings.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:   defaultBaseURL,
		APIKeyEnv: "INFERENCE_API_KEY",
		Timeout:   10 * time.Second,
	}
}

// Client talks to the inference collaborator over HTTP. It implements
// analysis.Provider.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates an inference client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type entitiesResponse struct {
	Entities []analysis.ExtractedEntity `json:"entities"`
}

type sentimentResponse struct {
	Sentiment string `json:"sentiment"`
}

type classifyResponse struct {
	Classification string  `json:"classification"`
	Score          float64 `json:"score"`
}

type modelsResponse struct {
	Models []string `json:"models"`
}

// Entities runs named-entity recognition on the text.
func (c *Client) Entities(ctx context.Context, text string) ([]analysis.ExtractedEntity, error) {
	var resp entitiesResponse
	if err := c.post(ctx, "/v1/entities", textRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// Sentiment returns the dominant sentiment label for the text.
func (c *Client) Sentiment(ctx context.Context, text string) (string, error) {
	var resp sentimentResponse
	if err := c.post(ctx, "/v1/sentiment", textRequest{Text: text}, &resp); err != nil {
		return "", err
	}
	if resp.Sentiment == "" {
		return "", ErrBadResponse
	}
	return strings.ToLower(resp.Sentiment), nil
}

// Classify returns the collaborator's verdict on the text.
func (c *Client) Classify(ctx context.Context, text string) (analysis.Classification, error) {
	var resp classifyResponse
	if err := c.post(ctx, "/v1/classify", textRequest{Text: text}, &resp); err != nil {
		return "", err
	}

	switch analysis.Classification(resp.Classification) {
	case analysis.ClassificationBenign, analysis.ClassificationSuspicious,
		analysis.ClassificationMalicious, analysis.ClassificationUnknown:
		return analysis.Classification(resp.Classification), nil
	default:
		return "", fmt.Errorf("%w: classification %q", ErrBadResponse, resp.Classification)
	}
}

// ModelsLoaded reports how many models the collaborator advertises,
// 0 when it is unreachable. Used by the health endpoint.
func (c *Client) ModelsLoaded(ctx context.Context) int {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return 0
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0
	}

	var models modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return 0
	}
	return len(models.Models)
}

// HealthCheck verifies connectivity to the collaborator.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return fmt.Errorf("creating health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	fullURL := strings.TrimSuffix(c.config.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}

	if c.config.APIKeyEnv != "" {
		if apiKey := os.Getenv(c.config.APIKeyEnv); apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ThreatLens/1.0")

	return req, nil
}
