// Package gemini is a focused client for the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"portfolio-chat/internal/domain"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel matches the provider fallback used when no model is
	// configured and discovery is off.
	DefaultModel = "gemini-1.5-flash"

	// requestTimeout bounds every provider call. It is deliberately shorter
	// than the hosting platform's own request timeout so a slow provider
	// surfaces as a reported error instead of a gateway cutoff.
	requestTimeout = 8 * time.Second
)

// Fixed generation parameters; the handler never varies these per request.
const (
	genTemperature     = 0.7
	genTopK            = 40
	genTopP            = 0.95
	genMaxOutputTokens = 1024
)

// generateRequest is the minimal request shape for generateContent.
type generateRequest struct {
	Contents          []wireContent     `json:"contents"`
	SystemInstruction *wireContent      `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// generateResponse is the minimal response shape returned by generateContent.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []wirePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type modelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes one entry of the provider's model listing.
type ModelInfo struct {
	Name                       string   `json:"name"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// Getter reads a configuration parameter by name. Satisfied by
// paramstore.Client.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// MissingKeyError reports that no API key was configured through either the
// environment or the parameter store.
type MissingKeyError struct{}

func (MissingKeyError) Error() string {
	return "gemini: API key not configured; set GEMINI_API_KEY or provide a parameter store key"
}

// MissingCredential marks the error for the handler's credential mapping.
func (MissingKeyError) MissingCredential() bool { return true }

// Client calls the Gemini generateContent and model-listing endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// envKey is the directly configured API key; when empty the key is read
	// from the parameter store on first use.
	envKey    string
	getter    Getter
	paramName string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithParamStore configures a parameter-store fallback for the API key, used
// only when no key was passed to NewClient.
func WithParamStore(getter Getter, paramName string) Option {
	return func(c *Client) {
		c.getter = getter
		c.paramName = strings.TrimSpace(paramName)
	}
}

// NewClient creates a Client. apiKey may be empty when a parameter-store
// fallback is configured; the key is then fetched on the first call and
// reused for the lifetime of the process.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		envKey:     strings.TrimSpace(apiKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		if c.envKey != "" {
			c.apiKey = c.envKey
			return
		}
		if c.getter == nil || c.paramName == "" {
			c.keyErr = MissingKeyError{}
			return
		}
		key, err := c.getter.GetParameter(ctx, c.paramName)
		if err != nil {
			c.keyErr = fmt.Errorf("gemini: fetch key from paramstore: %w", err)
			return
		}
		key = strings.TrimSpace(key)
		if key == "" {
			c.keyErr = MissingKeyError{}
			return
		}
		c.apiKey = key
	})
	return c.apiKey, c.keyErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: requestTimeout}
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + path
}

// GenerateContent sends the sanitized turn sequence and system instruction to
// the given model and returns the reply text. The call is bounded by an 8s
// deadline; on expiry the returned error wraps context.DeadlineExceeded.
func (c *Client) GenerateContent(ctx context.Context, model string, turns []domain.ChatMessage, systemInstruction string) (string, error) {
	if model == "" {
		model = DefaultModel
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(generateRequest{
		Contents:          toWireContents(turns),
		SystemInstruction: &wireContent{Parts: []wirePart{{Text: systemInstruction}}},
		GenerationConfig: &generationConfig{
			Temperature:     genTemperature,
			TopK:            genTopK,
			TopP:            genTopP,
			MaxOutputTokens: genMaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := c.endpoint("/models/" + url.PathEscape(model) + ":generateContent")
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(apiKey), bytes.NewReader(body))
	if reqErr != nil {
		return "", fmt.Errorf("gemini: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")

	// Errors carry the key-less endpoint so the credential never leaks into
	// logs.
	raw, err := c.doJSONRequest(req, endpoint)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}

	var payload generateResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("gemini: decode response: %w", decErr)
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: no candidate text in response")
	}
	text := payload.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini: empty candidate text in response")
	}
	return text, nil
}

// ListModels returns the provider's model listing. Used by the Discovery
// selector.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := c.endpoint("/models")
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?key="+url.QueryEscape(apiKey), nil)
	if reqErr != nil {
		return nil, fmt.Errorf("gemini: create models request: %w", reqErr)
	}

	raw, err := c.doJSONRequest(req, endpoint)
	if err != nil {
		return nil, fmt.Errorf("gemini: list models failed: %w", err)
	}

	var payload modelsResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return nil, fmt.Errorf("gemini: decode models response: %w", decErr)
	}
	return payload.Models, nil
}

func (c *Client) doJSONRequest(req *http.Request, endpoint string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func toWireContents(turns []domain.ChatMessage) []wireContent {
	contents := make([]wireContent, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, wireContent{
			Role:  t.Role,
			Parts: []wirePart{{Text: t.Content}},
		})
	}
	return contents
}
