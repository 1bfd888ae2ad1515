// Package gemini talks to a Gemini-style text-completion endpoint and wraps
// it with the throttling and bounded-retry behavior the generation pipeline
// depends on.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"git.home.luguber.info/inful/docgen/internal/config"
	"git.home.luguber.info/inful/docgen/internal/errors"
)

// Client is the text-completion collaborator: one prompt in, raw text out.
// Implementations must return classified *errors.DocGenError values so the
// retry layer can distinguish transient from fatal outcomes.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HTTPClient calls the Gemini REST generateContent endpoint.
type HTTPClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewHTTPClient builds a client from configuration. The API key is required;
// its absence is a configuration error surfaced before any call is made.
func NewHTTPClient(cfg config.GeminiConfig) (*HTTPClient, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" || key == "your_api_key_here" {
		return nil, errors.ConfigRequired("gemini.api_key")
	}
	return &HTTPClient{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		model:       cfg.Model,
		apiKey:      key,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout.Std()},
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Generate performs one completion call and classifies the outcome.
func (c *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		Config:   genConfig{Temperature: c.temperature, MaxOutputTokens: c.maxTokens},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, errors.SeverityFatal, "encode request")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, errors.SeverityFatal, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.APINetworkError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", errors.APINetworkError(err)
	}

	if err := classifyStatus(resp.StatusCode, payload); err != nil {
		return "", err
	}

	text := extractText(payload)
	if text == "" {
		return "", errors.APINetworkError(fmt.Errorf("response carried no candidate text"))
	}
	return text, nil
}

// classifyStatus maps HTTP outcomes onto the error taxonomy: 429 is a
// retryable quota signal, credential problems are fatal, server-side errors
// are transient.
func classifyStatus(status int, payload []byte) error {
	if status == http.StatusOK {
		return nil
	}
	apiErr := fmt.Errorf("HTTP %d: %s", status, gjson.GetBytes(payload, "error.message").String())
	switch {
	case status == http.StatusTooManyRequests:
		return errors.QuotaExceeded(apiErr)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.APIAuthError(apiErr)
	case status == http.StatusBadRequest:
		return errors.APIRequestInvalid(apiErr)
	case status >= 500:
		return errors.APINetworkError(apiErr)
	default:
		return errors.Wrap(apiErr, errors.CategoryNetwork, errors.SeverityFatal, "unexpected API response")
	}
}

// extractText concatenates the candidate parts of a generateContent response.
func extractText(payload []byte) string {
	var b strings.Builder
	gjson.GetBytes(payload, "candidates.0.content.parts").ForEach(func(_, p gjson.Result) bool {
		b.WriteString(p.Get("text").String())
		return true
	})
	return b.String()
}
