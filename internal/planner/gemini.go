package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/observability"
)

var (
	ErrNoAPIKey        = errors.New("AI API key not configured")
	ErrBadRequest      = errors.New("invalid request to AI service")
	ErrAuthFailure     = errors.New("AI API key invalid or quota exceeded")
	ErrUpstreamFailure = errors.New("AI upstream failure")
	ErrTimeout         = errors.New("AI service timed out")
	ErrEmptyResponse   = errors.New("could not parse AI response")
)

// GeminiClient calls the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

// NewGeminiClient creates a generative-model client. An empty apiKey is
// allowed; Generate then fails with ErrNoAPIKey so callers use the rule-based
// fallback. An empty apiURL uses the production endpoint.
func NewGeminiClient(apiKey, apiURL string, timeout time.Duration) *GeminiClient {
	if apiURL == "" {
		apiURL = defaultGeminiURL
	}
	return &GeminiClient{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a credential is present.
func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

type geminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt and returns the model's raw text. Temperature and
// maxTokens are tuning parameters, not contracts.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	var reqBody geminiRequest
	reqBody.Contents = make([]struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	reqBody.Contents[0].Parts = []struct {
		Text string `json:"text"`
	}{{Text: prompt}}
	reqBody.GenerationConfig.Temperature = temperature
	reqBody.GenerationConfig.MaxOutputTokens = maxTokens

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"?key="+c.apiKey, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		observability.ObserveProviderCall(models.ServiceAI, "error", duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		observability.ObserveProviderCall(models.ServiceAI, "success", duration)
	case http.StatusBadRequest:
		observability.ObserveProviderCall(models.ServiceAI, "bad_request", duration)
		return "", ErrBadRequest
	case http.StatusForbidden:
		observability.ObserveProviderCall(models.ServiceAI, "auth_failure", duration)
		return "", ErrAuthFailure
	default:
		observability.ObserveProviderCall(models.ServiceAI, "error", duration)
		return "", fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptyResponse, err)
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return apiResp.Candidates[0].Content.Parts[0].Text, nil
}
