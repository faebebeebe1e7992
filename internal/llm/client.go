// Package llm adapts the external summarization service. The adapter
// sends one prompt, receives free text back and extracts the structured
// three-field briefing from it. Retry policy, if any, belongs to callers;
// this system makes exactly one attempt per scheduled cycle.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tpotops/threatbrief/pkg/models"
)

// Summarizer produces a structured briefing from an analyst prompt.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (*models.Briefing, error)
}

// Config holds Gemini API settings.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig returns the public Gemini endpoint and the model the
// briefing pipeline was tuned against.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://generativelanguage.googleapis.com",
		Model:   "gemini-2.5-pro",
		Timeout: 60 * time.Second,
	}
}

// Gemini calls Google's generateContent endpoint.
type Gemini struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGemini constructs the Gemini summarizer. The API key is required.
func NewGemini(cfg Config, logger *slog.Logger) (*Gemini, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: API key required")
	}
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	return &Gemini{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// Request/response payloads (Gemini generateContent schema).

type genPart struct {
	Text string `json:"text"`
}

type genContent struct {
	Parts []genPart `json:"parts"`
}

type genRequest struct {
	Contents []genContent `json:"contents"`
}

type genResponse struct {
	Candidates []struct {
		Content genContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Summarize sends the prompt and parses the structured briefing out of
// the reply. Network and service failures wrap ErrSummarizationUnavailable;
// undecodable reply text wraps ErrSummarizationParse.
func (g *Gemini) Summarize(ctx context.Context, prompt string) (*models.Briefing, error) {
	payload, err := json.Marshal(genRequest{
		Contents: []genContent{{Parts: []genPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", models.ErrSummarizationUnavailable, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", models.ErrSummarizationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSummarizationUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrSummarizationUnavailable, resp.StatusCode, truncate(string(body), 300))
	}

	var parsed genResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", models.ErrSummarizationUnavailable, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", models.ErrSummarizationUnavailable, parsed.Error.Status, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty candidates", models.ErrSummarizationUnavailable)
	}

	return ParseBriefing(parsed.Candidates[0].Content.Parts[0].Text)
}

// Disabled is the Summarizer used when no API key is configured. Cycles
// skip at the summarization step and the service stays up in degraded
// mode serving the placeholder analysis.
type Disabled struct{}

func (Disabled) Summarize(ctx context.Context, prompt string) (*models.Briefing, error) {
	return nil, fmt.Errorf("%w: no API key configured", models.ErrSummarizationUnavailable)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
