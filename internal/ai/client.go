// Package ai talks to a generateContent-style generative language API.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrDisabled is returned by every call when no API key is configured.
	ErrDisabled = errors.New("ai features disabled")
	// ErrEmptyResponse means the API answered without any candidate text.
	ErrEmptyResponse = errors.New("empty ai response")
)

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives the outcome of every Generate call.
type Observer interface {
	ObserveAI(feature string, err error)
}

// Config holds the API endpoint and credentials.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Part is one piece of a prompt: text or inline binary data.
type Part struct {
	Text     string
	MimeType string
	Data     []byte
}

// TextPart returns a text prompt part.
func TextPart(text string) Part { return Part{Text: text} }

// InlinePart returns a binary prompt part with its MIME type.
func InlinePart(mimeType string, data []byte) Part {
	return Part{MimeType: mimeType, Data: data}
}

// Request is a typed prompt. Feature names the caller for logs and metrics.
// A non-nil Schema asks for a JSON reply matching it.
type Request struct {
	Feature string
	Parts   []Part
	Schema  map[string]any
}

// Client calls the generative API.
type Client struct {
	cfg      Config
	http     HTTPDoer
	log      zerolog.Logger
	observer Observer
}

// NewClient builds a client. An empty API key yields a disabled client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(doer HTTPDoer) *Client {
	c.http = doer
	return c
}

// SetObserver registers a metrics observer.
func (c *Client) SetObserver(o Observer) {
	c.observer = o
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && strings.TrimSpace(c.cfg.APIKey) != ""
}

type wireInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type wirePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *wireInline `json:"inline_data,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	ResponseMimeType string         `json:"response_mime_type,omitempty"`
	ResponseSchema   map[string]any `json:"response_schema,omitempty"`
}

type wireRequest struct {
	Contents         []wireContent         `json:"contents"`
	GenerationConfig *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func encodeRequest(req Request) wireRequest {
	parts := make([]wirePart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Data != nil {
			parts = append(parts, wirePart{InlineData: &wireInline{
				MimeType: p.MimeType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		parts = append(parts, wirePart{Text: p.Text})
	}
	out := wireRequest{Contents: []wireContent{{Role: "user", Parts: parts}}}
	if req.Schema != nil {
		out.GenerationConfig = &wireGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   req.Schema,
		}
	}
	return out
}

// Generate sends the request and returns the concatenated text of the
// first candidate.
func (c *Client) Generate(ctx context.Context, req Request) (text string, err error) {
	defer func() {
		if c.observer != nil {
			c.observer.ObserveAI(req.Feature, err)
		}
	}()
	if !c.Enabled() {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(encodeRequest(req))
	if err != nil {
		return "", fmt.Errorf("encode ai request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Error().Err(err).Str("feature", req.Feature).Msg("ai request failed")
		return "", fmt.Errorf("call ai api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Error().Int("status", resp.StatusCode).Str("feature", req.Feature).Str("body", string(b)).Msg("ai api error")
		return "", fmt.Errorf("ai api: status %d", resp.StatusCode)
	}

	var decoded wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode ai response: %w", err)
	}
	if len(decoded.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	c.log.Debug().Str("feature", req.Feature).Dur("took", time.Since(start)).Msg("ai response")
	return sb.String(), nil
}
