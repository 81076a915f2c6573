// Package google provides a Google Cloud Translation (v2 REST) backend. A
// single Provider implements both translation.Provider and langid.Provider,
// since the v2 API exposes translate and detect on the same key.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/MrWong99/lingualert/pkg/language"
	"github.com/MrWong99/lingualert/pkg/provider/langid"
	"github.com/MrWong99/lingualert/pkg/provider/translation"
)

const (
	defaultBaseURL = "https://translation.googleapis.com"
	translatePath  = "/language/translate/v2"
	detectPath     = "/language/translate/v2/detect"
	providerName   = "google"
)

// Option is a functional option for configuring the Google Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL. Used by tests and regional
// endpoints.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements translation.Provider and langid.Provider against the
// Google Translation v2 REST API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Google Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("google: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- wire types ----

type translateRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Format string `json:"format"`
	Source string `json:"source,omitempty"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
}

type detectRequest struct {
	Q string `json:"q"`
}

type detectResponse struct {
	Data struct {
		Detections [][]struct {
			Language   string  `json:"language"`
			Confidence float64 `json:"confidence"`
		} `json:"detections"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translate sends req to the translate endpoint. The source field is left
// out when req.Source is empty or "auto" so the API detects it.
func (p *Provider) Translate(ctx context.Context, req translation.Request) (translation.Response, error) {
	body := translateRequest{
		Q:      req.Text,
		Target: req.Target,
		Format: "text",
	}
	if req.Source != "" && req.Source != language.Auto {
		body.Source = req.Source
	}

	var resp translateResponse
	if err := p.post(ctx, translatePath, body, &resp); err != nil {
		return translation.Response{}, err
	}
	if len(resp.Data.Translations) == 0 {
		return translation.Response{}, translation.ErrNoTranslation
	}
	t := resp.Data.Translations[0]
	return translation.Response{
		TranslatedText:         t.TranslatedText,
		DetectedSourceLanguage: t.DetectedSourceLanguage,
	}, nil
}

// Detect sends text to the detect endpoint and returns the first detection
// group as candidates.
func (p *Provider) Detect(ctx context.Context, text string) ([]langid.Candidate, error) {
	var resp detectResponse
	if err := p.post(ctx, detectPath, detectRequest{Q: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.Detections) == 0 {
		return nil, nil
	}
	group := resp.Data.Detections[0]
	out := make([]langid.Candidate, 0, len(group))
	for _, d := range group {
		if d.Language == "" {
			continue
		}
		out = append(out, langid.Candidate{Language: d.Language, Confidence: d.Confidence})
	}
	return out, nil
}

func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("google: marshal request: %w", err)
	}

	u := p.baseURL + path + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("google: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("google: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		return &translation.StatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    e.Error.Message,
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("google: decode response: %w", err)
	}
	return nil
}

var (
	_ translation.Provider = (*Provider)(nil)
	_ langid.Provider      = (*Provider)(nil)
)
