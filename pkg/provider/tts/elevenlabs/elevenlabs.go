// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// ElevenLabs REST text-to-speech API. It implements the tts.Provider interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/MrWong99/lingualert/pkg/provider/tts"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_multilingual_v2"
	defaultTimeout = 30 * time.Second
)

// DefaultVoices are the voices offered when none are configured.
var DefaultVoices = []tts.Voice{
	{Key: "rachel", ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
	{Key: "adam", ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam"},
	{Key: "bella", ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella"},
	{Key: "josh", ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh"},
}

// VoiceSettings mirrors the ElevenLabs voice_settings object.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings favour clarity over expressiveness.
var DefaultVoiceSettings = VoiceSettings{
	Stability:       0.75,
	SimilarityBoost: 0.85,
	Style:           0.2,
	UseSpeakerBoost: true,
}

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = u
	}
}

// WithVoiceSettings overrides the voice settings sent with every request.
func WithVoiceSettings(vs VoiceSettings) Option {
	return func(p *Provider) {
		p.settings = vs
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements tts.Provider backed by the ElevenLabs REST API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	settings   VoiceSettings
	httpClient *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, &tts.Error{Code: tts.CodeAPIKeyMissing, Message: "ElevenLabs API key not configured"}
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		settings:   DefaultVoiceSettings,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

type errorBody struct {
	Detail any `json:"detail"`
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text, voiceID string) (tts.Audio, error) {
	if voiceID == "" {
		return tts.Audio{}, &tts.Error{Code: tts.CodeInvalidVoice, Message: "voice ID must not be empty"}
	}

	payload, err := json.Marshal(synthesizeRequest{Text: text, ModelID: p.model, VoiceSettings: p.settings})
	if err != nil {
		return tts.Audio{}, &tts.Error{Code: tts.CodeUnknown, Message: "marshal request", Err: err}
	}

	endpoint := p.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return tts.Audio{}, &tts.Error{Code: tts.CodeUnknown, Message: "create request", Err: err}
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return tts.Audio{}, &tts.Error{Code: tts.CodeTimeout, Message: "speech generation timed out", Err: err}
		}
		return tts.Audio{}, &tts.Error{Code: tts.CodeUnknown, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tts.Audio{}, statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return tts.Audio{}, &tts.Error{Code: tts.CodeTimeout, Message: "speech generation timed out", Err: err}
		}
		return tts.Audio{}, &tts.Error{Code: tts.CodeUnknown, Message: "read audio", Err: err}
	}
	if len(data) == 0 {
		return tts.Audio{}, &tts.Error{Code: tts.CodeEmptyAudio, Message: "received empty audio response"}
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/mpeg"
	}
	return tts.Audio{Data: data, ContentType: ct}, nil
}

// Voices implements tts.Provider.
func (p *Provider) Voices() []tts.Voice {
	out := make([]tts.Voice, len(DefaultVoices))
	copy(out, DefaultVoices)
	return out
}

func statusError(resp *http.Response) *tts.Error {
	var body errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	detail := ""
	if body.Detail != nil {
		detail = fmt.Sprint(body.Detail)
	}

	e := &tts.Error{Code: tts.CodeUnknown, Message: fmt.Sprintf("TTS API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		e.Code, e.Message = tts.CodeInvalidRequest, "Invalid text for speech generation. Please try again."
	case http.StatusUnauthorized:
		e.Code, e.Message = tts.CodeUnauthorized, "TTS API access denied. Please check your API key."
	case http.StatusForbidden:
		e.Code, e.Message = tts.CodeForbidden, "TTS API access forbidden. Please verify your subscription."
	case http.StatusTooManyRequests:
		e.Code, e.Message = tts.CodeRateLimited, "TTS service temporarily unavailable due to high demand. Please try again in a moment."
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Code, e.Message = tts.CodeServerError, "TTS service temporarily unavailable. Please try again."
	default:
		if detail != "" {
			e.Message = detail
		}
	}
	if detail != "" {
		e.Err = errors.New(detail)
	}
	return e
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}

var _ tts.Provider = (*Provider)(nil)
