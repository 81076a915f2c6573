// Package deepgram streams audio to Deepgram's live transcription API over a
// WebSocket and implements stt.Provider.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/lingualert/pkg/provider/stt"
)

const (
	liveEndpoint      = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultSampleRate = 16000

	// Deepgram drops a stream that has seen no data for ten seconds.
	defaultKeepAlive = 4 * time.Second
)

// Option configures a Provider.
type Option func(*Provider)

// WithModel selects the Deepgram model, e.g. "nova-3" or "nova-2".
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithEndpoint points the provider at another live endpoint.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) { p.rawEndpoint = endpoint }
}

// WithSampleRate sets the rate announced when StreamConfig leaves it zero.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithKeepAlive sets how long a stream may go without audio before a
// KeepAlive message is sent. Zero disables keep-alives.
func WithKeepAlive(d time.Duration) Option {
	return func(p *Provider) { p.keepAlive = d }
}

// Provider opens Deepgram live transcription streams.
type Provider struct {
	apiKey      string
	model       string
	rawEndpoint string
	endpoint    *url.URL
	sampleRate  int
	keepAlive   time.Duration
}

var _ stt.Provider = (*Provider)(nil)

// New returns a Provider authenticating with apiKey.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:      apiKey,
		model:       defaultModel,
		rawEndpoint: liveEndpoint,
		sampleRate:  defaultSampleRate,
		keepAlive:   defaultKeepAlive,
	}
	for _, o := range opts {
		o(p)
	}
	u, err := url.Parse(p.rawEndpoint)
	if err != nil {
		return nil, fmt.Errorf("deepgram: endpoint: %w", err)
	}
	p.endpoint = u
	return p, nil
}

// StartStream dials a live transcription stream for cfg.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	conn, resp, err := websocket.Dial(ctx, p.streamURL(cfg), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Token " + p.apiKey}},
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", dialError(resp, err, cfg.Language))
	}
	// The stream outlives the dial context.
	return startSession(context.WithoutCancel(ctx), conn, p.keepAlive), nil
}

// streamURL returns the endpoint with the query parameters describing cfg.
func (p *Provider) streamURL(cfg stt.StreamConfig) string {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = p.sampleRate
	}
	q := url.Values{
		"model":           {p.model},
		"encoding":        {"linear16"},
		"sample_rate":     {strconv.Itoa(rate)},
		"punctuate":       {"true"},
		"interim_results": {strconv.FormatBool(cfg.Interim)},
	}
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}
	u := *p.endpoint
	u.RawQuery = q.Encode()
	return u.String()
}

// dialError classifies a failed handshake. Deepgram answers 400 to an
// unknown language tag, the only parameter that varies between streams.
func dialError(resp *http.Response, err error, lang string) error {
	if resp == nil {
		return stt.NewError(stt.Classify(err), "", err)
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return stt.NewError(stt.ErrorLanguageNotSupported, lang, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return stt.NewError(stt.ErrorServiceNotAllowed, "deepgram rejected credentials", err)
	default:
		return stt.NewError(stt.ErrorNetwork, "handshake status "+strconv.Itoa(resp.StatusCode), err)
	}
}
