// Package googlespeech provides a Google Cloud Speech-to-Text streaming
// provider over gRPC. It implements the stt.Provider interface.
//
// Credentials follow the usual Google client conventions: pass
// option.WithCredentialsFile or rely on GOOGLE_APPLICATION_CREDENTIALS.
package googlespeech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/MrWong99/lingualert/pkg/provider/stt"
)

const defaultSampleRate = 16000

// recognizeStream is the subset of speechpb.Speech_StreamingRecognizeClient
// the session uses.
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

type openFunc func(ctx context.Context) (recognizeStream, error)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel selects a recognition model (e.g. "latest_long").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithClientOptions passes options to speech.NewClient.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(p *Provider) {
		p.clientOpts = append(p.clientOpts, opts...)
	}
}

// Provider implements stt.Provider backed by Google Cloud Speech.
type Provider struct {
	model      string
	clientOpts []option.ClientOption
	client     *speech.Client
	open       openFunc
}

// New creates a Provider and dials the Speech API.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	p := &Provider{}
	for _, o := range opts {
		o(p)
	}
	c, err := speech.NewClient(ctx, p.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("googlespeech: new client: %w", err)
	}
	p.client = c
	p.open = func(ctx context.Context) (recognizeStream, error) {
		return c.StreamingRecognize(ctx)
	}
	return p, nil
}

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// StartStream opens a streaming recognition call and sends the config
// message.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := p.open(sctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("googlespeech: open: %w", classify(err, cfg.Language))
	}

	sr := cfg.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}
	channels := cfg.Channels
	if channels == 0 {
		channels = 1
	}
	rc := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            int32(sr),
		AudioChannelCount:          int32(channels),
		LanguageCode:               cfg.Language,
		EnableAutomaticPunctuation: true,
		Model:                      p.model,
	}
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         rc,
				InterimResults: cfg.Interim,
			},
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("googlespeech: send config: %w", classify(err, cfg.Language))
	}

	s := &session{
		stream: stream,
		lang:   cfg.Language,
		events: stt.NewEmitter(64),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	s.events.Start()
	go s.recvLoop()
	return s, nil
}

// ---- session ----

type session struct {
	stream recognizeStream
	lang   string
	events *stt.Emitter
	cancel context.CancelFunc

	sendMu sync.Mutex
	done   chan struct{}
	once   sync.Once
}

var errClosed = errors.New("googlespeech: session is closed")

func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errClosed
	case <-s.events.Done():
		return errClosed
	default:
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	})
}

func (s *session) Events() <-chan stt.Event { return s.events.Events() }

// Close half-closes the stream so the server flushes its last result, then
// waits for the receive loop to finish.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.sendMu.Lock()
		_ = s.stream.CloseSend()
		s.sendMu.Unlock()
		<-s.events.Done()
		s.cancel()
	})
	return nil
}

func (s *session) recvLoop() {
	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			s.events.End()
			return
		}
		if err != nil {
			select {
			case <-s.done:
				s.events.End()
			default:
				s.events.Fail(classify(err, s.lang))
			}
			return
		}
		if st := resp.GetError(); st != nil && st.GetCode() != int32(codes.OK) {
			s.events.Fail(classify(status.ErrorProto(st), s.lang))
			return
		}
		for _, r := range resp.GetResults() {
			alts := r.GetAlternatives()
			if len(alts) == 0 {
				continue
			}
			s.events.Result(stt.Transcript{
				Text:       alts[0].GetTranscript(),
				IsFinal:    r.GetIsFinal(),
				Confidence: float64(alts[0].GetConfidence()),
			})
		}
	}
}

// classify maps gRPC status codes onto recognition error kinds.
func classify(err error, lang string) error {
	st, ok := status.FromError(err)
	if !ok {
		return stt.NewError(stt.Classify(err), "", err)
	}
	msg := st.Message()
	switch st.Code() {
	case codes.InvalidArgument:
		if strings.Contains(strings.ToLower(msg), "language") {
			return stt.NewError(stt.ErrorLanguageNotSupported, lang, err)
		}
		return stt.NewError(stt.ErrorOther, msg, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return stt.NewError(stt.ErrorServiceNotAllowed, msg, err)
	case codes.OutOfRange:
		// Audio timeout: the stream went too long without speech.
		return stt.NewError(stt.ErrorNoSpeech, msg, err)
	case codes.Canceled:
		return stt.NewError(stt.ErrorAborted, msg, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return stt.NewError(stt.ErrorNetwork, msg, err)
	default:
		return stt.NewError(stt.ErrorOther, msg, err)
	}
}

var _ stt.Provider = (*Provider)(nil)
