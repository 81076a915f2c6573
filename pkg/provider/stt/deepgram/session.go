package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/lingualert/pkg/provider/stt"
)

var (
	msgKeepAlive   = []byte(`{"type":"KeepAlive"}`)
	msgCloseStream = []byte(`{"type":"CloseStream"}`)

	errClosed = errors.New("deepgram: session is closed")
)

// message is the subset of a Deepgram live response the session reads.
type message struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// decode turns a server message into a transcript. Metadata, speech
// markers, empty interims and anything unparseable report false.
func decode(data []byte) (stt.Transcript, bool) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil || m.Type != "Results" {
		return stt.Transcript{}, false
	}
	if len(m.Channel.Alternatives) == 0 {
		return stt.Transcript{}, false
	}
	best := m.Channel.Alternatives[0]
	if best.Transcript == "" && !m.IsFinal {
		return stt.Transcript{}, false
	}
	return stt.Transcript{Text: best.Transcript, IsFinal: m.IsFinal, Confidence: best.Confidence}, true
}

// closeError classifies the close frame Deepgram ends a failed stream with.
// The reason carries a code such as DATA-0000 (undecodable audio) or
// NET-0001 (no audio received in time).
func closeError(err error) *stt.StreamError {
	var ce websocket.CloseError
	if !errors.As(err, &ce) {
		return stt.NewError(stt.ErrorNetwork, "read", err)
	}
	switch {
	case strings.HasPrefix(ce.Reason, "DATA-"):
		return stt.NewError(stt.ErrorServiceNotAllowed, ce.Reason, err)
	case strings.HasPrefix(ce.Reason, "NET-0001"):
		return stt.NewError(stt.ErrorNoSpeech, ce.Reason, err)
	case ce.Code == websocket.StatusPolicyViolation:
		return stt.NewError(stt.ErrorServiceNotAllowed, ce.Reason, err)
	default:
		return stt.NewError(stt.ErrorNetwork, ce.Reason, err)
	}
}

// session is one live stream. Audio goes out through a single writer
// goroutine and results come back through the reader.
type session struct {
	conn      *websocket.Conn
	events    *stt.Emitter
	audio     chan []byte
	keepAlive time.Duration

	cancel context.CancelFunc
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func startSession(ctx context.Context, conn *websocket.Conn, keepAlive time.Duration) *session {
	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		conn:      conn,
		events:    stt.NewEmitter(64),
		audio:     make(chan []byte, 256),
		keepAlive: keepAlive,
		cancel:    cancel,
		closed:    make(chan struct{}),
	}
	s.events.Start()
	s.wg.Add(2)
	go s.read(ctx)
	go s.write(ctx)
	return s
}

func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.closed:
		return errClosed
	case <-s.events.Done():
		return errClosed
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.closed:
		return errClosed
	}
}

func (s *session) Events() <-chan stt.Event { return s.events.Events() }

// Close asks Deepgram to flush, then tears the connection down.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.closed)
		_ = s.conn.Write(context.Background(), websocket.MessageText, msgCloseStream)
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
		s.cancel()
		s.wg.Wait()
		s.events.End()
	})
	return nil
}

func (s *session) write(ctx context.Context) {
	defer s.wg.Done()

	var idle <-chan time.Time
	var ticker *time.Ticker
	if s.keepAlive > 0 {
		ticker = time.NewTicker(s.keepAlive)
		defer ticker.Stop()
		idle = ticker.C
	}
	for {
		var err error
		select {
		case chunk := <-s.audio:
			err = s.conn.Write(ctx, websocket.MessageBinary, chunk)
			if ticker != nil {
				ticker.Reset(s.keepAlive)
			}
		case <-idle:
			err = s.conn.Write(ctx, websocket.MessageText, msgKeepAlive)
		case <-s.closed:
			return
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *session) read(ctx context.Context) {
	defer s.wg.Done()
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.closed:
				s.events.End()
			default:
				if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
					s.events.End()
				} else {
					s.events.Fail(closeError(err))
				}
			}
			return
		}
		if t, ok := decode(data); ok {
			s.events.Result(t)
		}
	}
}
