package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/lingualert/internal/events"
	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/internal/recognition"
	"github.com/MrWong99/lingualert/internal/recording"
	"github.com/MrWong99/lingualert/pkg/audio"
	"github.com/MrWong99/lingualert/pkg/langdetect"
	"github.com/MrWong99/lingualert/pkg/translate"
)

const (
	// maxFrameBytes bounds one client frame. Browsers send PCM in chunks of
	// a few kilobytes.
	maxFrameBytes = 1 << 20

	writeTimeout  = 5 * time.Second
	outboundQueue = 64
	pipeBuffer    = 128
)

// Client message types.
const (
	msgStart = "start"
	msgStop  = "stop"
	msgMic   = "mic"
)

// Server event types.
const (
	eventCountdown   = "countdown"
	eventState       = "state"
	eventLevel       = "level"
	eventTranscript  = "transcript"
	eventDetection   = "detection"
	eventTranslation = "translation"
	eventAdvisory    = "advisory"
	eventError       = "error"
	eventResult      = "result"
)

// Microphone errors reported by the browser.
const (
	micPermissionDenied = "permission-denied"
	micNotFound         = "not-found"
)

// clientMessage is a text frame sent by the browser.
type clientMessage struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Error      string `json:"error,omitempty"`
}

// serverEvent is a JSON frame sent to the browser. Only the fields of the
// event's type are set.
type serverEvent struct {
	Type        string               `json:"type"`
	Count       *int                 `json:"count,omitempty"`
	Phase       recording.Phase      `json:"phase,omitempty"`
	Recognition string               `json:"recognition,omitempty"`
	Locale      string               `json:"locale,omitempty"`
	Message     string               `json:"message,omitempty"`
	Level       *float64             `json:"level,omitempty"`
	Text        string               `json:"text,omitempty"`
	Interim     string               `json:"interim,omitempty"`
	Confidence  *float64             `json:"confidence,omitempty"`
	Detection   *langdetect.Enhanced `json:"detection,omitempty"`
	Translation *translate.Result    `json:"translation,omitempty"`
	Result      *recording.Result    `json:"result,omitempty"`
}

// handleRecord upgrades to the recording socket. One socket drives one
// recording session; the browser streams microphone PCM as binary frames
// and controls the session with text frames.
func (a *App) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx, info, release, err := a.sessions.Start(r.Context(), r.RemoteAddr)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Recording is not available right now. Please try again.")
		return
	}
	defer release()
	log := observe.Logger(ctx).With("socket", info.ID)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: a.cfg.Server.AllowedOrigins,
	})
	if err != nil {
		log.Warn("recording socket upgrade failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameBytes)

	sock := &socket{
		ctx:  ctx,
		stop: func() { a.sessions.Stop(info.ID) },
		conn: conn,
		out:  make(chan serverEvent, outboundQueue),
		log:  log,
	}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		sock.writeLoop()
	}()

	pipe := audio.NewPipe(pipeBuffer)
	sess, err := a.newSession(pipe, &socketListener{app: a, sock: sock, log: log})
	if err != nil {
		log.Error("recording session unavailable", "err", err)
		_ = conn.Close(websocket.StatusInternalError, "recording unavailable")
		return
	}
	log.Info("recording socket connected", "remote", info.RemoteAddr)

	defer func() {
		// Closing the pipe first lets a pending microphone open fail fast.
		_ = pipe.Close()
		sess.Close(context.WithoutCancel(ctx))
		sock.stop()
		<-writerDone
		log.Info("recording socket closed")
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					log.Debug("recording socket read ended", "err", err)
				}
			}
			return
		}
		switch typ {
		case websocket.MessageBinary:
			pipe.Write(data)
		case websocket.MessageText:
			a.handleClientMessage(ctx, sess, pipe, sock, data)
		}
	}
}

func (a *App) handleClientMessage(ctx context.Context, sess *recording.Session, pipe *audio.Pipe, sock *socket, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		sock.send(serverEvent{Type: eventError, Message: "Invalid message."})
		return
	}
	switch msg.Type {
	case msgStart:
		if err := sess.BeginCountdown(ctx); err != nil {
			if errors.Is(err, recording.ErrBusy) {
				sock.send(serverEvent{Type: eventError, Message: "A recording is already in progress."})
				return
			}
			sock.send(serverEvent{Type: eventError, Message: "Recording could not be started."})
		}
	case msgStop:
		// Finalizing can take a while; keep reading frames meanwhile.
		go func() {
			if _, err := sess.Stop(ctx); err != nil && !errors.Is(err, recording.ErrNotRecording) {
				sock.log.Warn("recording stop failed", "err", err)
			}
		}()
	case msgMic:
		if msg.Error != "" {
			pipe.Refuse(micError(msg.Error))
			return
		}
		if err := pipe.Ready(audio.Format{SampleRate: msg.SampleRate, Channels: msg.Channels}); err != nil {
			sock.send(serverEvent{Type: eventError, Message: "Unsupported microphone format."})
		}
	default:
		sock.send(serverEvent{Type: eventError, Message: fmt.Sprintf("Unknown message type %q.", msg.Type)})
	}
}

// micError maps a browser microphone error name to an audio error.
func micError(name string) error {
	switch name {
	case micPermissionDenied, "NotAllowedError", "SecurityError":
		return audio.ErrPermissionDenied
	case micNotFound, "NotFoundError", "OverconstrainedError":
		return audio.ErrNoDevice
	default:
		return fmt.Errorf("audio: microphone error %q", name)
	}
}

// socket serializes outbound events onto one connection.
type socket struct {
	ctx  context.Context
	stop func()
	conn *websocket.Conn
	out  chan serverEvent
	log  *slog.Logger
}

// send queues ev, waiting while the queue is full. Events are dropped once
// the socket is closing.
func (s *socket) send(ev serverEvent) {
	select {
	case s.out <- ev:
	case <-s.ctx.Done():
	}
}

// trySend queues ev unless the queue is full.
func (s *socket) trySend(ev serverEvent) {
	select {
	case s.out <- ev:
	default:
	}
}

func (s *socket) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			_ = s.conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-s.out:
			ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			err := wsjson.Write(ctx, s.conn, ev)
			cancel()
			if err != nil {
				if s.ctx.Err() == nil {
					s.log.Debug("recording socket write failed", "type", ev.Type, "err", err)
				}
				s.stop()
				return
			}
		}
	}
}

// socketListener turns session events into socket frames.
type socketListener struct {
	app  *App
	sock *socket
	log  *slog.Logger
}

var _ recording.Listener = (*socketListener)(nil)

func (l *socketListener) OnCountdown(n int) {
	l.sock.send(serverEvent{Type: eventCountdown, Count: &n})
}

func (l *socketListener) OnPhase(phase recording.Phase, message string) {
	l.sock.send(serverEvent{Type: eventState, Phase: phase, Message: message})
}

func (l *socketListener) OnLevel(level float64) {
	l.sock.trySend(serverEvent{Type: eventLevel, Level: &level})
}

func (l *socketListener) OnRecognition(state recognition.State, locale string) {
	l.sock.send(serverEvent{Type: eventState, Recognition: state.String(), Locale: locale})
}

func (l *socketListener) OnTranscript(text, interim string, confidence float64) {
	l.sock.send(serverEvent{Type: eventTranscript, Text: text, Interim: interim, Confidence: &confidence})
}

func (l *socketListener) OnDetection(e langdetect.Enhanced) {
	l.sock.send(serverEvent{Type: eventDetection, Detection: &e})
}

func (l *socketListener) OnTranslation(r translate.Result) {
	l.sock.send(serverEvent{Type: eventTranslation, Translation: &r})
}

func (l *socketListener) OnAdvisory(message string) {
	l.sock.send(serverEvent{Type: eventAdvisory, Message: message})
}

func (l *socketListener) OnError(message string) {
	l.sock.send(serverEvent{Type: eventError, Message: message})
}

// OnResult keeps the recording for a report and announces it downstream
// before the browser can act on it.
func (l *socketListener) OnResult(r *recording.Result) {
	l.app.stash.Put(r)
	l.app.publish(l.sock.ctx, events.NewEvent(events.TypeRecordingFinalized, r.ID, r))
	l.sock.send(serverEvent{Type: eventResult, Result: r})
}
