package stt

// Transcript is a recognition result. Both interim and final results use
// this type.
type Transcript struct {
	// Text is the recognised speech.
	Text string

	// IsFinal reports whether the backend has committed to this result.
	IsFinal bool

	// Confidence is the backend's confidence in [0, 1]. Zero when the
	// backend does not report one.
	Confidence float64
}

// EventKind discriminates Event values.
type EventKind int

const (
	// EventStart is emitted once the backend is ready to receive audio.
	EventStart EventKind = iota

	// EventResult carries an interim or final Transcript.
	EventResult

	// EventError carries a classified *StreamError. EventEnd follows.
	EventError

	// EventEnd is the last event of every session.
	EventEnd
)

// String returns the lower-case name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one item of a session's event stream.
type Event struct {
	Kind EventKind

	// Transcript is set for EventResult.
	Transcript Transcript

	// Err is set for EventError.
	Err *StreamError
}
