package recognition

// State is the lifecycle state of a [Controller].
type State int

const (
	StateIdle State = iota
	StateStarting
	StateListening
	StateEnding
	StateErrorLatched
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateEnding:
		return "ending"
	case StateErrorLatched:
		return "error_latched"
	default:
		return "unknown"
	}
}
