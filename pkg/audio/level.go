package audio

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Level metering defaults. The ceiling is the speech band RMS (in 16-bit
// sample units) that reads as full scale; normal speech close to a laptop
// microphone lands around a third of it.
const (
	DefaultLevelCeiling   = 3000.0
	DefaultLevelThreshold = 0.3
	DefaultLevelInterval  = 50 * time.Millisecond
)

// Speech band in Hz. Energy outside it does not count towards the level.
const (
	SpeechBandLow  = 80.0
	SpeechBandHigh = 4000.0
)

// LevelMonitor turns PCM frames into a normalised loudness in [0, 1] and
// flags speech activity.
type LevelMonitor struct {
	// Ceiling is the RMS that maps to 1.0.
	Ceiling float64

	// Threshold is the normalised level above which OnActivity fires.
	Threshold float64

	// Interval is the minimum time between OnLevel calls.
	Interval time.Duration

	// OnLevel receives the published level. Optional.
	OnLevel func(level float64)

	// OnActivity is called for every frame above Threshold. Optional.
	OnActivity func()

	mu    sync.Mutex
	last  time.Time
	level float64
	now   func() time.Time
}

// NewLevelMonitor returns a monitor with the default tuning.
func NewLevelMonitor(onLevel func(float64), onActivity func()) *LevelMonitor {
	return &LevelMonitor{
		Ceiling:    DefaultLevelCeiling,
		Threshold:  DefaultLevelThreshold,
		Interval:   DefaultLevelInterval,
		OnLevel:    onLevel,
		OnActivity: onActivity,
	}
}

// Process meters one frame and returns its normalised level.
func (m *LevelMonitor) Process(f Frame) float64 {
	level := BandLevel(f, m.Ceiling)

	m.mu.Lock()
	m.level = level
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	t := now()
	publish := m.OnLevel != nil && (m.last.IsZero() || t.Sub(m.last) >= m.Interval)
	if publish {
		m.last = t
	}
	m.mu.Unlock()

	if publish {
		m.OnLevel(level)
	}
	if level > m.Threshold && m.OnActivity != nil {
		m.OnActivity()
	}
	return level
}

// Current returns the most recent level.
func (m *LevelMonitor) Current() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Reset clears the level and the publish throttle.
func (m *LevelMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = 0
	m.last = time.Time{}
}

// BandLevel returns the RMS of the frame's speech band divided by ceiling,
// capped at 1. Channels are averaged first. DC offset, mains hum and hiss
// above SpeechBandHigh read as silence.
func BandLevel(f Frame, ceiling float64) float64 {
	channels := max(f.Channels, 1)
	mono := downmix(Int16s(f.Data), channels)
	n := len(mono)
	if n < 2 || ceiling <= 0 || f.SampleRate <= 0 {
		return 0
	}
	seq := make([]float64, n)
	for i, v := range mono {
		seq[i] = float64(v)
	}
	coeff := fourier.NewFFT(n).Coefficients(nil, seq)

	binHz := float64(f.SampleRate) / float64(n)
	var energy float64
	for k, c := range coeff {
		hz := float64(k) * binHz
		if hz < SpeechBandLow || hz > SpeechBandHigh {
			continue
		}
		p := real(c)*real(c) + imag(c)*imag(c)
		// Every bin but Nyquist stands for a conjugate pair.
		if 2*k != n {
			p *= 2
		}
		energy += p
	}
	return math.Min(math.Sqrt(energy)/float64(n)/ceiling, 1)
}
