package audio

import (
	"log/slog"
	"sync"
	"time"
)

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Duration returns the playback length of pcm in format f.
func (f Format) Duration(pcm []byte) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(pcm) / 2 / f.Channels
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// FormatConverter rewrites captured frames into Target. Browsers capture at
// whatever rate the device runs while the recognizer and the Opus encoder
// each want their own mono rate, so every consumer owns a converter.
// Not safe for concurrent use.
type FormatConverter struct {
	Target Format

	once sync.Once
}

// Convert returns frame in the target format. Frames already in the target
// format are returned as is. A frame that does not hold whole samples for
// every channel is dropped and comes back with nil Data.
func (c *FormatConverter) Convert(frame Frame) Frame {
	out := Frame{SampleRate: c.Target.SampleRate, Channels: c.Target.Channels, Timestamp: frame.Timestamp}
	channels := max(frame.Channels, 1)
	if len(frame.Data)%(2*channels) != 0 {
		slog.Debug("audio: dropping truncated frame", "bytes", len(frame.Data), "channels", frame.Channels)
		return out
	}
	if frame.Format() == c.Target {
		return frame
	}
	c.once.Do(func() {
		slog.Info("audio: converting capture format",
			"from_rate", frame.SampleRate, "from_channels", frame.Channels,
			"to_rate", c.Target.SampleRate, "to_channels", c.Target.Channels)
	})

	samples := downmix(Int16s(frame.Data), channels)
	samples = resample(samples, frame.SampleRate, c.Target.SampleRate)
	out.Data = PCMBytes(spread(samples, c.Target.Channels))
	return out
}

// downmix averages interleaved channels into a single mono track.
func downmix(in []int16, channels int) []int16 {
	if channels == 1 {
		return in
	}
	out := make([]int16, len(in)/channels)
	for i := range out {
		var sum int
		for _, s := range in[i*channels : (i+1)*channels] {
			sum += int(s)
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// resample converts mono samples between rates by linear interpolation.
// Invalid rates leave the samples untouched.
func resample(in []int16, from, to int) []int16 {
	if from <= 0 || to <= 0 || from == to || len(in) == 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]int16, n)
	step := float64(from) / float64(to)
	last := len(in) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(in[j]) + frac*float64(int(in[j+1])-int(in[j])))
	}
	return out
}

// spread copies a mono track into every one of channels.
func spread(mono []int16, channels int) []int16 {
	if channels <= 1 {
		return mono
	}
	out := make([]int16, 0, len(mono)*channels)
	for _, s := range mono {
		for range channels {
			out = append(out, s)
		}
	}
	return out
}

// Int16s decodes little-endian 16-bit PCM into samples.
func Int16s(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return out
}

// PCMBytes encodes samples as little-endian 16-bit PCM.
func PCMBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
