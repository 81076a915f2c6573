package audio_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/lingualert/pkg/audio"
)

func TestFormatConverter_Convert(t *testing.T) {
	tests := []struct {
		name   string
		target audio.Format
		in     audio.Frame
		want   []int16
	}{
		{
			name:   "stereo averaged to mono",
			target: audio.Format{SampleRate: 16000, Channels: 1},
			in:     audio.Frame{Data: audio.PCMBytes([]int16{100, 200, -100, -200}), SampleRate: 16000, Channels: 2},
			want:   []int16{150, -150},
		},
		{
			name:   "full scale stereo does not overflow",
			target: audio.Format{SampleRate: 16000, Channels: 1},
			in:     audio.Frame{Data: audio.PCMBytes([]int16{32767, 32767, -32768, -32768}), SampleRate: 16000, Channels: 2},
			want:   []int16{32767, -32768},
		},
		{
			name:   "mono spread to stereo",
			target: audio.Format{SampleRate: 48000, Channels: 2},
			in:     audio.Frame{Data: audio.PCMBytes([]int16{7, 8}), SampleRate: 48000, Channels: 1},
			want:   []int16{7, 7, 8, 8},
		},
		{
			name:   "downsample by three",
			target: audio.Format{SampleRate: 16000, Channels: 1},
			in:     audio.Frame{Data: audio.PCMBytes([]int16{0, 10, 20, 30, 40, 50}), SampleRate: 48000, Channels: 1},
			want:   []int16{0, 30},
		},
		{
			name:   "upsample interpolates",
			target: audio.Format{SampleRate: 32000, Channels: 1},
			in:     audio.Frame{Data: audio.PCMBytes([]int16{0, 100}), SampleRate: 16000, Channels: 1},
			want:   []int16{0, 50, 100, 100},
		},
		{
			name:   "browser capture to recognizer",
			target: audio.Format{SampleRate: 16000, Channels: 1},
			in:     audio.Frame{Data: audio.PCMBytes(slices.Repeat([]int16{1200}, 60)), SampleRate: 48000, Channels: 2},
			want:   slices.Repeat([]int16{1200}, 10),
		},
		{
			name:   "invalid source rate keeps samples",
			target: audio.Format{SampleRate: 16000, Channels: 1},
			in:     audio.Frame{Data: audio.PCMBytes([]int16{1, 2, 3}), SampleRate: 0, Channels: 1},
			want:   []int16{1, 2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := audio.FormatConverter{Target: tt.target}
			got := conv.Convert(tt.in)
			if got.Format() != tt.target {
				t.Errorf("format = %+v, want %+v", got.Format(), tt.target)
			}
			if s := audio.Int16s(got.Data); !slices.Equal(s, tt.want) {
				t.Errorf("samples = %v, want %v", s, tt.want)
			}
		})
	}
}

func TestFormatConverter_PassThrough(t *testing.T) {
	conv := audio.FormatConverter{Target: audio.Format{SampleRate: 48000, Channels: 2}}
	frame := audio.Frame{Data: audio.PCMBytes([]int16{100, 200}), SampleRate: 48000, Channels: 2, Timestamp: time.Second}
	got := conv.Convert(frame)
	if &got.Data[0] != &frame.Data[0] {
		t.Error("matching frame was copied")
	}
	if got.Timestamp != time.Second {
		t.Errorf("Timestamp = %v, want 1s", got.Timestamp)
	}
}

func TestFormatConverter_DropsTruncatedFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame audio.Frame
	}{
		{"odd bytes", audio.Frame{Data: []byte{1, 2, 3}, SampleRate: 22050, Channels: 1}},
		{"odd bytes in target format", audio.Frame{Data: []byte{1, 2, 3}, SampleRate: 16000, Channels: 1}},
		{"half a stereo frame", audio.Frame{Data: []byte{1, 2, 3, 4, 5, 6}, SampleRate: 48000, Channels: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := audio.FormatConverter{Target: audio.Format{SampleRate: 16000, Channels: 1}}
			got := conv.Convert(tt.frame)
			if got.Data != nil {
				t.Errorf("Data = %v, want nil", got.Data)
			}
			if got.SampleRate != 16000 || got.Channels != 1 {
				t.Errorf("format = %dHz %dch, want the target format", got.SampleRate, got.Channels)
			}
		})
	}
}

func TestPCMBytes_Int16s(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	if out := audio.Int16s(audio.PCMBytes(in)); !slices.Equal(out, in) {
		t.Errorf("Int16s(PCMBytes(%v)) = %v", in, out)
	}
	if got := audio.Int16s([]byte{0x64, 0x00, 0xFF}); !slices.Equal(got, []int16{100}) {
		t.Errorf("trailing byte decoded: %v", got)
	}
}

func TestFormat_Duration(t *testing.T) {
	tests := []struct {
		format audio.Format
		bytes  int
		want   time.Duration
	}{
		{audio.Format{SampleRate: 48000, Channels: 1}, 4800 * 2, 100 * time.Millisecond},
		{audio.Format{SampleRate: 48000, Channels: 2}, 4800 * 2, 50 * time.Millisecond},
		{audio.Format{SampleRate: 16000, Channels: 1}, 3200, 100 * time.Millisecond},
		{audio.Format{}, 4800, 0},
	}
	for _, tt := range tests {
		if got := tt.format.Duration(make([]byte, tt.bytes)); got != tt.want {
			t.Errorf("%+v.Duration(%d bytes) = %v, want %v", tt.format, tt.bytes, got, tt.want)
		}
	}
}
