package opus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/lingualert/pkg/audio"
)

type fakeEncoder struct {
	frames int
	sizes  []int
	err    error
}

func (f *fakeEncoder) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.frames++
	f.sizes = append(f.sizes, len(pcm))
	return []byte{0xfc, byte(f.frames), 0x00}, nil
}

type page struct {
	flags   byte
	granule int64
	serial  uint32
	seq     uint32
	packets [][]byte
}

// parsePages splits an Ogg stream and verifies every page checksum.
func parsePages(t *testing.T, b []byte) []page {
	t.Helper()
	var pages []page
	for len(b) > 0 {
		if len(b) < 27 || string(b[:4]) != "OggS" {
			t.Fatalf("page %d: bad capture pattern", len(pages))
		}
		nseg := int(b[26])
		lacing := b[27 : 27+nseg]
		size := 0
		for _, l := range lacing {
			size += int(l)
		}
		total := 27 + nseg + size
		raw := append([]byte(nil), b[:total]...)
		want := binary.LittleEndian.Uint32(raw[22:])
		copy(raw[22:26], []byte{0, 0, 0, 0})
		if got := oggChecksum(raw); got != want {
			t.Errorf("page %d: checksum = %#x, want %#x", len(pages), got, want)
		}

		p := page{
			flags:   b[5],
			granule: int64(binary.LittleEndian.Uint64(b[6:])),
			serial:  binary.LittleEndian.Uint32(b[14:]),
			seq:     binary.LittleEndian.Uint32(b[18:]),
		}
		body := b[27+nseg : total]
		var cur []byte
		for _, l := range lacing {
			cur = append(cur, body[:l]...)
			body = body[l:]
			if l < 255 {
				p.packets = append(p.packets, cur)
				cur = nil
			}
		}
		pages = append(pages, p)
		b = b[total:]
	}
	return pages
}

func mono48k(d time.Duration) audio.Frame {
	n := int(d * SampleRate / time.Second)
	return audio.Frame{Data: make([]byte, n*2), SampleRate: SampleRate, Channels: 1}
}

func TestOggChecksum(t *testing.T) {
	if got := oggChecksum([]byte("123456789")); got != 0x89a1897f {
		t.Errorf("oggChecksum = %#x, want 0x89a1897f", got)
	}
	if got := oggChecksum(nil); got != 0 {
		t.Errorf("oggChecksum(nil) = %#x, want 0", got)
	}
}

func TestEncoder_Pages(t *testing.T) {
	fe := &fakeEncoder{}
	var chunks []Chunk
	enc, err := newEncoder(fe, WithOnChunk(func(c Chunk) { chunks = append(chunks, c) }))
	if err != nil {
		t.Fatal(err)
	}

	// 250 ms: two full pages plus half a frame left over.
	if err := enc.Write(mono48k(250 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	out, err := enc.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	pages := parsePages(t, out)
	if len(pages) != 5 {
		t.Fatalf("pages = %d, want 5", len(pages))
	}

	head := pages[0]
	if head.flags != pageBOS || len(head.packets) != 1 || !bytes.HasPrefix(head.packets[0], []byte("OpusHead")) {
		t.Errorf("first page = %+v, want BOS OpusHead", head)
	}
	if ch := head.packets[0][9]; ch != 1 {
		t.Errorf("channels = %d, want 1", ch)
	}
	if ps := binary.LittleEndian.Uint16(head.packets[0][10:]); ps != preSkip {
		t.Errorf("pre-skip = %d, want %d", ps, preSkip)
	}
	if !bytes.HasPrefix(pages[1].packets[0], []byte("OpusTags")) {
		t.Errorf("second page does not carry OpusTags")
	}

	wantAudio := []struct {
		packets int
		granule int64
		flags   byte
	}{
		{5, preSkip + 4800, 0},
		{5, preSkip + 9600, 0},
		{3, preSkip + 12000, pageEOS},
	}
	for i, w := range wantAudio {
		p := pages[i+2]
		if len(p.packets) != w.packets || p.granule != w.granule || p.flags != w.flags {
			t.Errorf("audio page %d = %d packets, granule %d, flags %#x; want %d, %d, %#x",
				i, len(p.packets), p.granule, p.flags, w.packets, w.granule, w.flags)
		}
	}
	for i, p := range pages {
		if p.seq != uint32(i) {
			t.Errorf("page %d: seq = %d", i, p.seq)
		}
		if p.serial != pages[0].serial {
			t.Errorf("page %d: serial changed", i)
		}
	}

	for i, n := range fe.sizes {
		if n != frameSize {
			t.Errorf("frame %d: encoded %d samples, want %d", i, n, frameSize)
		}
	}
	if len(chunks) != 3 || enc.Chunks() != 3 {
		t.Errorf("chunks = %d (Chunks() = %d), want 3", len(chunks), enc.Chunks())
	}
	if chunks[0].Duration != 100*time.Millisecond || chunks[2].Duration != 60*time.Millisecond {
		t.Errorf("chunk durations = %v, %v", chunks[0].Duration, chunks[2].Duration)
	}
	if d := enc.Duration(); d != 250*time.Millisecond {
		t.Errorf("Duration = %v, want 250ms", d)
	}
}

func TestEncoder_ConvertsCaptureFormat(t *testing.T) {
	fe := &fakeEncoder{}
	enc, err := newEncoder(fe)
	if err != nil {
		t.Fatal(err)
	}
	// 20 ms of 16 kHz stereo becomes exactly one 48 kHz mono frame.
	f := audio.Frame{Data: make([]byte, 320*2*2), SampleRate: 16000, Channels: 2}
	if err := enc.Write(f); err != nil {
		t.Fatal(err)
	}
	if fe.frames != 1 {
		t.Errorf("encoded frames = %d, want 1", fe.frames)
	}
}

func TestEncoder_EmptyRecording(t *testing.T) {
	enc, err := newEncoder(&fakeEncoder{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := enc.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	pages := parsePages(t, out)
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	last := pages[2]
	if last.flags != pageEOS || len(last.packets) != 0 || last.granule != preSkip {
		t.Errorf("last page = %+v, want empty EOS page", last)
	}
	if enc.Chunks() != 0 {
		t.Errorf("Chunks = %d, want 0", enc.Chunks())
	}
}

func TestEncoder_Finalized(t *testing.T) {
	enc, err := newEncoder(&fakeEncoder{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Finalize(); err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Errorf("second Finalize err = %v, want ErrFinalized", err)
	}
	if err := enc.Write(mono48k(20 * time.Millisecond)); !errors.Is(err, ErrFinalized) {
		t.Errorf("Write after Finalize err = %v, want ErrFinalized", err)
	}
}

func TestEncoder_EncodeError(t *testing.T) {
	boom := errors.New("boom")
	enc, err := newEncoder(&fakeEncoder{err: boom})
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.Write(mono48k(40 * time.Millisecond)); !errors.Is(err, boom) {
		t.Errorf("Write err = %v, want boom", err)
	}
}

func TestWithChunkDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{100 * time.Millisecond, 5},
		{250 * time.Millisecond, 12},
		{5 * time.Millisecond, 1},
	}
	for _, tt := range tests {
		enc, err := newEncoder(&fakeEncoder{}, WithChunkDuration(tt.d))
		if err != nil {
			t.Fatal(err)
		}
		if enc.packetsPerPage != tt.want {
			t.Errorf("WithChunkDuration(%v): packetsPerPage = %d, want %d", tt.d, enc.packetsPerPage, tt.want)
		}
	}
}
