package opus

import (
	"encoding/binary"
	"io"
)

// Ogg page header flags.
const (
	pageBOS = 0x02
	pageEOS = 0x04
)

// oggCRC is the CRC-32 used by Ogg: polynomial 0x04c11db7, MSB first, no
// reflection, zero initial value and no final XOR. hash/crc32 only offers
// the reflected form, so the table is built here.
var oggCRC = func() [256]uint32 {
	var t [256]uint32
	for i := range t {
		r := uint32(i) << 24
		for range 8 {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

func oggChecksum(b []byte) uint32 {
	var crc uint32
	for _, v := range b {
		crc = crc<<8 ^ oggCRC[byte(crc>>24)^v]
	}
	return crc
}

// oggWriter writes a single logical Ogg bitstream.
type oggWriter struct {
	w      io.Writer
	serial uint32
	seq    uint32
}

// writePage writes packets as one page. Every packet must end on this page;
// callers keep pages under 255 lacing values.
func (o *oggWriter) writePage(packets [][]byte, granule int64, flags byte) error {
	var lacing []byte
	size := 0
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		lacing = append(lacing, byte(n))
		size += len(p)
	}

	page := make([]byte, 27+len(lacing), 27+len(lacing)+size)
	copy(page, "OggS")
	page[4] = 0
	page[5] = flags
	binary.LittleEndian.PutUint64(page[6:], uint64(granule))
	binary.LittleEndian.PutUint32(page[14:], o.serial)
	binary.LittleEndian.PutUint32(page[18:], o.seq)
	page[26] = byte(len(lacing))
	copy(page[27:], lacing)
	for _, p := range packets {
		page = append(page, p...)
	}
	binary.LittleEndian.PutUint32(page[22:], oggChecksum(page))

	o.seq++
	_, err := o.w.Write(page)
	return err
}

// opusHead builds the identification header (RFC 7845 section 5.1).
func opusHead(channels int, preSkip uint16, inputRate uint32) []byte {
	h := make([]byte, 19)
	copy(h, "OpusHead")
	h[8] = 1
	h[9] = byte(channels)
	binary.LittleEndian.PutUint16(h[10:], preSkip)
	binary.LittleEndian.PutUint32(h[12:], inputRate)
	// Output gain 0, channel mapping family 0.
	return h
}

// opusTags builds the comment header (RFC 7845 section 5.2).
func opusTags(vendor string) []byte {
	h := make([]byte, 8+4+len(vendor)+4)
	copy(h, "OpusTags")
	binary.LittleEndian.PutUint32(h[8:], uint32(len(vendor)))
	copy(h[12:], vendor)
	return h
}
