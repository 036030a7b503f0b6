package audio

import (
	"encoding/binary"
	"io"
)

// Minimal Ogg page writer for a single Opus stream. Granule positions count
// 48 kHz samples per RFC 7845 regardless of the input rate.

const (
	pageFlagContinued = 0x01
	pageFlagBOS       = 0x02
	pageFlagEOS       = 0x04
)

var oggCRCTable = makeOggCRCTable()

func makeOggCRCTable() [256]uint32 {
	var table [256]uint32
	const poly = 0x04c11db7
	for i := range table {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

func oggCRC(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		crc = (crc << 8) ^ oggCRCTable[byte(crc>>24)^b]
	}
	return crc
}

type oggWriter struct {
	w      io.Writer
	serial uint32
	seq    uint32
}

func newOggWriter(w io.Writer, serial uint32) *oggWriter {
	return &oggWriter{w: w, serial: serial}
}

// writePage emits one page carrying a single packet.
func (o *oggWriter) writePage(packet []byte, flags byte, granule uint64) error {
	segments := len(packet)/255 + 1
	header := make([]byte, 27+segments)
	copy(header, "OggS")
	header[5] = flags
	binary.LittleEndian.PutUint64(header[6:], granule)
	binary.LittleEndian.PutUint32(header[14:], o.serial)
	binary.LittleEndian.PutUint32(header[18:], o.seq)
	header[26] = byte(segments)

	remaining := len(packet)
	for i := 0; i < segments; i++ {
		if remaining >= 255 {
			header[27+i] = 255
			remaining -= 255
		} else {
			header[27+i] = byte(remaining)
			remaining = 0
		}
	}

	page := append(header, packet...)
	binary.LittleEndian.PutUint32(page[22:], oggCRC(page))

	o.seq++
	_, err := o.w.Write(page)
	return err
}

// opusHead builds the identification header packet.
func opusHead(channels int, preSkip uint16, inputRate uint32) []byte {
	head := make([]byte, 19)
	copy(head, "OpusHead")
	head[8] = 1
	head[9] = byte(channels)
	binary.LittleEndian.PutUint16(head[10:], preSkip)
	binary.LittleEndian.PutUint32(head[12:], inputRate)
	// output gain 0, mapping family 0
	return head
}

// opusTags builds the comment header packet.
func opusTags(vendor string) []byte {
	tags := make([]byte, 0, 8+4+len(vendor)+4)
	tags = append(tags, "OpusTags"...)
	tags = binary.LittleEndian.AppendUint32(tags, uint32(len(vendor)))
	tags = append(tags, vendor...)
	tags = binary.LittleEndian.AppendUint32(tags, 0)
	return tags
}
