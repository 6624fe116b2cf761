package probe

import (
	"encoding/binary"
	"errors"
)

// Magic prefixes every probe datagram.
const Magic = "UKP1"

// HeaderSize is the encoded size of magic, sequence and send time.
const HeaderSize = 12

var errShortBuffer = errors.New("probe: buffer shorter than header")

// Encode writes the probe header into the start of buf. Bytes past the
// header are left as they are and travel as padding.
func Encode(buf []byte, seq, sentMs uint32) error {
	if len(buf) < HeaderSize {
		return errShortBuffer
	}
	copy(buf, Magic)
	binary.BigEndian.PutUint32(buf[4:8], seq)
	binary.BigEndian.PutUint32(buf[8:12], sentMs)
	return nil
}

// Decode reads a probe header. It reports false for datagrams that are too
// short or carry the wrong magic.
func Decode(buf []byte) (seq, sentMs uint32, ok bool) {
	if len(buf) < HeaderSize || string(buf[:4]) != Magic {
		return 0, 0, false
	}
	return binary.BigEndian.Uint32(buf[4:8]), binary.BigEndian.Uint32(buf[8:12]), true
}
