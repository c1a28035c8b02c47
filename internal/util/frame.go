package util

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Journal record framing: [length (4 bytes BE)][payload][crc32 (4 bytes BE)].
// The CRC covers the payload only and uses the IEEE polynomial.

var (
	// ErrCorruptFrame indicates a truncated or checksum-failing record.
	ErrCorruptFrame = errors.New("corrupt journal frame")

	crc32Table = crc32.MakeTable(crc32.IEEE)
)

// MaxFrameSize bounds a single record; anything larger is treated as
// corruption rather than allocated.
const MaxFrameSize = 16 * 1024 * 1024

// EncodeFrame wraps a payload in the length+CRC framing.
func EncodeFrame(payload []byte) []byte {
	frame := make([]byte, 4+len(payload)+4)
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(payload)))
	copy(frame[4:], payload)
	checksum := crc32.Checksum(payload, crc32Table)
	binary.BigEndian.PutUint32(frame[4+len(payload):], checksum)
	return frame
}

// ReadFrame reads one framed record. It returns io.EOF at a clean end of
// stream and ErrCorruptFrame for a truncated or checksum-failing record.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, ErrCorruptFrame
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, ErrCorruptFrame
	}

	buf := make([]byte, length+4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ErrCorruptFrame
	}

	payload := buf[:length]
	expected := binary.BigEndian.Uint32(buf[length:])
	if crc32.Checksum(payload, crc32Table) != expected {
		return nil, ErrCorruptFrame
	}
	return payload, nil
}
