package util

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0x42}, 4096),
	}

	var buf bytes.Buffer
	for _, p := range payloads {
		buf.Write(EncodeFrame(p))
	}

	for _, want := range payloads {
		got, err := ReadFrame(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, append([]byte{}, got...))
	}

	_, err := ReadFrame(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadFrameCorruption(t *testing.T) {
	t.Run("flipped payload byte", func(t *testing.T) {
		frame := EncodeFrame([]byte("payload"))
		frame[5] ^= 0xFF

		_, err := ReadFrame(bytes.NewReader(frame))
		assert.Equal(t, ErrCorruptFrame, err)
	})

	t.Run("truncated record", func(t *testing.T) {
		frame := EncodeFrame([]byte("payload"))

		_, err := ReadFrame(bytes.NewReader(frame[:len(frame)-2]))
		assert.Equal(t, ErrCorruptFrame, err)
	})

	t.Run("truncated header", func(t *testing.T) {
		frame := EncodeFrame([]byte("payload"))

		_, err := ReadFrame(bytes.NewReader(frame[:2]))
		assert.Equal(t, ErrCorruptFrame, err)
	})

	t.Run("absurd length", func(t *testing.T) {
		frame := []byte{0xFF, 0xFF, 0xFF, 0xFF}

		_, err := ReadFrame(bytes.NewReader(frame))
		assert.Equal(t, ErrCorruptFrame, err)
	})
}
