package net

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrame bounds a single frame payload. A frame with every object of a
// large kernel still fits comfortably.
const MaxFrame = 16 << 20

// ReadFrame reads one frame from r.
// Wire format: [4 bytes LE: payload length][payload].
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	n := int(binary.LittleEndian.Uint32(header[:]))
	if n <= 0 || n > MaxFrame {
		return nil, fmt.Errorf("invalid frame length: %d", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", n, err)
	}
	return payload, nil
}

// WriteFrame writes one frame to w.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) == 0 || len(data) > MaxFrame {
		return fmt.Errorf("invalid frame length: %d", len(data))
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(data)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}
