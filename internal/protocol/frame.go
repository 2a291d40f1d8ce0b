package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the safety cap on a single frame body. spec.md §4.1
// leaves this to implementers; 16 MiB matches what a game server's
// stdout/stderr chunking and config payloads will ever need.
const MaxFrameSize = 16 * 1024 * 1024

// ErrFrameTooLarge is returned by ReadFrame when the length prefix exceeds
// MaxFrameSize. The caller terminates the connection.
var ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

// WriteFrame writes body as a single frame: a 4-byte little-endian length
// prefix followed by body itself. A short write is reported as an error;
// the caller terminates the connection on failure, matching spec.md §4.2's
// writer task contract.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r. A clean EOF at the
// start of a frame (no bytes read yet) is reported as io.EOF, which the
// caller's reader task treats as a normal disconnect per spec.md §4.1. Any
// other read failure, including a short read mid-frame, is a protocol
// error reported as-is (wrapped, so errors.Is(err, io.ErrUnexpectedEOF)
// still works for callers that care).
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame length: %w", err)
	}

	length := binary.LittleEndian.Uint32(prefix[:])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return body, nil
}
