package remote

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// maxFramePayload caps a single frame payload at 64 KB. The protocol
// carries short control messages; a bigger announcement means a corrupt
// stream.
const maxFramePayload = 64 << 10

var (
	// errEmptyFrame reports a zero-length frame.
	errEmptyFrame = errors.New("empty frame")

	// errTruncatedFrame reports a stream that ended mid-frame.
	errTruncatedFrame = errors.New("truncated frame")
)

// framer carries length-prefixed frames over one connection: a 4-byte
// big-endian payload size followed by the payload. Writes may come from
// any goroutine; reads belong to a single read loop.
type framer struct {
	in *bufio.Reader

	mu  sync.Mutex
	out io.Writer
	buf []byte
}

func newFramer(rw io.ReadWriter) *framer {
	return &framer{in: bufio.NewReader(rw), out: rw}
}

// writeFrame sends one frame. Header and payload go out in a single
// Write so concurrent writers cannot interleave.
func (f *framer) writeFrame(payload []byte) error {
	if len(payload) == 0 {
		return errEmptyFrame
	}
	if len(payload) > maxFramePayload {
		return fmt.Errorf("frame payload of %d bytes exceeds the %d byte cap", len(payload), maxFramePayload)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.buf = append(f.buf[:0], 0, 0, 0, 0)
	binary.BigEndian.PutUint32(f.buf, uint32(len(payload)))
	f.buf = append(f.buf, payload...)
	if _, err := f.out.Write(f.buf); err != nil {
		return fmt.Errorf("frame write: %w", err)
	}
	return nil
}

// readFrame returns the next payload. io.EOF marks a clean end of
// stream between frames; an end inside a frame is errTruncatedFrame.
func (f *framer) readFrame() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(f.in, header[:]); err != nil {
		switch {
		case err == io.EOF:
			return nil, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, errTruncatedFrame
		default:
			return nil, fmt.Errorf("frame header read: %w", err)
		}
	}

	size := binary.BigEndian.Uint32(header[:])
	switch {
	case size == 0:
		return nil, errEmptyFrame
	case size > maxFramePayload:
		return nil, fmt.Errorf("frame header announces %d bytes, cap is %d", size, maxFramePayload)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(f.in, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, errTruncatedFrame
		}
		return nil, fmt.Errorf("frame payload read: %w", err)
	}
	return payload, nil
}
