package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Wire format: uvarint frame count, then each frame as uvarint length
// followed by the frame bytes. Frames are opaque to the transport.

const (
	// MaxFrameSize caps a single frame on the wire.
	MaxFrameSize = 1 << 20

	// MaxFrames caps the number of frames in one message.
	MaxFrames = 64
)

// WriteMessage encodes frames as one message and writes it to w.
func WriteMessage(w io.Writer, frames [][]byte) error {
	if len(frames) == 0 {
		return fmt.Errorf("message must have at least one frame")
	}
	if len(frames) > MaxFrames {
		return fmt.Errorf("too many frames: %d > %d", len(frames), MaxFrames)
	}

	size := binary.MaxVarintLen64
	for _, frame := range frames {
		size += binary.MaxVarintLen64 + len(frame)
	}

	buf := make([]byte, 0, size)
	buf = binary.AppendUvarint(buf, uint64(len(frames)))
	for _, frame := range frames {
		if len(frame) > MaxFrameSize {
			return fmt.Errorf("frame too large: %d > %d", len(frame), MaxFrameSize)
		}
		buf = binary.AppendUvarint(buf, uint64(len(frame)))
		buf = append(buf, frame...)
	}

	_, err := w.Write(buf)
	return err
}

// ReadMessage reads one framed message from r.
func ReadMessage(r *bufio.Reader) ([][]byte, error) {
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if count == 0 || count > MaxFrames {
		return nil, fmt.Errorf("invalid frame count: %d", count)
	}

	frames := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		length, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		if length > MaxFrameSize {
			return nil, fmt.Errorf("frame too large: %d > %d", length, MaxFrameSize)
		}
		frame := make([]byte, length)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}

	return frames, nil
}
