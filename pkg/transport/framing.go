package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/meshnode/meshnode-go/pkg/log"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxFrameSize bounds a single frame payload. One envelope with
	// full opcode and parameter buffers stays well below it.
	DefaultMaxFrameSize = 4096
)

// Framing errors.
var (
	// ErrFrameTooLarge indicates the payload exceeds the maximum size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrFrameEmpty indicates a zero-length payload.
	ErrFrameEmpty = errors.New("frame is empty")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

// frameTap records transport frames in the protocol log.
type frameTap struct {
	logger log.Logger
	nodeID string
}

func (t *frameTap) record(dir log.Direction, payload []byte) {
	if t.logger == nil {
		return
	}
	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    t.nodeID,
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame:     log.NewFrameEvent(FrameSize(len(payload)), payload),
	})
}

// FrameWriter writes length-prefixed frames to an underlying writer.
type FrameWriter struct {
	w       io.Writer
	maxSize uint32
	mu      sync.Mutex
	tap     frameTap
}

// NewFrameWriter creates a frame writer. A maxSize of 0 selects
// DefaultMaxFrameSize.
func NewFrameWriter(w io.Writer, maxSize uint32) *FrameWriter {
	if maxSize == 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameWriter{w: w, maxSize: maxSize}
}

// SetLogger configures protocol logging. Pass nil to disable.
func (fw *FrameWriter) SetLogger(logger log.Logger, nodeID string) {
	fw.tap = frameTap{logger: logger, nodeID: nodeID}
}

// WriteFrame writes a length-prefixed frame. Safe for concurrent use.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrFrameEmpty
	}
	if uint32(len(data)) > fw.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(data), fw.maxSize)
	}

	frame := make([]byte, FrameSize(len(data)))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[LengthPrefixSize:], data)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	fw.tap.record(log.DirectionOut, data)
	return nil
}

// FrameReader reads length-prefixed frames from an underlying reader.
type FrameReader struct {
	r         io.Reader
	maxSize   uint32
	lengthBuf [LengthPrefixSize]byte
	tap       frameTap
}

// NewFrameReader creates a frame reader. A maxSize of 0 selects
// DefaultMaxFrameSize.
func NewFrameReader(r io.Reader, maxSize uint32) *FrameReader {
	if maxSize == 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameReader{r: r, maxSize: maxSize}
}

// SetLogger configures protocol logging. Pass nil to disable.
func (fr *FrameReader) SetLogger(logger log.Logger, nodeID string) {
	fr.tap = frameTap{logger: logger, nodeID: nodeID}
}

// ReadFrame reads one frame and returns its payload. A clean end of stream
// between frames returns io.EOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(fr.lengthBuf[:])
	if length == 0 {
		return nil, ErrFrameEmpty
	}
	if length > fr.maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, fr.maxSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}

	fr.tap.record(log.DirectionIn, payload)
	return payload, nil
}

// Framer combines frame reading and writing over one stream.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer for bidirectional communication.
func NewFramer(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw, maxSize),
		FrameWriter: NewFrameWriter(rw, maxSize),
	}
}

// SetLogger configures logging for both directions.
func (f *Framer) SetLogger(logger log.Logger, nodeID string) {
	f.FrameReader.SetLogger(logger, nodeID)
	f.FrameWriter.SetLogger(logger, nodeID)
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}
