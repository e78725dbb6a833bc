package log

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// WriterLogger appends CBOR-encoded events to a writer. It is safe for
// concurrent use. Encoding errors are counted, never returned.
type WriterLogger struct {
	mu      sync.Mutex
	w       io.Writer
	enc     *cbor.Encoder
	written int
	failed  int
	closed  bool
}

// NewWriterLogger creates a WriterLogger on w. If w is an io.Closer it is
// closed by Close.
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w, enc: NewEncoder(w)}
}

// Log encodes the event.
func (l *WriterLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.failed++
		return
	}
	l.written++
}

// Written returns the number of events encoded so far and the number that
// failed to encode.
func (l *WriterLogger) Written() (ok, failed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written, l.failed
}

// Close stops logging and closes the writer when it can be closed.
// Later Log calls are ignored; calling Close again returns nil.
func (l *WriterLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FileLogger is a WriterLogger appending to a protocol log file.
type FileLogger struct {
	*WriterLogger
	path string
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{WriterLogger: NewWriterLogger(f), path: path}, nil
}

// Path returns the file the logger appends to.
func (l *FileLogger) Path() string {
	return l.path
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = (*WriterLogger)(nil)
	_ Logger = (*FileLogger)(nil)
)
