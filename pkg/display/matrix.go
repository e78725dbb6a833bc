package display

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Matrix dimensions.
const (
	Rows    = 5
	Columns = 5
)

// Brightness is an LED brightness level.
type Brightness uint8

// Brightness range.
const (
	MinBrightness Brightness = 0
	MaxBrightness Brightness = 10
)

// Frame is a 5x5 bitmap. Frame[row][col] is true when the LED is lit.
type Frame [Rows][Columns]bool

// FullFrame returns a frame with every LED lit.
func FullFrame() Frame {
	var f Frame
	for r := range f {
		for c := range f[r] {
			f[r][c] = true
		}
	}
	return f
}

// Lit returns the number of lit LEDs.
func (f Frame) Lit() int {
	n := 0
	for r := range f {
		for c := range f[r] {
			if f[r][c] {
				n++
			}
		}
	}
	return n
}

// String renders the frame as five lines of '#' and '.'.
func (f Frame) String() string {
	var b strings.Builder
	for r := range f {
		for c := range f[r] {
			if f[r][c] {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		if r < Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Matrix is an LED matrix driver.
// A Matrix is used by one goroutine at a time.
type Matrix interface {
	// SetBrightness sets the brightness level.
	SetBrightness(level Brightness)

	// IncreaseBrightness raises brightness by one step, saturating at max.
	IncreaseBrightness()

	// DecreaseBrightness lowers brightness by one step, saturating at min.
	DecreaseBrightness()

	// Apply loads a frame into the frame buffer.
	Apply(frame Frame)

	// Display shows frame for d. It returns ctx.Err() if ctx is done first.
	Display(ctx context.Context, frame Frame, d time.Duration) error

	// Clear turns every LED off.
	Clear()
}

// MatrixState is a snapshot of a VirtualMatrix.
type MatrixState struct {
	Brightness Brightness
	Frame      Frame
}

// On reports whether any LED is lit at a non-zero brightness.
func (s MatrixState) On() bool {
	return s.Brightness > MinBrightness && s.Frame.Lit() > 0
}

// VirtualMatrix is an in-memory Matrix. It is safe for concurrent use so
// that observers can read it while a model drives it.
type VirtualMatrix struct {
	mu       sync.Mutex
	state    MatrixState
	frames   int
	observer func(MatrixState)
}

// NewVirtualMatrix creates a dark matrix.
func NewVirtualMatrix() *VirtualMatrix {
	return &VirtualMatrix{}
}

// Observe registers fn to be called after every change.
// fn runs on the driving goroutine and must not call back into the matrix.
func (m *VirtualMatrix) Observe(fn func(MatrixState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// State returns the current state.
func (m *VirtualMatrix) State() MatrixState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// FramesShown returns how many Display calls completed.
func (m *VirtualMatrix) FramesShown() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

func (m *VirtualMatrix) update(fn func(*MatrixState)) {
	m.mu.Lock()
	fn(&m.state)
	state, observer := m.state, m.observer
	m.mu.Unlock()

	if observer != nil {
		observer(state)
	}
}

// SetBrightness implements Matrix.
func (m *VirtualMatrix) SetBrightness(level Brightness) {
	if level > MaxBrightness {
		level = MaxBrightness
	}
	m.update(func(s *MatrixState) { s.Brightness = level })
}

// IncreaseBrightness implements Matrix.
func (m *VirtualMatrix) IncreaseBrightness() {
	m.update(func(s *MatrixState) {
		if s.Brightness < MaxBrightness {
			s.Brightness++
		}
	})
}

// DecreaseBrightness implements Matrix.
func (m *VirtualMatrix) DecreaseBrightness() {
	m.update(func(s *MatrixState) {
		if s.Brightness > MinBrightness {
			s.Brightness--
		}
	})
}

// Apply implements Matrix.
func (m *VirtualMatrix) Apply(frame Frame) {
	m.update(func(s *MatrixState) { s.Frame = frame })
}

// Display implements Matrix.
func (m *VirtualMatrix) Display(ctx context.Context, frame Frame, d time.Duration) error {
	m.Apply(frame)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	m.frames++
	m.mu.Unlock()
	return nil
}

// Clear implements Matrix.
func (m *VirtualMatrix) Clear() {
	m.update(func(s *MatrixState) { s.Frame = Frame{} })
}

// Compile-time interface satisfaction check.
var _ Matrix = (*VirtualMatrix)(nil)
