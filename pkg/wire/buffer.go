package wire

import (
	"errors"
)

// Fixed capacities of the access message fields.
const (
	// MaxOpcodeSize is the capacity of the opcode buffer.
	MaxOpcodeSize = 16

	// MaxParametersSize is the capacity of the parameter buffer.
	MaxParametersSize = 386
)

// Buffer errors.
var (
	// ErrCapacityExceeded indicates a write past the buffer capacity.
	ErrCapacityExceeded = errors.New("buffer capacity exceeded")
)

// Buffer is a byte buffer with a fixed capacity.
// Appends that would exceed the capacity fail and leave the buffer unchanged.
type Buffer struct {
	data     []byte
	capacity int
}

// NewBuffer creates an empty buffer that holds at most capacity bytes.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		data:     make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Append appends bytes to the buffer.
func (b *Buffer) Append(p ...byte) error {
	if len(b.data)+len(p) > b.capacity {
		return ErrCapacityExceeded
	}
	b.data = append(b.data, p...)
	return nil
}

// AppendUint16LE appends v in little-endian order.
func (b *Buffer) AppendUint16LE(v uint16) error {
	return b.Append(byte(v), byte(v>>8))
}

// AppendUint24LE appends the low 24 bits of v in little-endian order.
func (b *Buffer) AppendUint24LE(v uint32) error {
	return b.Append(byte(v), byte(v>>8), byte(v>>16))
}

// Bytes returns the buffered bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}
