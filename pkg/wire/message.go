package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Decoding errors.
var (
	// ErrMalformed indicates parameters that do not match a recognized opcode.
	ErrMalformed = errors.New("malformed parameters")

	// ErrInvalidValue indicates a message field holding a prohibited value.
	ErrInvalidValue = errors.New("invalid field value")
)

// Message is a typed access message that can be emitted on the wire.
type Message interface {
	// Opcode returns the message opcode.
	Opcode() Opcode

	// EmitParameters writes the parameter bytes into buf.
	EmitParameters(buf *Buffer) error
}

// Parser recognizes the opcodes of one model and decodes their parameters.
type Parser interface {
	// Parse decodes params for op. It returns ok=false when op does not
	// belong to this model. A recognized opcode with bad parameters returns
	// ok=true and an error wrapping ErrMalformed.
	Parse(op Opcode, params []byte) (msg Message, ok bool, err error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(op Opcode, params []byte) (Message, bool, error)

// Parse calls f(op, params).
func (f ParserFunc) Parse(op Opcode, params []byte) (Message, bool, error) {
	return f(op, params)
}

// CapacityError reports an encoding that does not fit its fixed buffer.
type CapacityError struct {
	// Field is "opcode" or "parameters".
	Field string

	// Capacity is the buffer capacity in bytes.
	Capacity int

	// Opcode is the opcode of the message being encoded.
	Opcode Opcode
}

// Error implements error.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s of %s exceeds %d bytes", e.Field, e.Opcode, e.Capacity)
}

// Unwrap returns ErrCapacityExceeded.
func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// Encode emits the opcode and parameters of msg into fixed-capacity buffers.
// Capacity overflow is reported as a *CapacityError.
func Encode(msg Message) (opcode, parameters []byte, err error) {
	op := msg.Opcode()

	opBuf := NewBuffer(MaxOpcodeSize)
	if err := op.Emit(opBuf); err != nil {
		return nil, nil, classify(err, "opcode", MaxOpcodeSize, op)
	}

	paramBuf := NewBuffer(MaxParametersSize)
	if err := msg.EmitParameters(paramBuf); err != nil {
		return nil, nil, classify(err, "parameters", MaxParametersSize, op)
	}

	return opBuf.Bytes(), paramBuf.Bytes(), nil
}

// MustEncode is like Encode but panics on failure.
// Use it where an encoding failure means the program itself is wrong.
func MustEncode(msg Message) (opcode, parameters []byte) {
	opcode, parameters, err := Encode(msg)
	if err != nil {
		panic(fmt.Sprintf("wire: encode %s: %v", MessageName(msg), err))
	}
	return opcode, parameters
}

func classify(err error, field string, capacity int, op Opcode) error {
	if errors.Is(err, ErrCapacityExceeded) {
		return &CapacityError{Field: field, Capacity: capacity, Opcode: op}
	}
	return fmt.Errorf("encode %s %s: %w", op, field, err)
}

// MessageName returns a short type name for msg, e.g. "onoff.Set".
func MessageName(msg Message) string {
	if msg == nil {
		return "<nil>"
	}
	name := fmt.Sprintf("%T", msg)
	return strings.TrimPrefix(name, "*")
}

// Registry decodes access messages using an ordered list of parsers.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry that tries parsers in the given order.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: append([]Parser(nil), parsers...)}
}

// Decode splits opcode and hands params to the first parser that recognizes
// it. Opcodes that cannot be split or that no parser recognizes yield
// ok=false and a nil error.
func (r *Registry) Decode(opcode, params []byte) (Message, bool, error) {
	op, _, err := SplitOpcode(opcode)
	if err != nil {
		return nil, false, nil
	}
	return r.DecodeOpcode(op, params)
}

// DecodeOpcode is like Decode for an already split opcode.
// Parameters longer than MaxParametersSize are rejected before any parser
// runs, with an error wrapping ErrMalformed.
func (r *Registry) DecodeOpcode(op Opcode, params []byte) (Message, bool, error) {
	if len(params) > MaxParametersSize {
		return nil, false, fmt.Errorf("%w: %d parameter bytes exceed %d", ErrMalformed, len(params), MaxParametersSize)
	}
	for _, p := range r.parsers {
		msg, ok, err := p.Parse(op, params)
		if !ok {
			continue
		}
		if err != nil {
			return nil, true, fmt.Errorf("decode %s: %w", op, err)
		}
		return msg, true, nil
	}
	return nil, false, nil
}

// DecodeRaw decodes the opcode and parameters of an envelope.
func (r *Registry) DecodeRaw(raw RawMessage) (Message, bool, error) {
	return r.Decode(raw.Opcode, raw.Parameters)
}

// Parse implements Parser so registries can be nested.
func (r *Registry) Parse(op Opcode, params []byte) (Message, bool, error) {
	return r.DecodeOpcode(op, params)
}

// Compile-time interface satisfaction check.
var _ Parser = (*Registry)(nil)
