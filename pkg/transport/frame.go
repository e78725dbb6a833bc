package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/meshnode/meshnode-go/pkg/device"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// ErrEmptyFrame is returned when a decoded frame carries neither a message
// nor a control envelope.
var ErrEmptyFrame = errors.New("frame carries no payload")

// Frame is the unit exchanged on a stream. Exactly one field is set.
//
// CBOR encoding:
//
//	{
//	  1: message,  // wire.RawMessage
//	  2: control   // device.ControlEnvelope
//	}
type Frame struct {
	Message *wire.RawMessage        `cbor:"1,keyasint,omitempty"`
	Control *device.ControlEnvelope `cbor:"2,keyasint,omitempty"`
}

// MessageFrame wraps an envelope.
func MessageFrame(raw wire.RawMessage) Frame {
	return Frame{Message: &raw}
}

// ControlFrame wraps a control envelope.
func ControlFrame(env device.ControlEnvelope) Frame {
	return Frame{Control: &env}
}

// EncodeFrame serializes a frame payload.
func EncodeFrame(f Frame) ([]byte, error) {
	if f.Message == nil && f.Control == nil {
		return nil, ErrEmptyFrame
	}
	return wire.MarshalCBOR(f)
}

// DecodeFrame parses a frame payload.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := wire.UnmarshalCBOR(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Message == nil && f.Control == nil {
		return Frame{}, ErrEmptyFrame
	}
	return f, nil
}

// Deliverer accepts inbound traffic. *device.Router implements it.
type Deliverer interface {
	Deliver(ctx context.Context, raw wire.RawMessage) error
	DeliverControl(ctx context.Context, env device.ControlEnvelope) error
}

var _ Deliverer = (*device.Router)(nil)

// Dispatch hands a decoded frame to d.
func Dispatch(ctx context.Context, d Deliverer, f Frame) error {
	if f.Message != nil {
		return d.Deliver(ctx, *f.Message)
	}
	if f.Control != nil {
		return d.DeliverControl(ctx, *f.Control)
	}
	return ErrEmptyFrame
}

// Fatal reports whether a delivery error should end the inbound stream.
// Per-message errors (malformed parameters, unknown locations) are not.
func Fatal(err error) bool {
	return errors.Is(err, device.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
