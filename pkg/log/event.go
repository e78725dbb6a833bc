package log

import (
	"time"
)

// Event is a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// NodeID identifies the node instance that recorded the event.
	NodeID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// Location is the element slot the event belongs to.
	Location uint16 `cbor:"6,keyasint"`

	// Address is the unicast address carried by the message, if any.
	Address *uint16 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Control     *ControlEvent     `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the access message layer (opcode and parameters).
	LayerWire Layer = 1
	// LayerModel is the model run loop.
	LayerModel Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerModel:
		return "MODEL"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryControl Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including any length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes, possibly truncated.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MaxFrameCapture is the number of frame bytes kept in a FrameEvent.
const MaxFrameCapture = 256

// NewFrameEvent captures a frame, truncating the data to MaxFrameCapture.
func NewFrameEvent(size int, data []byte) *FrameEvent {
	fe := &FrameEvent{Size: size}
	if len(data) > MaxFrameCapture {
		fe.Data = append([]byte(nil), data[:MaxFrameCapture]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return fe
}

// MessageEvent captures an access message.
type MessageEvent struct {
	// Opcode is the encoded opcode.
	Opcode []byte `cbor:"1,keyasint"`

	// Parameters is the encoded parameter block.
	Parameters []byte `cbor:"2,keyasint,omitempty"`

	// Name is the decoded message type, e.g. "onoff.Set".
	// Empty when the message was not recognized.
	Name string `cbor:"3,keyasint,omitempty"`
}

// ControlEvent captures a control event delivered to a model.
type ControlEvent struct {
	// Type of control event.
	Type ControlType `cbor:"1,keyasint"`

	// Cadence is the requested publication cadence, e.g. "periodic(1s)".
	Cadence string `cbor:"2,keyasint,omitempty"`
}

// ControlType indicates the type of control event.
type ControlType uint8

const (
	// ControlPublicationCadence changes a model's publication cadence.
	ControlPublicationCadence ControlType = 0
)

// String returns the control type name.
func (c ControlType) String() string {
	switch c {
	case ControlPublicationCadence:
		return "PUBLICATION_CADENCE"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures model and transport lifecycle changes.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change, if available.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	StateEntityTransport StateEntity = 0
	StateEntityDisplay   StateEntity = 1
	StateEntityCadence   StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityTransport:
		return "TRANSPORT"
	case StateEntityDisplay:
		return "DISPLAY"
	case StateEntityCadence:
		return "CADENCE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
