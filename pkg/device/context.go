package device

import (
	"context"
	"errors"

	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Device errors.
var (
	// ErrClosed is returned by a model whose inbound stream has ended.
	ErrClosed = errors.New("inbound channel closed")

	// ErrUnknownLocation indicates a payload for a location with no element.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrDuplicateLocation indicates two elements sharing one location.
	ErrDuplicateLocation = errors.New("duplicate location")
)

// Context is a model's view of the node.
type Context interface {
	// Receive returns the inbound payload stream. Payloads arrive in FIFO
	// order without loss. The channel is closed when the node shuts down.
	Receive() <-chan InboundPayload

	// Publish sends a message to the mesh. Delivery is best effort; an
	// error means the message was not handed to the transport.
	Publish(ctx context.Context, msg wire.Message) error
}

// Model is a long-running behavior bound to one element.
type Model interface {
	// Run processes payloads until ctx is cancelled, returning ctx.Err(),
	// or until the inbound stream is closed, returning ErrClosed.
	Run(ctx context.Context, dc Context) error
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, dc Context) error

// Run calls f(ctx, dc).
func (f ModelFunc) Run(ctx context.Context, dc Context) error {
	return f(ctx, dc)
}
