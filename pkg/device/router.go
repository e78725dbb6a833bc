package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// DefaultQueueSize is the inbound queue depth of each Channel.
const DefaultQueueSize = 32

// Sink hands an encoded outbound message to a transport.
type Sink func(ctx context.Context, raw wire.RawMessage) error

// RouterConfig configures a Router.
type RouterConfig struct {
	// NodeID tags protocol log events.
	NodeID string

	// Address is the node's unicast address. Messages addressed to another
	// node are dropped. Nil accepts every message.
	Address *uint16

	// QueueSize is the inbound queue depth per location.
	QueueSize int

	// Logger is used for operational logging. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger records inbound and outbound traffic. Nil disables it.
	ProtocolLogger log.Logger
}

// DefaultRouterConfig returns a RouterConfig with default values.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{QueueSize: DefaultQueueSize}
}

// Router routes envelopes between transports and element channels.
// It is safe for concurrent use.
type Router struct {
	config RouterConfig
	sink   Sink
	logger *slog.Logger
	plog   log.Logger

	mu       sync.RWMutex
	channels map[uint16]*Channel
}

// NewRouter creates a Router publishing through sink.
func NewRouter(config RouterConfig, sink Sink) *Router {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{
		config:   config,
		sink:     sink,
		logger:   logger,
		plog:     log.OrNoop(config.ProtocolLogger),
		channels: make(map[uint16]*Channel),
	}
}

// SetSink replaces the outbound sink. Transports that are created after the
// router call this once before the node starts.
func (r *Router) SetSink(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// Bind creates the channel for location, decoding with parser.
func (r *Router) Bind(location uint16, parser wire.Parser) (*Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[location]; exists {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateLocation, location)
	}
	ch := &Channel{
		router:   r,
		location: location,
		parser:   parser,
		queue:    make(chan InboundPayload, r.config.QueueSize),
		done:     make(chan struct{}),
	}
	r.channels[location] = ch
	return ch, nil
}

// Locations returns the bound locations.
func (r *Router) Locations() []uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	locs := make([]uint16, 0, len(r.channels))
	for loc := range r.channels {
		locs = append(locs, loc)
	}
	return locs
}

func (r *Router) channel(location uint16) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[location]
	return ch, ok
}

// Deliver routes an inbound envelope.
//
// Envelopes addressed to another node and opcodes the element's parser does
// not recognize are dropped and return nil. Malformed parameters and unknown
// locations return an error. Deliver blocks while the element's queue is
// full.
func (r *Router) Deliver(ctx context.Context, raw wire.RawMessage) error {
	if r.config.Address != nil && raw.Address != nil && *raw.Address != *r.config.Address {
		r.logger.Debug("dropping message for other node",
			"address", *raw.Address, "node_address", *r.config.Address)
		return nil
	}

	ch, ok := r.channel(raw.Location)
	if !ok {
		r.logError(raw.Location, ErrUnknownLocation, "deliver")
		return fmt.Errorf("%w: %d", ErrUnknownLocation, raw.Location)
	}

	msg, ok, err := decode(ch.parser, raw)
	r.logMessage(log.DirectionIn, raw, msg)
	if err != nil {
		r.logError(raw.Location, err, "decode")
		return err
	}
	if !ok {
		r.logger.Debug("ignoring unrecognized opcode",
			"location", raw.Location, "opcode", fmt.Sprintf("%X", []byte(raw.Opcode)))
		return nil
	}

	return ch.push(ctx, MessagePayload{
		Message: msg,
		Meta: Metadata{
			Destination: raw.Address,
			Location:    raw.Location,
		},
	})
}

func decode(parser wire.Parser, raw wire.RawMessage) (wire.Message, bool, error) {
	if err := raw.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", wire.ErrMalformed, err)
	}
	op, _, err := wire.SplitOpcode(raw.Opcode)
	if err != nil {
		return nil, false, nil
	}
	if reg, ok := parser.(*wire.Registry); ok {
		return reg.DecodeOpcode(op, raw.Parameters)
	}
	return wire.NewRegistry(parser).DecodeOpcode(op, raw.Parameters)
}

// Control delivers a control event to the element at location.
func (r *Router) Control(ctx context.Context, location uint16, ev ControlEvent) error {
	ch, ok := r.channel(location)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLocation, location)
	}

	ce := &log.ControlEvent{Type: log.ControlPublicationCadence}
	if pc, ok := ev.(PublicationCadence); ok {
		ce.Cadence = pc.Mode.String()
	}
	r.plog.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    r.config.NodeID,
		Direction: log.DirectionIn,
		Layer:     log.LayerModel,
		Category:  log.CategoryControl,
		Location:  location,
		Control:   ce,
	})

	return ch.push(ctx, ControlPayload{Event: ev})
}

// DeliverControl routes a serialized control envelope.
func (r *Router) DeliverControl(ctx context.Context, env ControlEnvelope) error {
	ev, ok := env.Event()
	if !ok {
		r.logger.Debug("ignoring empty control envelope", "location", env.Location)
		return nil
	}
	return r.Control(ctx, env.Location, ev)
}

// publish encodes msg and hands it to the sink.
// A capacity overflow means the program is wrong and panics.
func (r *Router) publish(ctx context.Context, location uint16, msg wire.Message) error {
	raw, err := wire.EncodeRaw(msg, location, nil)
	if err != nil {
		var capErr *wire.CapacityError
		if errors.As(err, &capErr) {
			panic(fmt.Sprintf("device: publish %s: %v", wire.MessageName(msg), err))
		}
		r.logError(location, err, "encode")
		return err
	}

	r.logMessage(log.DirectionOut, raw, msg)

	r.mu.RLock()
	sink := r.sink
	r.mu.RUnlock()
	if sink == nil {
		return nil
	}
	if err := sink(ctx, raw); err != nil {
		r.logError(location, err, "publish")
		return fmt.Errorf("publish %s: %w", wire.MessageName(msg), err)
	}
	return nil
}

// Close ends every inbound stream. Models see ErrClosed.
func (r *Router) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.channels {
		ch.close()
	}
}

func (r *Router) logMessage(dir log.Direction, raw wire.RawMessage, msg wire.Message) {
	me := &log.MessageEvent{
		Opcode:     raw.Opcode,
		Parameters: raw.Parameters,
	}
	if msg != nil {
		me.Name = wire.MessageName(msg)
	}
	r.plog.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    r.config.NodeID,
		Direction: dir,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Location:  raw.Location,
		Address:   raw.Address,
		Message:   me,
	})
}

func (r *Router) logError(location uint16, err error, op string) {
	r.plog.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    r.config.NodeID,
		Layer:     log.LayerWire,
		Category:  log.CategoryError,
		Location:  location,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: op,
		},
	})
}

// Channel is the Context of one element.
type Channel struct {
	router   *Router
	location uint16
	parser   wire.Parser

	queue chan InboundPayload
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// Location returns the element location.
func (c *Channel) Location() uint16 {
	return c.location
}

// Receive implements Context.
func (c *Channel) Receive() <-chan InboundPayload {
	return c.queue
}

// Publish implements Context.
func (c *Channel) Publish(ctx context.Context, msg wire.Message) error {
	return c.router.publish(ctx, c.location, msg)
}

func (c *Channel) push(ctx context.Context, p InboundPayload) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}
	select {
	case c.queue <- p:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.closed = true
		close(c.queue)
		c.mu.Unlock()
	})
}

// Compile-time interface satisfaction check.
var _ Context = (*Channel)(nil)
