package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshnode/meshnode-go/pkg/cadence"
	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/models"
	"github.com/meshnode/meshnode-go/pkg/models/onoff"
	"github.com/meshnode/meshnode-go/pkg/models/sensor"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// captureSink records published envelopes.
type captureSink struct {
	mu   sync.Mutex
	raws []wire.RawMessage
	err  error
}

func (s *captureSink) send(_ context.Context, raw wire.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.raws = append(s.raws, raw)
	return nil
}

func (s *captureSink) messages() []wire.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wire.RawMessage(nil), s.raws...)
}

func receiveNow(t *testing.T, ch *Channel) InboundPayload {
	t.Helper()
	select {
	case p := <-ch.Receive():
		return p
	case <-time.After(time.Second):
		t.Fatal("no payload delivered")
		return nil
	}
}

func TestRouterDeliverDecodes(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil)
	ch, err := r.Bind(1, models.DefaultRegistry())
	require.NoError(t, err)

	raw := wire.MustEncodeRaw(onoff.NewSet(true, 4), 1, nil)
	require.NoError(t, r.Deliver(context.Background(), raw))

	p := receiveNow(t, ch)
	mp, ok := p.(MessagePayload)
	require.True(t, ok, "payload type %T", p)
	assert.Equal(t, onoff.NewSet(true, 4), mp.Message)
	assert.Equal(t, uint16(1), mp.Meta.Location)
}

func TestRouterDeliverPreservesOrder(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil)
	ch, err := r.Bind(0, onoff.Parser)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		raw := wire.MustEncodeRaw(onoff.NewSet(i%2 == 0, uint8(i)), 0, nil)
		require.NoError(t, r.Deliver(context.Background(), raw))
	}
	for i := 0; i < 10; i++ {
		mp := receiveNow(t, ch).(MessagePayload)
		assert.Equal(t, uint8(i), mp.Message.(onoff.Set).TID)
	}
}

func TestRouterAddressFilter(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.Address = wire.Addr(2)
	r := NewRouter(cfg, nil)
	ch, err := r.Bind(0, onoff.Parser)
	require.NoError(t, err)

	other := wire.MustEncodeRaw(onoff.NewSet(true, 0), 0, wire.Addr(3))
	require.NoError(t, r.Deliver(context.Background(), other))
	assert.Len(t, ch.Receive(), 0, "message for another node must be dropped")

	mine := wire.MustEncodeRaw(onoff.NewSet(true, 0), 0, wire.Addr(2))
	require.NoError(t, r.Deliver(context.Background(), mine))
	mp := receiveNow(t, ch).(MessagePayload)
	require.NotNil(t, mp.Meta.Destination)
	assert.Equal(t, uint16(2), *mp.Meta.Destination)

	broadcast := wire.MustEncodeRaw(onoff.NewSet(false, 1), 0, nil)
	require.NoError(t, r.Deliver(context.Background(), broadcast))
	receiveNow(t, ch)
}

func TestRouterDeliverUnknownOpcodeDropped(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil)
	ch, err := r.Bind(0, onoff.Parser)
	require.NoError(t, err)

	raw := wire.MustEncodeRaw(sensor.NewStatus(sensor.Payload{Temperature: 3}), 0, nil)
	require.NoError(t, r.Deliver(context.Background(), raw))
	assert.Len(t, ch.Receive(), 0)

	garbage := wire.RawMessage{Opcode: wire.Bytes{0x7F}}
	require.NoError(t, r.Deliver(context.Background(), garbage))
	assert.Len(t, ch.Receive(), 0)
}

func TestRouterDeliverMalformed(t *testing.T) {
	rec := log.NewRecorder(0)
	cfg := DefaultRouterConfig()
	cfg.ProtocolLogger = rec
	r := NewRouter(cfg, nil)
	_, err := r.Bind(0, onoff.Parser)
	require.NoError(t, err)

	raw := wire.RawMessage{Opcode: wire.Bytes{0x82, 0x02}, Parameters: wire.Bytes{0x05}}
	err = r.Deliver(context.Background(), raw)
	assert.ErrorIs(t, err, wire.ErrMalformed)

	cat := log.CategoryError
	assert.Len(t, rec.Filter(log.Filter{Category: &cat}), 1)
}

func TestRouterDeliverUnknownLocation(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil)
	err := r.Deliver(context.Background(), wire.MustEncodeRaw(onoff.Get{}, 9, nil))
	assert.ErrorIs(t, err, ErrUnknownLocation)

	err = r.Control(context.Background(), 9, PublicationCadence{Mode: cadence.None()})
	assert.ErrorIs(t, err, ErrUnknownLocation)
}

func TestRouterBindDuplicate(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil)
	_, err := r.Bind(1, onoff.Parser)
	require.NoError(t, err)
	_, err = r.Bind(1, sensor.Parser)
	assert.ErrorIs(t, err, ErrDuplicateLocation)
}

func TestRouterControl(t *testing.T) {
	rec := log.NewRecorder(0)
	cfg := DefaultRouterConfig()
	cfg.ProtocolLogger = rec
	r := NewRouter(cfg, nil)
	ch, err := r.Bind(2, sensor.Parser)
	require.NoError(t, err)

	require.NoError(t, r.DeliverControl(context.Background(), CadenceEnvelope(2, cadence.Periodic(time.Second))))

	cp, ok := receiveNow(t, ch).(ControlPayload)
	require.True(t, ok)
	assert.Equal(t, PublicationCadence{Mode: cadence.Periodic(time.Second)}, cp.Event)

	events := rec.Events()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Control)
	assert.Equal(t, "periodic(1s)", events[0].Control.Cadence)

	// An empty envelope carries nothing.
	require.NoError(t, r.DeliverControl(context.Background(), ControlEnvelope{Location: 2}))
	assert.Len(t, ch.Receive(), 0)
}

func TestChannelPublish(t *testing.T) {
	sink := &captureSink{}
	rec := log.NewRecorder(0)
	cfg := DefaultRouterConfig()
	cfg.ProtocolLogger = rec
	r := NewRouter(cfg, sink.send)
	ch, err := r.Bind(3, sensor.Parser)
	require.NoError(t, err)

	require.NoError(t, ch.Publish(context.Background(), sensor.NewStatus(sensor.Payload{Temperature: 44})))

	raws := sink.messages()
	require.Len(t, raws, 1)
	assert.Equal(t, uint16(3), raws[0].Location)
	assert.Equal(t, wire.Bytes{0x52}, raws[0].Opcode)
	assert.Equal(t, wire.Bytes{0xE0, 0x09, 0x2C}, raws[0].Parameters)

	out := log.DirectionOut
	events := rec.Filter(log.Filter{Direction: &out})
	require.Len(t, events, 1)
	assert.Equal(t, "sensor.Status", events[0].Message.Name)
}

func TestChannelPublishSinkError(t *testing.T) {
	boom := errors.New("broker down")
	sink := &captureSink{err: boom}
	r := NewRouter(DefaultRouterConfig(), sink.send)
	ch, err := r.Bind(0, onoff.Parser)
	require.NoError(t, err)

	err = ch.Publish(context.Background(), onoff.Status{Present: onoff.On})
	assert.ErrorIs(t, err, boom)
}

func TestChannelPublishInvalidValue(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), (&captureSink{}).send)
	ch, err := r.Bind(0, onoff.Parser)
	require.NoError(t, err)

	err = ch.Publish(context.Background(), onoff.Set{OnOff: 9})
	assert.ErrorIs(t, err, wire.ErrInvalidValue)
}

// oversized emits more parameters than the wire allows.
type oversized struct{}

func (oversized) Opcode() wire.Opcode { return wire.Opcode1(0x01) }

func (oversized) EmitParameters(buf *wire.Buffer) error {
	return buf.Append(make([]byte, wire.MaxParametersSize+1)...)
}

func TestChannelPublishCapacityPanics(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), (&captureSink{}).send)
	ch, err := r.Bind(0, onoff.Parser)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = ch.Publish(context.Background(), oversized{})
	})
}

func TestRouterCloseEndsStreams(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil)
	ch, err := r.Bind(0, onoff.Parser)
	require.NoError(t, err)

	r.Close()
	r.Close()

	_, ok := <-ch.Receive()
	assert.False(t, ok)

	err = r.Deliver(context.Background(), wire.MustEncodeRaw(onoff.Get{}, 0, nil))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = Receive(context.Background(), ch)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRouterDeliverBlocksWhenFull(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.QueueSize = 1
	r := NewRouter(cfg, nil)
	_, err := r.Bind(0, onoff.Parser)
	require.NoError(t, err)

	raw := wire.MustEncodeRaw(onoff.Get{}, 0, nil)
	require.NoError(t, r.Deliver(context.Background(), raw))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = r.Deliver(ctx, raw)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestControlEnvelopeEvent(t *testing.T) {
	ev, ok := CadenceEnvelope(1, cadence.OnChange()).Event()
	require.True(t, ok)
	assert.Equal(t, PublicationCadence{Mode: cadence.OnChange()}, ev)

	_, ok = ControlEnvelope{}.Event()
	assert.False(t, ok)
}
