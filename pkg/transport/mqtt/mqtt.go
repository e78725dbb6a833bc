// Package mqtt carries node traffic over an MQTT broker.
//
// Topics live under a configurable prefix:
//
//	<prefix>/telemetry   out  message envelopes published by the node
//	<prefix>/state       out  partial state updates (JSON), optional
//	<prefix>/command     in   message envelopes for the node
//	<prefix>/display     in   display commands (JSON)
//	<prefix>/control     in   control envelopes
//
// Envelopes use the configured encoding (JSON or CBOR). Inbound traffic is
// handed to a transport.Deliverer in arrival order.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/meshnode/meshnode-go/pkg/convert"
	"github.com/meshnode/meshnode-go/pkg/device"
	"github.com/meshnode/meshnode-go/pkg/transport"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Topic suffixes.
const (
	TopicTelemetry = "telemetry"
	TopicState     = "state"
	TopicCommand   = "command"
	TopicDisplay   = "display"
	TopicControl   = "control"
)

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "meshnode"

// ErrNoBroker is returned by New when no broker URL is configured.
var ErrNoBroker = errors.New("no broker configured")

// Config configures a Transport.
type Config struct {
	// Broker is the broker URL, e.g. "tcp://localhost:1883".
	Broker string

	// ClientID identifies the MQTT session. Empty generates one.
	ClientID string

	// TopicPrefix is prepended to every topic.
	TopicPrefix string

	// Encoding selects the envelope codec ("json" or "cbor").
	Encoding string

	// QoS is used for subscriptions and publishes.
	QoS byte

	// PublishState also publishes a partial state update for every
	// convertible outbound message.
	PublishState bool

	// ConnectTimeout bounds the initial connection.
	ConnectTimeout time.Duration

	// Logger is used for operational logging. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		TopicPrefix:    DefaultTopicPrefix,
		Encoding:       "json",
		QoS:            1,
		ConnectTimeout: 10 * time.Second,
	}
}

// newClient is replaced in tests.
var newClient = paho.NewClient

// Transport is an MQTT transport.
type Transport struct {
	config Config
	codec  wire.EnvelopeCodec
	inbox  transport.Deliverer
	client paho.Client
	logger *slog.Logger

	mu  sync.RWMutex
	ctx context.Context
}

// New creates a transport delivering into inbox. It does not connect.
func New(config Config, inbox transport.Deliverer) (*Transport, error) {
	if config.Broker == "" {
		return nil, ErrNoBroker
	}
	if config.TopicPrefix == "" {
		config.TopicPrefix = DefaultTopicPrefix
	}
	if config.ClientID == "" {
		config.ClientID = "meshnode-" + uuid.NewString()
	}
	if config.QoS > 2 {
		return nil, fmt.Errorf("invalid QoS %d", config.QoS)
	}
	codec, err := wire.CodecFor(config.Encoding)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	t := &Transport{
		config: config,
		codec:  codec,
		inbox:  inbox,
		logger: logger.With("broker", config.Broker, "client_id", config.ClientID),
		ctx:    context.Background(),
	}

	opts := paho.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(true).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			t.logger.Warn("broker connection lost", "error", err)
		})
	t.client = newClient(opts)
	return t, nil
}

// Topic returns the full topic for suffix.
func (t *Transport) Topic(suffix string) string {
	return t.config.TopicPrefix + "/" + suffix
}

// Run connects, serves inbound traffic until ctx is canceled, and then
// disconnects.
func (t *Transport) Run(ctx context.Context) error {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	connectCtx := ctx
	if t.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, t.config.ConnectTimeout)
		defer cancel()
	}
	if err := wait(connectCtx, t.client.Connect()); err != nil {
		t.client.Disconnect(0)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connect %s: %w", t.config.Broker, err)
	}

	<-ctx.Done()
	t.client.Disconnect(250)
	t.logger.Info("disconnected from broker")
	return nil
}

// Publish sends raw on the telemetry topic. It implements device.Sink.
func (t *Transport) Publish(ctx context.Context, raw wire.RawMessage) error {
	if !t.client.IsConnected() {
		return transport.ErrNotConnected
	}
	data, err := t.codec.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := wait(ctx, t.client.Publish(t.Topic(TopicTelemetry), t.config.QoS, false, data)); err != nil {
		return err
	}

	if !t.config.PublishState {
		return nil
	}
	state, ok := convert.Telemetry(raw)
	if !ok {
		return nil
	}
	update, err := wire.JSON.Marshal(convert.Update{State: state, Partial: true})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return wait(ctx, t.client.Publish(t.Topic(TopicState), t.config.QoS, false, update))
}

// SendControl publishes a control envelope on the control topic, for a
// controller sharing the same prefix.
func (t *Transport) SendControl(ctx context.Context, env device.ControlEnvelope) error {
	data, err := t.codec.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode control: %w", err)
	}
	return wait(ctx, t.client.Publish(t.Topic(TopicControl), t.config.QoS, false, data))
}

func (t *Transport) onConnect(c paho.Client) {
	t.logger.Info("connected to broker")
	handlers := map[string]paho.MessageHandler{
		t.Topic(TopicCommand): t.handleCommand,
		t.Topic(TopicDisplay): t.handleDisplay,
		t.Topic(TopicControl): t.handleControl,
	}
	for topic, handler := range handlers {
		token := c.Subscribe(topic, t.config.QoS, handler)
		go func() {
			if err := wait(t.context(), token); err != nil {
				t.logger.Error("subscribe failed", "topic", topic, "error", err)
			}
		}()
	}
}

func (t *Transport) context() context.Context {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ctx
}

func (t *Transport) handleCommand(_ paho.Client, m paho.Message) {
	var raw wire.RawMessage
	if err := t.codec.Unmarshal(m.Payload(), &raw); err != nil {
		t.logger.Warn("dropping undecodable command", "topic", m.Topic(), "error", err)
		return
	}
	t.deliver(m.Topic(), transport.MessageFrame(raw))
}

func (t *Transport) handleDisplay(_ paho.Client, m paho.Message) {
	raw, err := convert.Command(m.Payload())
	if err != nil {
		t.logger.Warn("dropping display command", "topic", m.Topic(), "error", err)
		return
	}
	t.deliver(m.Topic(), transport.MessageFrame(raw))
}

func (t *Transport) handleControl(_ paho.Client, m paho.Message) {
	var env device.ControlEnvelope
	if err := t.codec.Unmarshal(m.Payload(), &env); err != nil {
		t.logger.Warn("dropping undecodable control", "topic", m.Topic(), "error", err)
		return
	}
	t.deliver(m.Topic(), transport.ControlFrame(env))
}

func (t *Transport) deliver(topic string, f transport.Frame) {
	if err := transport.Dispatch(t.context(), t.inbox, f); err != nil {
		if transport.Fatal(err) {
			t.logger.Debug("delivery stopped", "topic", topic, "error", err)
			return
		}
		t.logger.Warn("inbound delivery failed", "topic", topic, "error", err)
	}
}

// wait blocks until token completes or ctx is done.
func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
