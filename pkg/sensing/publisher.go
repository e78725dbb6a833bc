package sensing

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/meshnode/meshnode-go/pkg/cadence"
	"github.com/meshnode/meshnode-go/pkg/device"
	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Config configures a publishing model.
type Config struct {
	// Cadence is applied before the first payload is received.
	// The zero value leaves publication disabled.
	Cadence cadence.Mode

	// Location tags protocol log events.
	Location uint16

	// NodeID tags protocol log events.
	NodeID string

	// Logger is used for operational logging. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger records cadence changes. Nil disables it.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a Config with publication disabled.
func DefaultConfig() Config {
	return Config{Cadence: cadence.None()}
}

// sampler takes one reading and turns it into a message.
type sampler func(ctx context.Context) (wire.Message, error)

// publisher is the cadence-driven loop shared by Sensor and Battery.
type publisher struct {
	name   string
	config Config
	state  *cadence.State
	sample sampler
	logger *slog.Logger
	plog   log.Logger
}

func newPublisher(name string, config Config, sample sampler) *publisher {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("model", name)
	return &publisher{
		name:   name,
		config: config,
		state:  cadence.NewState(logger),
		sample: sample,
		logger: logger,
		plog:   log.OrNoop(config.ProtocolLogger),
	}
}

func (p *publisher) run(ctx context.Context, dc device.Context) error {
	defer p.state.Stop()
	if p.config.Cadence.Kind != cadence.KindNone {
		p.apply(p.config.Cadence)
	}

	for {
		if !p.state.Armed() {
			payload, err := device.Receive(ctx, dc)
			if err != nil {
				return err
			}
			p.process(payload)
			continue
		}

		res, err := device.Select[device.InboundPayload, time.Time](ctx, dc.Receive(), p.state.C())
		if err != nil {
			return err
		}
		switch res.Branch {
		case device.BranchFirst:
			if !res.OK {
				return device.ErrClosed
			}
			p.process(res.First)
		case device.BranchSecond:
			p.tick(ctx, dc)
		}
	}
}

// process handles an inbound payload. Only cadence changes matter.
func (p *publisher) process(payload device.InboundPayload) {
	cp, ok := payload.(device.ControlPayload)
	if !ok {
		return
	}
	if pc, ok := cp.Event.(device.PublicationCadence); ok {
		p.apply(pc.Mode)
	}
}

func (p *publisher) apply(mode cadence.Mode) {
	old := p.state.Phase()
	p.state.Apply(mode)
	p.logger.Info("publication cadence changed", "cadence", mode.String())

	if old == p.state.Phase() && mode.Kind != cadence.KindPeriodic {
		return
	}
	p.plog.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    p.config.NodeID,
		Layer:     log.LayerModel,
		Category:  log.CategoryState,
		Location:  p.config.Location,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityCadence,
			OldState: old.String(),
			NewState: p.state.Phase().String(),
			Reason:   mode.String(),
		},
	})
}

func (p *publisher) tick(ctx context.Context, dc device.Context) {
	msg, err := p.sample(ctx)
	if err != nil {
		p.logger.Warn("reading failed, skipping tick", "error", err)
		return
	}
	p.logger.Debug("publishing reading", "message", wire.MessageName(msg))
	if err := dc.Publish(ctx, msg); err != nil {
		p.logger.Warn("publish failed", "error", err)
	}
}
