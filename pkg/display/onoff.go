package display

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/meshnode/meshnode-go/pkg/device"
	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/models/onoff"
)

// Config configures an OnOff display model.
type Config struct {
	// Choreography is the animation played while on.
	Choreography Choreography

	// Location tags protocol log events.
	Location uint16

	// NodeID tags protocol log events.
	NodeID string

	// Logger is used for operational logging. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger records on/off state changes. Nil disables it.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a Config with the default choreography.
func DefaultConfig() Config {
	return Config{Choreography: DefaultChoreography()}
}

// OnOff is a Generic OnOff server showing its state on a Matrix.
type OnOff struct {
	config Config
	matrix Matrix
	logger *slog.Logger
	plog   log.Logger

	// active is written only by Run; atomic so observers can read it.
	active atomic.Bool
}

// NewOnOff creates an OnOff model driving matrix. The model owns the
// matrix while it runs.
func NewOnOff(config Config, matrix Matrix) *OnOff {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OnOff{
		config: config,
		matrix: matrix,
		logger: logger,
		plog:   log.OrNoop(config.ProtocolLogger),
	}
}

// Active reports whether the display is switched on.
func (d *OnOff) Active() bool {
	return d.active.Load()
}

// Run implements device.Model.
func (d *OnOff) Run(ctx context.Context, dc device.Context) error {
	for {
		var err error
		if d.active.Load() {
			err = d.runActive(ctx, dc)
		} else {
			err = d.runInactive(ctx, dc)
		}
		if err != nil {
			return err
		}
	}
}

// runInactive waits for the next message carrying an on/off intent.
func (d *OnOff) runInactive(ctx context.Context, dc device.Context) error {
	for {
		p, err := device.Receive(ctx, dc)
		if err != nil {
			return err
		}
		if on, ok := intent(p); ok {
			d.setActive(on)
			return nil
		}
	}
}

// runActive plays the animation while racing it against inbound payloads.
// It returns after the state was (re)applied or the animation ended on its
// own.
func (d *OnOff) runActive(ctx context.Context, dc device.Context) error {
	animCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.config.Choreography.Play(animCtx, d.matrix)
	}()

	// stop cancels the animation and waits until it released the matrix.
	stop := func() {
		cancel()
		<-done
	}

	for {
		res, err := device.Select[error, device.InboundPayload](ctx, done, dc.Receive())
		if err != nil {
			stop()
			return err
		}

		if res.Branch == device.BranchFirst {
			if res.First != nil && !errors.Is(res.First, context.Canceled) {
				d.logger.Warn("animation stopped", "error", res.First)
			}
			return nil
		}

		if !res.OK {
			stop()
			return device.ErrClosed
		}
		on, ok := intent(res.Second)
		if !ok {
			continue
		}
		stop()
		d.setActive(on)
		return nil
	}
}

// intent extracts the on/off intent of a payload. Only Set and
// SetUnacknowledged carry one.
func intent(p device.InboundPayload) (bool, bool) {
	mp, ok := p.(device.MessagePayload)
	if !ok {
		return false, false
	}
	switch msg := mp.Message.(type) {
	case onoff.Set:
		return msg.IsOn(), true
	case onoff.SetUnacknowledged:
		return msg.IsOn(), true
	default:
		return false, false
	}
}

func (d *OnOff) setActive(on bool) {
	was := d.active.Swap(on)
	if !on {
		d.matrix.Clear()
	}
	if was == on {
		return
	}

	d.logger.Info("display state changed", "active", on)
	d.plog.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    d.config.NodeID,
		Layer:     log.LayerModel,
		Category:  log.CategoryState,
		Location:  d.config.Location,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDisplay,
			OldState: stateName(was),
			NewState: stateName(on),
		},
	})
}

func stateName(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// Compile-time interface satisfaction check.
var _ device.Model = (*OnOff)(nil)
