package display

import (
	"context"
	"time"
)

// Choreography describes the breathing animation.
type Choreography struct {
	// FrameDuration is how long each brightness step is shown.
	FrameDuration time.Duration `yaml:"frame_duration"`

	// RampUp is how long brightness keeps increasing.
	RampUp time.Duration `yaml:"ramp_up"`

	// RampDown is how long brightness keeps decreasing.
	RampDown time.Duration `yaml:"ramp_down"`

	// Pause is the dark interval between cycles.
	Pause time.Duration `yaml:"pause"`

	// Cycles limits the number of cycles. Zero repeats until cancelled.
	Cycles int `yaml:"cycles"`
}

// DefaultChoreography returns the standard animation timing.
func DefaultChoreography() Choreography {
	return Choreography{
		FrameDuration: 50 * time.Millisecond,
		RampUp:        600 * time.Millisecond,
		RampDown:      400 * time.Millisecond,
		Pause:         time.Second,
	}
}

// CycleDuration returns the length of one cycle.
func (c Choreography) CycleDuration() time.Duration {
	return c.RampUp + c.RampDown + c.Pause
}

// Play runs the animation on m until ctx is done or Cycles complete.
//
// Each cycle sets brightness to minimum, loads an all-on frame, raises
// brightness one step per frame until the ramp-up window ends, lowers it
// until the ramp-down window ends, clears the matrix and pauses.
func (c Choreography) Play(ctx context.Context, m Matrix) error {
	full := FullFrame()
	frame := c.FrameDuration
	if frame <= 0 {
		frame = DefaultChoreography().FrameDuration
	}

	for cycle := 0; c.Cycles == 0 || cycle < c.Cycles; cycle++ {
		m.SetBrightness(MinBrightness)
		m.Apply(full)

		end := time.Now().Add(c.RampUp)
		for time.Now().Before(end) {
			m.IncreaseBrightness()
			if err := m.Display(ctx, full, frame); err != nil {
				m.Clear()
				return err
			}
		}

		end = time.Now().Add(c.RampDown)
		for time.Now().Before(end) {
			m.DecreaseBrightness()
			if err := m.Display(ctx, full, frame); err != nil {
				m.Clear()
				return err
			}
		}
		m.Clear()

		if err := sleep(ctx, c.Pause); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
