package cadence

import (
	"io"
	"log/slog"
	"time"
)

// Phase is the observable state of a State.
type Phase uint8

const (
	PhaseDisabled Phase = iota
	PhaseOnChange
	PhasePeriodic
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseDisabled:
		return "DISABLED"
	case PhaseOnChange:
		return "ON_CHANGE"
	case PhasePeriodic:
		return "PERIODIC"
	default:
		return "UNKNOWN"
	}
}

// State holds the current cadence of one model and its ticker.
type State struct {
	mode   Mode
	phase  Phase
	ticker *time.Ticker
	logger *slog.Logger
}

// NewState returns a disabled state. A nil logger disables logging.
func NewState(logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &State{mode: None(), logger: logger}
}

// Apply switches to mode. Any existing ticker is stopped first.
func (s *State) Apply(mode Mode) {
	s.stopTicker()
	s.mode = mode

	switch mode.Kind {
	case KindPeriodic:
		if mode.Period <= 0 {
			s.logger.Warn("ignoring periodic cadence with non-positive period",
				"period", mode.Period)
			s.mode = None()
			s.phase = PhaseDisabled
			return
		}
		s.ticker = time.NewTicker(mode.Period)
		s.phase = PhasePeriodic
	case KindOnChange:
		s.phase = PhaseOnChange
	default:
		s.phase = PhaseDisabled
	}

	s.logger.Debug("cadence applied", "mode", mode.String(), "phase", s.phase.String())
}

// C returns the tick channel, or nil when no ticker is armed.
// Receiving from a nil channel blocks forever.
func (s *State) C() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.C
}

// Armed reports whether a ticker is active.
func (s *State) Armed() bool {
	return s.ticker != nil
}

// Mode returns the mode in effect.
func (s *State) Mode() Mode {
	return s.mode
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	return s.phase
}

// Stop releases the ticker and returns to the disabled phase.
func (s *State) Stop() {
	s.stopTicker()
	s.mode = None()
	s.phase = PhaseDisabled
}

func (s *State) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}
