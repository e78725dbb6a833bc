package cadence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownKind is returned when parsing an unrecognized cadence kind.
var ErrUnknownKind = errors.New("unknown cadence kind")

// Kind identifies a cadence mode.
type Kind uint8

const (
	// KindNone disables unsolicited publication.
	KindNone Kind = iota

	// KindOnChange publishes when the value changes.
	KindOnChange

	// KindPeriodic publishes on a fixed period.
	KindPeriodic
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindOnChange:
		return "onchange"
	case KindPeriodic:
		return "periodic"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindNone, KindOnChange, KindPeriodic:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "none", "":
		*k = KindNone
	case "onchange", "on_change", "on-change":
		*k = KindOnChange
	case "periodic":
		*k = KindPeriodic
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, text)
	}
	return nil
}

// Mode is a publication cadence.
type Mode struct {
	Kind   Kind          `json:"kind" yaml:"kind" cbor:"1,keyasint"`
	Period time.Duration `json:"period,omitempty" yaml:"period,omitempty" cbor:"2,keyasint,omitempty"`
}

// Periodic returns a mode publishing every d.
func Periodic(d time.Duration) Mode {
	return Mode{Kind: KindPeriodic, Period: d}
}

// OnChange returns the on-change mode.
func OnChange() Mode {
	return Mode{Kind: KindOnChange}
}

// None returns the disabled mode.
func None() Mode {
	return Mode{Kind: KindNone}
}

// String formats the mode, e.g. "periodic(1s)".
func (m Mode) String() string {
	if m.Kind == KindPeriodic {
		return fmt.Sprintf("periodic(%s)", m.Period)
	}
	return m.Kind.String()
}

// ParseMode parses "none", "onchange", "periodic:<duration>" or a bare
// duration such as "1s", which means periodic.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if kind, period, ok := strings.Cut(s, ":"); ok {
		var k Kind
		if err := k.UnmarshalText([]byte(kind)); err != nil {
			return Mode{}, err
		}
		if k != KindPeriodic {
			return Mode{}, fmt.Errorf("%w: %s takes no period", ErrUnknownKind, k)
		}
		d, err := time.ParseDuration(strings.TrimSpace(period))
		if err != nil {
			return Mode{}, fmt.Errorf("cadence period: %w", err)
		}
		return Periodic(d), nil
	}

	var k Kind
	if err := k.UnmarshalText([]byte(s)); err == nil {
		if k == KindPeriodic {
			return Mode{}, fmt.Errorf("periodic cadence needs a period")
		}
		return Mode{Kind: k}, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return Mode{}, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return Periodic(d), nil
}
