// Package commands implements the meshlog CLI commands.
package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/meshnode/meshnode-go/pkg/log"
)

// Flags holds the event selection shared by every command.
type Flags struct {
	Layer     string
	Direction string
	Category  string
	NodeID    string
	Location  string
	TimeStart string
	TimeEnd   string
}

// filterFlags returns the CLI flags bound to f.
func filterFlags(f *Flags) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "layer",
			Usage:       "only events of this layer (transport, wire, model)",
			Destination: &f.Layer,
		},
		&cli.StringFlag{
			Name:        "direction",
			Usage:       "only events flowing this way (in, out)",
			Destination: &f.Direction,
		},
		&cli.StringFlag{
			Name:        "category",
			Usage:       "only events of this category (message, control, state, error)",
			Destination: &f.Category,
		},
		&cli.StringFlag{
			Name:        "node",
			Usage:       "only events recorded by this node ID",
			Destination: &f.NodeID,
		},
		&cli.StringFlag{
			Name:        "location",
			Usage:       "only events for this element location",
			Destination: &f.Location,
		},
		&cli.StringFlag{
			Name:        "since",
			Usage:       "only events at or after this RFC 3339 time",
			Destination: &f.TimeStart,
		},
		&cli.StringFlag{
			Name:        "until",
			Usage:       "only events before this RFC 3339 time",
			Destination: &f.TimeEnd,
		},
	}
}

// Filter builds a log filter from the flag values.
func (f *Flags) Filter() (log.Filter, error) {
	filter := log.Filter{NodeID: f.NodeID}

	if f.Layer != "" {
		l, err := ParseLayerFlag(f.Layer)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Layer = &l
	}
	if f.Direction != "" {
		d, err := ParseDirectionFlag(f.Direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}
	if f.Category != "" {
		c, err := ParseCategoryFlag(f.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	if f.Location != "" {
		v, err := strconv.ParseUint(f.Location, 0, 16)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid location: %s", f.Location)
		}
		loc := uint16(v)
		filter.Location = &loc
	}
	if f.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, f.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid since time: %w", err)
		}
		filter.TimeStart = &t
	}
	if f.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, f.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid until time: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// ParseLayerFlag parses a layer name (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "model":
		return log.LayerModel, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or model)", s)
	}
}

// ParseDirectionFlag parses a direction name (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "control":
		return log.CategoryControl, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, control, state, or error)", s)
	}
}

// logPath returns the single positional log file argument.
func logPath(c *cli.Command) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one log file, got %d arguments", c.Args().Len())
	}
	return c.Args().First(), nil
}
