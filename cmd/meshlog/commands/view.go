package commands

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/meshnode/meshnode-go/pkg/convert"
	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// ViewCmd prints events in human-readable form.
type ViewCmd struct {
	flags Flags
}

// NewViewCmd creates a new view command.
func NewViewCmd() *ViewCmd {
	return &ViewCmd{}
}

// Register adds the view command to the application.
func (cmd *ViewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "view",
		Usage:     "View a log file in human-readable form",
		UsageText: "meshlog view [--layer L] [--direction D] [--category C] [--node ID] [--location N] <file.mlog>",
		Flags:     filterFlags(&cmd.flags),
		Action:    cmd.run,
	})
	return app
}

func (cmd *ViewCmd) run(_ context.Context, c *cli.Command) error {
	path, err := logPath(c)
	if err != nil {
		return err
	}
	filter, err := cmd.flags.Filter()
	if err != nil {
		return err
	}
	return RunView(path, filter, c.Root().Writer)
}

// RunView writes every event matching filter to output.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [node:id] DIRECTION LAYER @location Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	layer := event.Layer.String()
	if event.Category == log.CategoryControl {
		layer = "CTRL"
	}

	fmt.Fprintf(w, "%s [node:%s] %-3s %s @%d %s\n",
		ts, shortenNodeID(event.NodeID), event.Direction, layer, event.Location, eventType(event))

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Control != nil:
		if event.Control.Cadence != "" {
			fmt.Fprintf(w, "  Cadence: %s\n", event.Control.Cadence)
		}
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventType labels the payload carried by an event.
func eventType(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		if event.Message.Name != "" {
			return event.Message.Name
		}
		return "Message"
	case event.StateChange != nil:
		return "State"
	case event.Control != nil:
		return event.Control.Type.String()
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenNodeID returns the first 8 characters of the node ID.
func shortenNodeID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessageDetails(w io.Writer, event log.Event) {
	msg := event.Message
	if event.Address != nil {
		fmt.Fprintf(w, "  Address: 0x%04X\n", *event.Address)
	}
	fmt.Fprintf(w, "  Opcode: %s\n", hex.EncodeToString(msg.Opcode))
	if len(msg.Parameters) > 0 {
		fmt.Fprintf(w, "  Parameters: %s\n", hex.EncodeToString(msg.Parameters))
	}
	if state, ok := convert.Telemetry(rawMessage(event)); ok {
		if data, err := json.Marshal(state); err == nil {
			fmt.Fprintf(w, "  Telemetry: %s\n", data)
		}
	}
}

// rawMessage rebuilds the envelope recorded by a message event.
func rawMessage(event log.Event) wire.RawMessage {
	return wire.RawMessage{
		Address:    event.Address,
		Location:   event.Location,
		Opcode:     wire.Bytes(event.Message.Opcode),
		Parameters: wire.Bytes(event.Message.Parameters),
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}
