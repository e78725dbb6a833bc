// Package interactive provides the interactive command-line interface
// for meshnode.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/meshnode/meshnode-go/pkg/cadence"
	"github.com/meshnode/meshnode-go/pkg/convert"
	"github.com/meshnode/meshnode-go/pkg/device"
	"github.com/meshnode/meshnode-go/pkg/log"
	"github.com/meshnode/meshnode-go/pkg/models/onoff"
	"github.com/meshnode/meshnode-go/pkg/sensing"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Target receives the envelopes the console injects. *device.Router
// implements it.
type Target interface {
	Deliver(ctx context.Context, raw wire.RawMessage) error
	DeliverControl(ctx context.Context, env device.ControlEnvelope) error
}

// Config describes the node the console drives.
type Config struct {
	// Address is stamped on generated commands. Nil leaves them unaddressed.
	Address *uint16

	// DisplayLocation is the default target of on and off.
	DisplayLocation uint16

	// SensorLocation is the default target of cadence.
	SensorLocation uint16

	// Thermometer is adjusted by temp. Nil disables the command.
	Thermometer *sensing.SimulatedThermometer

	// Status prints a node summary.
	Status func(w io.Writer)

	// Recent holds the latest protocol events. Nil disables the events command.
	Recent *log.Recorder
}

// Console handles interactive mode for meshnode.
type Console struct {
	target Target
	config Config
	rl     *readline.Instance
	out    io.Writer

	tid uint8
}

// NewReadline creates the line editor used by the console. It is created
// before the node so that logs can be routed through Stdout.
func NewReadline() (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "meshnode> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

// New creates a console reading from rl.
func New(rl *readline.Instance, target Target, config Config) *Console {
	c := newConsole(rl.Stdout(), target, config)
	c.rl = rl
	return c
}

func newConsole(out io.Writer, target Target, config Config) *Console {
	return &Console{target: target, config: config, out: out}
}

// Run starts the interactive command loop. It calls cancel when the user
// quits or input ends.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	stop := context.AfterFunc(ctx, func() { c.rl.Close() })
	defer stop()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if ctx.Err() == nil {
				fmt.Fprintln(c.out, "Exiting...")
				cancel()
			}
			return
		}

		if quit := c.Execute(ctx, line); quit {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the user asked to quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "on":
		c.cmdOnOff(ctx, true, args)

	case "off":
		c.cmdOnOff(ctx, false, args)

	case "cadence", "c":
		c.cmdCadence(ctx, args)

	case "send":
		c.cmdSend(ctx, strings.TrimSpace(input[len(parts[0]):]))

	case "temp", "t":
		c.cmdTemp(args)

	case "status", "s":
		if c.config.Status != nil {
			c.config.Status(c.out)
		}

	case "events", "e":
		c.cmdEvents()

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Commands:
  on [location]              Send a Generic OnOff Set (on) to the display
  off [location]             Send a Generic OnOff Set (off) to the display
  cadence <mode> [location]  Change publication cadence (none, onchange, 1s, periodic:5s)
  send <json>                Deliver a display command or a raw envelope
                               {"address":2,"display":{"on":true,"location":0}}
                               {"location":0,"opcode":[130,2],"parameters":[1,0]}
  temp <celsius>             Set the simulated thermometer
  status                     Show node status
  events                     Show recent protocol events
  help                       Show this help
  quit                       Exit`)
}

func (c *Console) cmdOnOff(ctx context.Context, on bool, args []string) {
	location := c.config.DisplayLocation
	if len(args) > 0 {
		loc, err := parseLocation(args[0])
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		location = loc
	}

	raw, err := wire.EncodeRaw(onoff.NewSet(on, c.nextTID()), location, c.config.Address)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.deliver(ctx, raw)
}

func (c *Console) cmdCadence(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "Usage: cadence <mode> [location]")
		fmt.Fprintln(c.out, "  Example: cadence periodic:1s")
		return
	}
	mode, err := cadence.ParseMode(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	location := c.config.SensorLocation
	if len(args) > 1 {
		loc, err := parseLocation(args[1])
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		location = loc
	}

	if err := c.target.DeliverControl(ctx, device.CadenceEnvelope(location, mode)); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Cadence of location %d set to %s\n", location, mode)
}

func (c *Console) cmdSend(ctx context.Context, doc string) {
	if doc == "" {
		fmt.Fprintln(c.out, "Usage: send <json>")
		return
	}

	raw, err := convert.Command([]byte(doc))
	if errors.Is(err, convert.ErrNotCommand) {
		raw = wire.RawMessage{}
		if err := json.Unmarshal([]byte(doc), &raw); err != nil {
			fmt.Fprintf(c.out, "Error: not a display command or envelope: %v\n", err)
			return
		}
		if len(raw.Opcode) == 0 {
			fmt.Fprintln(c.out, "Error: envelope has no opcode")
			return
		}
	} else if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.deliver(ctx, raw)
}

func (c *Console) cmdTemp(args []string) {
	if c.config.Thermometer == nil {
		fmt.Fprintln(c.out, "No simulated thermometer")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: temp <celsius>")
		return
	}
	celsius, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid temperature: %s\n", args[0])
		return
	}
	c.config.Thermometer.Set(celsius)
	fmt.Fprintf(c.out, "Simulated temperature set to %.1f C\n", celsius)
}

func (c *Console) cmdEvents() {
	if c.config.Recent == nil {
		fmt.Fprintln(c.out, "Protocol events are not recorded")
		return
	}
	events := c.config.Recent.Events()
	if len(events) == 0 {
		fmt.Fprintln(c.out, "No events yet")
		return
	}
	for _, e := range events {
		fmt.Fprintf(c.out, "%s %-3s %-9s @%d %s\n",
			e.Timestamp.Format("15:04:05.000"), e.Direction, e.Layer, e.Location, describe(e))
	}
}

// describe summarizes what an event carries.
func describe(e log.Event) string {
	switch {
	case e.Message != nil:
		if e.Message.Name != "" {
			return e.Message.Name
		}
		return fmt.Sprintf("opcode %X", e.Message.Opcode)
	case e.Control != nil:
		return fmt.Sprintf("%s %s", e.Control.Type, e.Control.Cadence)
	case e.StateChange != nil:
		return fmt.Sprintf("%s %s -> %s", e.StateChange.Entity, e.StateChange.OldState, e.StateChange.NewState)
	case e.Error != nil:
		return "error: " + e.Error.Message
	case e.Frame != nil:
		return fmt.Sprintf("frame %d bytes", e.Frame.Size)
	default:
		return "-"
	}
}

func (c *Console) deliver(ctx context.Context, raw wire.RawMessage) {
	if err := c.target.Deliver(ctx, raw); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Delivered %X to location %d\n", []byte(raw.Opcode), raw.Location)
}

func (c *Console) nextTID() uint8 {
	tid := c.tid
	c.tid++
	return tid
}

func parseLocation(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid location: %s", s)
	}
	return uint16(v), nil
}

// Compile-time interface satisfaction check.
var _ Target = (*device.Router)(nil)
