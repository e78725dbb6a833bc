package commands

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/meshnode/meshnode-go/pkg/convert"
	"github.com/meshnode/meshnode-go/pkg/log"
)

// ExportCmd converts a log file to JSON Lines or CSV.
type ExportCmd struct {
	flags  Flags
	format string
	output string
}

// NewExportCmd creates a new export command.
func NewExportCmd() *ExportCmd {
	return &ExportCmd{}
}

// Register adds the export command to the application.
func (cmd *ExportCmd) Register(app *cli.Command) *cli.Command {
	flags := append(filterFlags(&cmd.flags),
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "output format (jsonl, csv)",
			Value:       "jsonl",
			Destination: &cmd.format,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "output file (default stdout)",
			Destination: &cmd.output,
		},
	)

	app.Commands = append(app.Commands, &cli.Command{
		Name:        "export",
		Usage:       "Export a log file to JSON Lines or CSV",
		UsageText:   "meshlog export [--format jsonl|csv] [-o file] [filter flags] <file.mlog>",
		Description: "Message events carrying a known model message also get the decoded telemetry document.",
		Flags:       flags,
		Action:      cmd.run,
	})
	return app
}

func (cmd *ExportCmd) run(_ context.Context, c *cli.Command) error {
	path, err := logPath(c)
	if err != nil {
		return err
	}
	filter, err := cmd.flags.Filter()
	if err != nil {
		return err
	}

	w := c.Root().Writer
	if cmd.output != "" {
		f, err := os.Create(cmd.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return RunExport(path, filter, cmd.format, w)
}

// exportRecord is one JSON Lines record.
type exportRecord struct {
	log.Event
	Telemetry *convert.State `json:"Telemetry,omitempty"`
}

// RunExport writes the events matching filter to w in the given format.
func RunExport(path string, filter log.Filter, format string, w io.Writer) error {
	var write func(*log.Reader, io.Writer) error
	switch format {
	case "jsonl":
		write = exportJSONL
	case "csv":
		write = exportCSV
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	return write(reader, w)
}

// telemetry decodes the state update carried by a message event, if any.
func telemetry(event log.Event) (convert.State, bool) {
	if event.Message == nil {
		return convert.State{}, false
	}
	return convert.Telemetry(rawMessage(event))
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		rec := exportRecord{Event: event}
		if state, ok := telemetry(event); ok {
			rec.Telemetry = &state
		}
		if err := encoder.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"timestamp", "node_id", "direction", "layer", "category", "location", "address", "type", "telemetry"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		address := ""
		if event.Address != nil {
			address = strconv.Itoa(int(*event.Address))
		}
		tele := ""
		if state, ok := telemetry(event); ok {
			if data, err := json.Marshal(state); err == nil {
				tele = string(data)
			}
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.NodeID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			strconv.Itoa(int(event.Location)),
			address,
			eventType(event),
			tele,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
