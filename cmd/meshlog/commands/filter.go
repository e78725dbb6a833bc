package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/meshnode/meshnode-go/pkg/log"
)

// FilterCmd copies matching events into a new log file.
type FilterCmd struct {
	flags  Flags
	output string
}

// NewFilterCmd creates a new filter command.
func NewFilterCmd() *FilterCmd {
	return &FilterCmd{}
}

// Register adds the filter command to the application.
func (cmd *FilterCmd) Register(app *cli.Command) *cli.Command {
	flags := append(filterFlags(&cmd.flags),
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "output log file",
			Required:    true,
			Destination: &cmd.output,
		},
	)

	app.Commands = append(app.Commands, &cli.Command{
		Name:      "filter",
		Usage:     "Filter a log file and write the result to a new file",
		UsageText: "meshlog filter -o out.mlog [filter flags] <file.mlog>",
		Flags:     flags,
		Action:    cmd.run,
	})
	return app
}

func (cmd *FilterCmd) run(_ context.Context, c *cli.Command) error {
	path, err := logPath(c)
	if err != nil {
		return err
	}
	filter, err := cmd.flags.Filter()
	if err != nil {
		return err
	}
	count, err := RunFilter(path, filter, cmd.output)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Root().Writer, "Filtered %d events to %s\n", count, cmd.output)
	return nil
}

// RunFilter writes the events of path matching filter to output and
// returns how many were written.
func RunFilter(path string, filter log.Filter, output string) (int, error) {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			written, _ := logger.Written()
			return written, fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
	}

	written, failed := logger.Written()
	if failed > 0 {
		return written, fmt.Errorf("failed to encode %d events", failed)
	}
	return written, nil
}
