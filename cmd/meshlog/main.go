// Command meshlog views and analyzes protocol log files written by meshnode
// with the -protocol-log flag.
//
// Usage:
//
//	meshlog <command> [flags] <file.mlog>
//
// Examples:
//
//	# View all events
//	meshlog view node.mlog
//
//	# View only wire-layer events for the sensor element
//	meshlog view --layer wire --location 1 node.mlog
//
//	# Export to CSV with decoded telemetry
//	meshlog export --format csv -o node.csv node.mlog
//
//	# Keep only errors in a new file
//	meshlog filter --category error -o errors.mlog node.mlog
//
//	# Show statistics
//	meshlog stats node.mlog
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/meshnode/meshnode-go/cmd/meshlog/commands"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}
	return fmt.Sprintf("%s (%s)", version, short)
}

func newApp() *cli.Command {
	app := &cli.Command{
		Name:      "meshlog",
		Usage:     "Mesh node protocol log analyzer",
		UsageText: "meshlog <command> [flags] <file.mlog>",
		Version:   build(),
	}

	app = commands.NewViewCmd().Register(app)
	app = commands.NewStatsCmd().Register(app)
	app = commands.NewExportCmd().Register(app)
	app = commands.NewFilterCmd().Register(app)
	return app
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
