package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/meshnode/meshnode-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Messages          map[string]int
	Nodes             map[string]*NodeStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// NodeStats holds statistics for a single node.
type NodeStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Locations map[uint16]int
}

// StatsCmd summarizes a log file.
type StatsCmd struct {
	flags Flags
}

// NewStatsCmd creates a new stats command.
func NewStatsCmd() *StatsCmd {
	return &StatsCmd{}
}

// Register adds the stats command to the application.
func (cmd *StatsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "stats",
		Usage:     "Show statistics about a log file",
		UsageText: "meshlog stats [filter flags] <file.mlog>",
		Flags:     filterFlags(&cmd.flags),
		Action:    cmd.run,
	})
	return app
}

func (cmd *StatsCmd) run(_ context.Context, c *cli.Command) error {
	path, err := logPath(c)
	if err != nil {
		return err
	}
	filter, err := cmd.flags.Filter()
	if err != nil {
		return err
	}
	return RunStats(path, filter, c.Root().Writer)
}

// RunStats analyzes the events matching filter and prints statistics.
func RunStats(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Messages:          make(map[string]int),
		Nodes:             make(map[string]*NodeStats),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	node, ok := s.Nodes[event.NodeID]
	if !ok {
		node = &NodeStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
			Locations: make(map[uint16]int),
		}
		s.Nodes[event.NodeID] = node
	}
	node.Events++
	node.Locations[event.Location]++
	if event.Timestamp.After(node.LastSeen) {
		node.LastSeen = event.Timestamp
	}

	if event.Message != nil {
		name := event.Message.Name
		if name == "" {
			name = "(unrecognized)"
		}
		s.Messages[name]++
	}
	if event.Error != nil {
		s.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Mesh Node Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerModel} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Messages) > 0 {
		fmt.Fprintln(w, "Messages:")
		names := make([]string, 0, len(stats.Messages))
		for name := range stats.Messages {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-28s %d\n", name+":", stats.Messages[name])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Nodes: %d\n", len(stats.Nodes))
	if len(stats.Nodes) > 0 {
		type nodeInfo struct {
			id    string
			stats *NodeStats
		}
		nodes := make([]nodeInfo, 0, len(stats.Nodes))
		for id, ns := range stats.Nodes {
			nodes = append(nodes, nodeInfo{id, ns})
		}
		sort.Slice(nodes, func(i, j int) bool {
			return nodes[i].stats.FirstSeen.Before(nodes[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, n := range nodes {
			duration := n.stats.LastSeen.Sub(n.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenNodeID(n.id), n.stats.Events, duration)

			locs := make([]uint16, 0, len(n.stats.Locations))
			for loc := range n.stats.Locations {
				locs = append(locs, loc)
			}
			slices.Sort(locs)
			for _, loc := range locs {
				fmt.Fprintf(w, "           Location %d: %d events\n", loc, n.stats.Locations[loc])
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
