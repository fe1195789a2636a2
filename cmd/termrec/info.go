package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/choonkeat/termrec/recording"
)

func newInfoCmd() *cobra.Command {
	var showFrames bool

	cmd := &cobra.Command{
		Use:   "info <recording.json>",
		Short: "Summarize a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := recording.ReadFile(args[0])
			if err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), session)
			if showFrames {
				out := cmd.OutOrStdout()
				writeFrames(out, session.Frames, isTerminal(out))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showFrames, "frames", "f", false, "list every frame")
	return cmd
}

// frameStats counts frames and text per direction.
type frameStats struct {
	frames int
	chars  int
}

func writeSummary(w io.Writer, s *recording.Session) {
	var stats [2]frameStats
	for _, f := range s.Frames {
		if f.Direction != recording.In && f.Direction != recording.Out {
			continue
		}
		stats[f.Direction].frames++
		stats[f.Direction].chars += len([]rune(f.Text))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Command:\t%s\n", describeCommand(s.Command))
	fmt.Fprintf(tw, "Started:\t%s\n", s.StartTime.Format(time.RFC3339))
	fmt.Fprintf(tw, "Duration:\t%s\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(tw, "Size:\t%dx%d\n", s.Size.Cols, s.Size.Rows)
	fmt.Fprintf(tw, "Frames:\t%d (%d in, %d out)\n", len(s.Frames), stats[recording.In].frames, stats[recording.Out].frames)
	fmt.Fprintf(tw, "Characters:\t%d in, %d out\n", stats[recording.In].chars, stats[recording.Out].chars)
	tw.Flush()
}

func writeFrames(w io.Writer, frames []recording.Frame, color bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nOFFSET\tDIR\tTEXT")
	var offset int64
	for _, f := range frames {
		offset += f.Delta
		fmt.Fprintf(tw, "%s\t%s\t%s\n", time.Duration(offset)*time.Millisecond, directionLabel(f.Direction, color), truncate(fmt.Sprintf("%q", f.Text), 60))
	}
	tw.Flush()
}

func describeCommand(c recording.Command) string {
	switch c := c.(type) {
	case recording.ShellCommand:
		return fmt.Sprintf("%q (shell)", string(c))
	case recording.Argv:
		return strings.Join(c, " ")
	default:
		return "?"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
