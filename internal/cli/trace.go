package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/latch/internal/journal"
	"github.com/roach88/latch/internal/scenario"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Kind     string // optional - filter the timeline to one event kind
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	Token     string `json:"token"`
	Scenario  string `json:"scenario"`
	Threshold uint32 `json:"threshold"`
	CreatedAt string `json:"created_at"`
}

// SessionTrace holds one journaled session's full timeline.
type SessionTrace struct {
	Token     string                `json:"token"`
	Scenario  string                `json:"scenario"`
	Threshold uint32                `json:"threshold"`
	Timeline  []scenario.TraceEvent `json:"timeline"`
	Late      []string              `json:"late,omitempty"`
	Stats     TraceStats            `json:"stats"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	TotalEvents  int `json:"total_events"`
	Submissions  int `json:"submissions"`
	Activations  int `json:"activations"`
	ForcedLate   int `json:"forced_late"`
	TicksElapsed int `json:"ticks_elapsed"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect journaled scenario runs",
		Long: `Inspect scenario runs persisted in a journal.

Without --session, lists all journaled sessions in chronological order.
With --session, prints that session's full timeline: submissions, the
dependencies each frame blocked on, ticks, and activations with their
forced/late status.

Examples:
  latch trace --db ./latch.db
  latch trace --db ./latch.db --session 01912f7c-...
  latch trace --db ./latch.db --session 01912f7c-... --kind activate --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to inspect")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter timeline to one event kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	if opts.Session == "" {
		return listSessions(ctx, j, opts, cmd)
	}
	return showSession(ctx, j, opts, cmd)
}

func listSessions(ctx context.Context, j *journal.Journal, opts *TraceOptions, cmd *cobra.Command) error {
	sessions, err := j.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = SessionSummary{
			Token:     s.Token,
			Scenario:  s.Scenario,
			Threshold: s.Threshold,
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, summaries)
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions in journal.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-24s threshold=%d  %s\n", s.Token, s.Scenario, s.Threshold, s.CreatedAt)
	}
	return nil
}

func showSession(ctx context.Context, j *journal.Journal, opts *TraceOptions, cmd *cobra.Command) error {
	session, err := j.GetSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to get session", err)
	}

	events, err := j.SessionEvents(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session events", err)
	}

	late, err := j.LateEntities(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read late entities", err)
	}

	result := SessionTrace{
		Token:     session.Token,
		Scenario:  session.Scenario,
		Threshold: session.Threshold,
		Timeline:  buildTimeline(events, opts.Kind),
		Late:      late,
		Stats:     buildStats(events),
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result)
}

// buildTimeline converts journal events to trace events. When
// kindFilter is set, only events of that kind are included.
func buildTimeline(events []journal.Event, kindFilter string) []scenario.TraceEvent {
	timeline := []scenario.TraceEvent{}
	for _, e := range events {
		if kindFilter != "" && e.Kind != kindFilter {
			continue
		}
		timeline = append(timeline, scenario.TraceEvent{
			Seq:          e.Seq,
			Kind:         e.Kind,
			Surface:      e.Entity,
			Dependency:   e.Dependency,
			TickSource:   e.TickSource,
			TickSequence: e.TickSequence,
			Forced:       e.Forced,
			Late:         e.Late,
		})
	}
	return timeline
}

// buildStats summarizes the unfiltered event list.
func buildStats(events []journal.Event) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, e := range events {
		switch e.Kind {
		case journal.KindSubmit:
			stats.Submissions++
		case journal.KindActivate:
			stats.Activations++
			if e.Late {
				stats.ForcedLate++
			}
		case journal.KindTick:
			stats.TicksElapsed++
		}
	}
	return stats
}

// outputTraceJSON outputs a trace payload as JSON.
func outputTraceJSON(cmd *cobra.Command, data interface{}) error {
	response := CLIResponse{
		Status: "ok",
		Data:   data,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs a session trace as text.
func outputTraceText(w io.Writer, result SessionTrace) error {
	fmt.Fprintf(w, "Session: %s\n", result.Token)
	fmt.Fprintf(w, "Scenario: %s (threshold %d)\n", result.Scenario, result.Threshold)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, e := range result.Timeline {
		fmt.Fprintln(w, "  "+formatTraceEvent(e))
	}
	fmt.Fprintln(w)

	if len(result.Late) > 0 {
		fmt.Fprintf(w, "Late: %s\n", strings.Join(result.Late, ", "))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Submissions:  %d\n", result.Stats.Submissions)
	fmt.Fprintf(w, "  Activations:  %d\n", result.Stats.Activations)
	fmt.Fprintf(w, "  Forced Late:  %d\n", result.Stats.ForcedLate)
	fmt.Fprintf(w, "  Ticks:        %d\n", result.Stats.TicksElapsed)

	return nil
}
