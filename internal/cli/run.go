package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/latch/internal/config"
	"github.com/roach88/latch/internal/journal"
	"github.com/roach88/latch/internal/scenario"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string

	// TokenGenerator allows overriding the session token generator (for
	// testing). If nil, defaults to journal.NewSessionToken.
	TokenGenerator func() string
}

// RunReport is the run command's output payload.
type RunReport struct {
	Scenario    string                `json:"scenario"`
	Pass        bool                  `json:"pass"`
	Session     string                `json:"session,omitempty"`
	Activations []scenario.Activation `json:"activations"`
	Late        []string              `json:"late,omitempty"`
	Idle        bool                  `json:"idle"`
	Errors      []string              `json:"errors,omitempty"`
	Trace       []scenario.TraceEvent `json:"trace"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and report its trace",
		Long: `Run a dependency-tracking scenario and report its trace.

The scenario's steps drive a compositor through frame submissions,
ticks, pauses and discards. The resulting trace and activations are
printed, and the scenario's expectations (if any) decide the exit code.

When a journal is configured (--db or the config file's journal field),
the trace is persisted under a fresh session token for later inspection
with the trace command.

Example:
  latch run scenario.yaml
  latch run --db ./latch.db scenario.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (overrides config)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		cfg, err = config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, opts.Verbose)

	s, err := scenario.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	// The scenario's own threshold wins; the config only supplies a
	// default for scenarios that leave it unset.
	if s.Threshold == 0 && cfg.DeadlineThreshold > 0 {
		s.Threshold = cfg.DeadlineThreshold
	}

	result, err := scenario.Run(s, scenario.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario run failed", err)
	}

	report := RunReport{
		Scenario:    s.Name,
		Pass:        result.Pass,
		Activations: result.Activations,
		Late:        result.Late,
		Idle:        result.Idle,
		Errors:      result.Errors,
		Trace:       result.Trace,
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Journal
	}
	if dbPath != "" {
		token, err := recordRun(cmd.Context(), dbPath, opts.TokenGenerator, s, result)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to journal run", err)
		}
		report.Session = token
		logger.Info("run journaled", "db", dbPath, "session", token)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		printRunReport(formatter.Writer, report)
	}

	if !result.Pass {
		return NewExitError(ExitFailure,
			fmt.Sprintf("scenario %q failed with %d error(s)", s.Name, len(result.Errors)))
	}
	return nil
}

func recordRun(
	ctx context.Context,
	dbPath string,
	gen func() string,
	s *scenario.Scenario,
	result *scenario.Result,
) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	j, err := journal.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer j.Close()

	if gen == nil {
		gen = journal.NewSessionToken
	}
	token := gen()
	if err := scenario.Record(ctx, j, token, s, result); err != nil {
		return "", err
	}
	return token, nil
}

func printRunReport(w io.Writer, report RunReport) {
	fmt.Fprintf(w, "Scenario: %s\n\n", report.Scenario)

	fmt.Fprintln(w, "=== Trace ===")
	for _, e := range report.Trace {
		fmt.Fprintln(w, "  "+formatTraceEvent(e))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Activations ===")
	if len(report.Activations) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, a := range report.Activations {
		if a.Forced {
			fmt.Fprintf(w, "  %s (forced)\n", a.Surface)
		} else {
			fmt.Fprintf(w, "  %s\n", a.Surface)
		}
	}
	if len(report.Late) > 0 {
		fmt.Fprintf(w, "  late: %s\n", strings.Join(report.Late, ", "))
	}
	fmt.Fprintln(w)

	if report.Pass {
		fmt.Fprintln(w, "PASS")
	} else {
		fmt.Fprintln(w, "FAIL")
		for _, msg := range report.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
	if report.Session != "" {
		fmt.Fprintf(w, "Session: %s\n", report.Session)
	}
}

// formatTraceEvent renders one trace event for text output.
func formatTraceEvent(e scenario.TraceEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", e.Seq, strings.ToUpper(e.Kind))
	if e.Surface != "" {
		fmt.Fprintf(&b, " %s", e.Surface)
	}
	if e.Dependency != "" {
		fmt.Fprintf(&b, " waiting-on %s", e.Dependency)
	}
	if e.TickSource != 0 || e.TickSequence != 0 {
		fmt.Fprintf(&b, " %d#%d", e.TickSource, e.TickSequence)
	}
	if e.Forced {
		b.WriteString(" forced")
	}
	return b.String()
}

// newLogger builds the slog logger used by run. Verbose always wins
// over the configured level.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
