package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/latch/internal/scenario"
)

// ValidationIssue is one failed scenario file.
type ValidationIssue struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the scenario schema without running them.

Each file is checked against the CUE schema (surface ids, step shapes,
expectation structure) and the stricter structural rules the runner
enforces, such as every step carrying exactly one action.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var issues []ValidationIssue
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		_, err := scenario.Load(path)
		if err == nil {
			continue
		}
		// A missing file is a command error, not a schema failure.
		if errors.Is(err, fs.ErrNotExist) {
			_ = formatter.Error("E404", fmt.Sprintf("scenario file not found: %s", path), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario file not found: %s", path))
		}
		issues = append(issues, ValidationIssue{File: path, Message: err.Error()})
	}

	result := ValidationResult{
		Valid:  len(issues) == 0,
		Files:  len(paths),
		Issues: issues,
	}

	if result.Valid {
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "✓ %d scenario(s) valid\n", result.Files)
		return nil
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    "E100",
				Message: issues[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, issue := range issues {
			fmt.Fprintf(formatter.Writer, "  %s\n    %s\n\n", issue.File, issue.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", len(issues)))
}
