package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Qian-MoBai/systemd-web/internal/validate"
)

// CheckCommand represents the check command.
type CheckCommand struct{}

// NewCheckCommand creates a new CheckCommand.
func NewCheckCommand() *CheckCommand {
	return &CheckCommand{}
}

// GetCobraCommand returns the cobra command for checking unit files offline.
func (c *CheckCommand) GetCobraCommand() *cobra.Command {
	var output string

	checkCmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Check unit files the way uploads are checked",
		Long: `Check unit files the way uploads are checked.

Each file must carry the required directives, name only allowed WantedBy=
targets and match none of the destructive command rules. The file name must
be an acceptable unit name.`,
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{annotationStandalone: "true"},
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateOutputFormat(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.OutOrStdout(), args, output)
		},
		SilenceUsage: true,
	}

	checkCmd.Flags().StringVarP(&output, "output", "o", OutputText, "Output format (text, json, yaml)")
	return checkCmd
}

// Run checks every path and fails when any of them is rejected.
func (c *CheckCommand) Run(w io.Writer, paths []string, output string) error {
	results := make([]CheckResult, 0, len(paths))
	invalid := 0
	for _, p := range paths {
		result, err := checkFile(p)
		if err != nil {
			return err
		}
		if !result.Valid {
			invalid++
		}
		results = append(results, result)
	}

	if !strings.EqualFold(output, OutputText) {
		if err := PrintOutput(w, output, results); err != nil {
			return err
		}
	} else {
		printCheckResults(w, results)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d unit files rejected", invalid, len(paths))
	}
	return nil
}

func checkFile(path string) (CheckResult, error) {
	content, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	result := CheckResult{File: path, Valid: true}

	if err := validate.UnitName(filepath.Base(path)); err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, err.Error())
	}

	if err := validate.ValidateServiceFile(string(content)); err != nil {
		result.Valid = false
		report, ok := validate.ContentProblems(err)
		if !ok {
			return CheckResult{}, err
		}
		result.MissingDirectives = report.MissingDirectives
		result.DisallowedTargets = report.DisallowedTargets
		if report.ParseError != "" {
			result.Problems = append(result.Problems, "unit file does not parse: "+report.ParseError)
		}
		if report.NoWantedBy {
			result.Problems = append(result.Problems, "[Install] has no WantedBy= target")
		}
		result.Violations = report.Violations
	}

	return result, nil
}

func printCheckResults(w io.Writer, results []CheckResult) {
	tbl := newTable(w, "File", "Line", "Problem")
	for _, r := range results {
		if r.Valid {
			tbl.AddRow(r.File, "-", "ok")
			continue
		}
		for _, p := range r.Problems {
			tbl.AddRow(r.File, "-", p)
		}
		if len(r.MissingDirectives) > 0 {
			tbl.AddRow(r.File, "-", "missing "+strings.Join(r.MissingDirectives, ", "))
		}
		if len(r.DisallowedTargets) > 0 {
			tbl.AddRow(r.File, "-", "target not allowed: "+strings.Join(r.DisallowedTargets, ", "))
		}
		for _, v := range r.Violations {
			tbl.AddRow(r.File, v.Line, v.RuleID+": "+v.Description)
		}
	}
	tbl.Print()
}
