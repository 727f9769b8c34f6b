package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"gopkg.in/yaml.v3"

	"github.com/Qian-MoBai/systemd-web/internal/validate"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

var allowedOutputFormats = []string{OutputText, OutputJSON, OutputYAML}

// PrintOutput writes data to w in the structured format. Text output is
// rendered by the caller.
func PrintOutput(w io.Writer, format string, data interface{}) error {
	switch strings.ToLower(format) {
	case OutputJSON:
		return printJSON(w, data)
	case OutputYAML, "yml":
		return printYAML(w, data)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer func() {
		_ = encoder.Close()
	}()
	return encoder.Encode(data)
}

func validateOutputFormat(format string) error {
	for _, allowed := range allowedOutputFormats {
		if strings.EqualFold(format, allowed) {
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s, allowed formats are: %v", format, allowedOutputFormats)
}

// newTable creates a table with the CLI's header and first-column colors.
func newTable(w io.Writer, columns ...interface{}) table.Table {
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	return table.New(columns...).
		WithWriter(w).
		WithHeaderFormatter(headerFmt).
		WithFirstColumnFormatter(columnFmt)
}

// stateColor highlights a unit's active state.
func stateColor(state string) string {
	switch state {
	case "active":
		return color.GreenString(state)
	case "failed":
		return color.RedString(state)
	case "activating", "deactivating", "reloading":
		return color.YellowString(state)
	default:
		return state
	}
}

// OperationResult represents the result of a unit operation in structured output.
type OperationResult struct {
	Success   bool   `json:"success" yaml:"success"`
	Operation string `json:"operation" yaml:"operation"`
	Level     string `json:"level" yaml:"level"`
	UnitName  string `json:"unitName" yaml:"unitName"`
}

// CheckResult represents the result of checking one unit file.
type CheckResult struct {
	File              string               `json:"file" yaml:"file"`
	Valid             bool                 `json:"valid" yaml:"valid"`
	Problems          []string             `json:"problems,omitempty" yaml:"problems,omitempty"`
	MissingDirectives []string             `json:"missingDirectives,omitempty" yaml:"missingDirectives,omitempty"`
	DisallowedTargets []string             `json:"disallowedTargets,omitempty" yaml:"disallowedTargets,omitempty"`
	Violations        []validate.Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}
