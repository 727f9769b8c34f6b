package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// StatusOptions holds status command options.
type StatusOptions struct {
	Level  string
	Output string
}

// StatusCommand represents the units status command.
type StatusCommand struct{}

// NewStatusCommand creates a new StatusCommand.
func NewStatusCommand() *StatusCommand {
	return &StatusCommand{}
}

// GetCobraCommand returns the cobra command for inspecting a unit.
func (c *StatusCommand) GetCobraCommand() *cobra.Command {
	var opts StatusOptions

	statusCmd := &cobra.Command{
		Use:   "status <unit>",
		Short: "Show the runtime state of a service unit",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateOutputFormat(opts.Output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Level = levelFlag(cmd)
			return c.Run(cmd.Context(), getApp(cmd), cmd.OutOrStdout(), args[0], opts)
		},
		SilenceUsage: true,
	}

	statusCmd.Flags().StringVarP(&opts.Output, "output", "o", OutputText, "Output format (text, json, yaml)")
	return statusCmd
}

// Run prints the status of unitName.
func (c *StatusCommand) Run(ctx context.Context, app *App, w io.Writer, unitName string, opts StatusOptions) error {
	status, err := app.Service.Status(ctx, opts.Level, unitName)
	if err != nil {
		return err
	}

	if !strings.EqualFold(opts.Output, OutputText) {
		return PrintOutput(w, opts.Output, status)
	}

	since := "-"
	if !status.ActiveSince.IsZero() {
		since = status.ActiveSince.Local().Format(time.RFC3339)
	}

	tbl := newTable(w, "Property", "Value")
	tbl.AddRow("Unit", status.UnitName)
	tbl.AddRow("Description", status.Description)
	tbl.AddRow("Load", status.LoadState)
	tbl.AddRow("Active", fmt.Sprintf("%s (%s)", stateColor(status.ActiveState), status.SubState))
	tbl.AddRow("Unit File", status.UnitFileState)
	tbl.AddRow("Path", status.FragmentPath)
	tbl.AddRow("Main PID", status.MainPID)
	tbl.AddRow("Result", status.Result)
	tbl.AddRow("Since", since)
	tbl.Print()
	return nil
}
