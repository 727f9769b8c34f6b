package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// ListOptions holds list command options.
type ListOptions struct {
	Level  string
	Output string
}

// ListCommand represents the units list command.
type ListCommand struct{}

// NewListCommand creates a new ListCommand.
func NewListCommand() *ListCommand {
	return &ListCommand{}
}

// GetCobraCommand returns the cobra command for listing units.
func (c *ListCommand) GetCobraCommand() *cobra.Command {
	var opts ListOptions

	unitListCmd := &cobra.Command{
		Use:   "list",
		Short: "Lists the service units loaded by the manager",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateOutputFormat(opts.Output)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Level = levelFlag(cmd)
			return c.Run(cmd.Context(), getApp(cmd), cmd.OutOrStdout(), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	unitListCmd.Flags().StringVarP(&opts.Output, "output", "o", OutputText, "Output format (text, json, yaml)")
	err := unitListCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return allowedOutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	if err != nil {
		return unitListCmd
	}

	return unitListCmd
}

// Run lists the units of opts.Level.
func (c *ListCommand) Run(ctx context.Context, app *App, w io.Writer, opts ListOptions) error {
	units, err := app.Service.ListUnits(ctx, opts.Level)
	if err != nil {
		return fmt.Errorf("error listing units: %w", err)
	}

	if !strings.EqualFold(opts.Output, OutputText) {
		return PrintOutput(w, opts.Output, units)
	}

	tbl := newTable(w, "Unit", "Load", "Active", "Sub", "Description")
	for _, u := range units {
		tbl.AddRow(u.UnitName, u.LoadState, stateColor(u.ActiveState), u.SubState, u.Description)
	}
	tbl.Print()
	return nil
}
