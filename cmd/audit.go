package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Qian-MoBai/systemd-web/internal/db/model"
)

// AuditOptions holds audit list options.
type AuditOptions struct {
	Limit    int
	UnitName string
	Output   string
}

// AuditCommand represents the audit command group.
type AuditCommand struct{}

// NewAuditCommand creates a new AuditCommand.
func NewAuditCommand() *AuditCommand {
	return &AuditCommand{}
}

// GetCobraCommand returns the cobra command for reading the audit trail.
func (c *AuditCommand) GetCobraCommand() *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail of operations and uploads",
	}

	var opts AuditOptions
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit events, newest first",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.Limit <= 0 {
				return fmt.Errorf("limit must be positive, got %d", opts.Limit)
			}
			return validateOutputFormat(opts.Output)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context(), getApp(cmd), cmd.OutOrStdout(), opts)
		},
		SilenceUsage: true,
	}
	listCmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of events")
	listCmd.Flags().StringVarP(&opts.UnitName, "unit", "u", "", "Only show events for this unit")
	listCmd.Flags().StringVarP(&opts.Output, "output", "o", OutputText, "Output format (text, json, yaml)")

	auditCmd.AddCommand(listCmd)
	return auditCmd
}

// Run prints audit events.
func (c *AuditCommand) Run(ctx context.Context, app *App, w io.Writer, opts AuditOptions) error {
	var (
		events []model.AuditEvent
		err    error
	)
	if opts.UnitName != "" {
		events, err = app.Audit.FindByUnitName(ctx, opts.UnitName, opts.Limit)
	} else {
		events, err = app.Audit.Recent(ctx, opts.Limit)
	}
	if err != nil {
		return fmt.Errorf("error reading audit trail: %w", err)
	}

	if !strings.EqualFold(opts.Output, OutputText) {
		return PrintOutput(w, opts.Output, events)
	}

	tbl := newTable(w, "ID", "Time", "Action", "Level", "Unit", "Result", "Detail")
	for _, e := range events {
		result := color.GreenString("ok")
		if !e.Success {
			result = color.RedString("failed")
		}
		tbl.AddRow(e.ID, e.OccurredAt.Local().Format(time.DateTime), e.Action, e.Level, e.UnitName, result, e.Detail)
	}
	tbl.Print()
	return nil
}
