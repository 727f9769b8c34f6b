package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Qian-MoBai/systemd-web/internal/service"
	"github.com/Qian-MoBai/systemd-web/internal/systemd"
)

// UnitsCommand represents the units command group.
type UnitsCommand struct {
	caser systemd.TextCaser
}

// NewUnitsCommand creates a new UnitsCommand.
func NewUnitsCommand() *UnitsCommand {
	return &UnitsCommand{caser: systemd.NewDefaultTextCaser()}
}

// GetCobraCommand returns the cobra command for unit management.
func (c *UnitsCommand) GetCobraCommand() *cobra.Command {
	unitsCmd := &cobra.Command{
		Use:   "units",
		Short: "List, inspect and control service units",
	}

	unitsCmd.AddCommand(NewListCommand().GetCobraCommand())
	for _, op := range systemd.Operations {
		unitsCmd.AddCommand(c.operationCommand(op))
	}
	unitsCmd.AddCommand(NewStatusCommand().GetCobraCommand())

	return unitsCmd
}

// operationCommand builds the subcommand that applies op to a unit.
func (c *UnitsCommand) operationCommand(op systemd.Operation) *cobra.Command {
	var output string

	opCmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <unit>", op),
		Short: fmt.Sprintf("%s a service unit", c.caser.Title(op.String())),
		Args:  cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateOutputFormat(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd.Context(), getApp(cmd), cmd.OutOrStdout(), service.OperationRequest{
				Level:     levelFlag(cmd),
				Operation: op.String(),
				UnitName:  args[0],
			}, output)
		},
		SilenceUsage: true,
	}

	opCmd.Flags().StringVarP(&output, "output", "o", OutputText, "Output format (text, json, yaml)")
	return opCmd
}

// runOperation applies req and reports the outcome. A non-zero exit of
// systemctl is an error for the CLI.
func runOperation(ctx context.Context, app *App, w io.Writer, req service.OperationRequest, output string) error {
	ok, err := app.Service.Operate(ctx, req)
	if err != nil {
		return err
	}

	if !strings.EqualFold(output, OutputText) {
		if err := PrintOutput(w, output, OperationResult{
			Success:   ok,
			Operation: req.Operation,
			Level:     req.Level,
			UnitName:  req.UnitName,
		}); err != nil {
			return err
		}
	} else if ok {
		_, _ = fmt.Fprintf(w, "%s %s: ok\n", req.Operation, req.UnitName)
	}

	if !ok {
		return fmt.Errorf("%s %s failed", req.Operation, req.UnitName)
	}
	return nil
}
