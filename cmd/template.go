package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// TemplateCommand represents the template command.
type TemplateCommand struct{}

// NewTemplateCommand creates a new TemplateCommand.
func NewTemplateCommand() *TemplateCommand {
	return &TemplateCommand{}
}

// GetCobraCommand returns the cobra command that prints the unit template.
func (c *TemplateCommand) GetCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print the unit file template served to upload clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), getApp(cmd).Service.Template())
			return err
		},
	}
}
