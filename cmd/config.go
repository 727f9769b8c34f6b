package cmd

import (
	"github.com/spf13/cobra"
)

// ConfigCommand represents the config command group.
type ConfigCommand struct{}

// NewConfigCommand creates a new ConfigCommand.
func NewConfigCommand() *ConfigCommand {
	return &ConfigCommand{}
}

// GetCobraCommand returns the cobra command for configuration operations.
func (c *ConfigCommand) GetCobraCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect systemd-web configuration",
	}
	configCmd.AddCommand(NewConfigShowCommand().GetCobraCommand())
	return configCmd
}
