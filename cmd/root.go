/*
Copyright © 2025 The systemd-web Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Qian-MoBai/systemd-web/internal/config"
	"github.com/Qian-MoBai/systemd-web/internal/log"
	"github.com/Qian-MoBai/systemd-web/internal/systemd"
)

// annotationStandalone marks commands that run without an App.
const annotationStandalone = "standalone"

// RootCommand represents the root command for systemd-web CLI.
type RootCommand struct {
	configFilePath string
	verbose        bool
	level          string
}

// GetCobraCommand returns the cobra root command for systemd-web CLI.
func (c *RootCommand) GetCobraCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "systemd-web",
		Short: "systemd-web controls systemd services over HTTP.",
		Long: `systemd-web controls systemd services over HTTP.
It lists, starts, stops and reloads service units at system or user level and
accepts new unit files after checking them for destructive commands.`,
		PersistentPreRunE:  c.preRun,
		PersistentPostRunE: c.postRun,
		SilenceUsage:       true,
	}

	rootCmd.PersistentFlags().StringVar(&c.configFilePath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&c.level, "level", "l", systemd.LevelSystem.String(), "Service level for unit commands (system, user)")

	rootCmd.AddCommand(
		NewServeCommand().GetCobraCommand(),
		NewUnitsCommand().GetCobraCommand(),
		NewCheckCommand().GetCobraCommand(),
		NewTemplateCommand().GetCobraCommand(),
		NewAuditCommand().GetCobraCommand(),
		NewConfigCommand().GetCobraCommand(),
		NewVersionCommand().GetCobraCommand(),
	)

	return rootCmd
}

func (c *RootCommand) preRun(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationStandalone] == "true" {
		log.Init(log.Options{Verbose: c.verbose})
		return nil
	}

	provider := config.NewDefaultConfigProvider()
	if c.configFilePath != "" {
		provider.SetConfigFilePath(c.configFilePath)
	}

	cfg, err := provider.InitConfig()
	if err != nil {
		return err
	}
	if c.verbose {
		cfg.Verbose = true
	}

	logger := log.Init(log.Options{Verbose: cfg.Verbose, Format: cfg.LogFormat})
	if used := config.ConfigFileUsed(provider); used != "" {
		logger.Debug("Using config", "file", used)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := NewApp(logger, provider)
	if err != nil {
		return err
	}

	cmd.SetContext(context.WithValue(cmd.Context(), appContextKey, app))
	return nil
}

func (c *RootCommand) postRun(cmd *cobra.Command, _ []string) error {
	if app, ok := cmd.Context().Value(appContextKey).(*App); ok {
		return app.Close()
	}
	return nil
}

// getApp retrieves the App from the command context.
func getApp(cmd *cobra.Command) *App {
	app, _ := cmd.Context().Value(appContextKey).(*App)
	return app
}

// levelFlag returns the --level value, falling back to system when the
// command is run without the root command's flags.
func levelFlag(cmd *cobra.Command) string {
	if f := cmd.Flag("level"); f != nil {
		return f.Value.String()
	}
	return systemd.LevelSystem.String()
}
