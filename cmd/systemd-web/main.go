// Command systemd-web serves HTTP control over systemd service units.
package main

import (
	"os"

	"github.com/Qian-MoBai/systemd-web/cmd"
)

func main() {
	rootCmd := (&cmd.RootCommand{}).GetCobraCommand()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
