package main

import (
	"os"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/polyglot/internal/cli"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()
	app := &app{flags: flags}

	// Create root command
	rootCmd := cli.CreateRootCommand(flags, app.handlers())

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Execute command
	err := rootCmd.Execute()
	app.close()
	if err != nil {
		os.Exit(1)
	}
}
