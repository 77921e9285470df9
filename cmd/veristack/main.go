package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
}

func buildRoot() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:           "veristack",
		Short:         "Bring up a document-service chain, verify it, and serve the report",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "config.toml", "path to TOML config file")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "info", "console log level (debug|info|warn|error)")

	root.AddCommand(newVerifyCmd(flags))
	root.AddCommand(newUpCmd(flags))
	root.AddCommand(newAPICmd(flags))
	return root
}
