package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command of the tg-bookmarks CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "tg-bookmarks",
		Short:         "Mirror a Telegram forum channel into a local bookmark store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (YAML or TOML); TGB_* environment variables override it")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewHashPasswordCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewVersionCommand prints the build version.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
