package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "golink",
		Short:         "Link game accounts to Discord accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML file with webhook-url, message texts and link settings")
	cmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "log notifications instead of posting them to the webhook")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newConsoleCmd(opts))
	return cmd
}
