package main

import (
	"github.com/spf13/cobra"
)

const appName = "students-api"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          appName,
		Short:        "Student records REST API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, configPath)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "",
		"path to the YAML config file (CONFIG_PATH env var takes precedence)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd, configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply all schema migrations and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd, configPath)
			},
		},
		versionCmd(),
	)

	return root
}
