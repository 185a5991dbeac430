package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		Short:                 "Print " + appName + " version",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", appName, version())
		},
	}
}

// version returns the VCS revision the binary was built from. `go run`
// and `go test` binaries carry no VCS settings and report "devel".
func version() string {
	var revision, modified string

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
	}

	switch {
	case revision == "":
		return "devel"
	case modified == "true":
		return revision + "-dirty"
	default:
		return revision
	}
}
