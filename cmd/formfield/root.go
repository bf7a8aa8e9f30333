package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "formfield",
		Short: "Server-rendered form fields with server-side validation",
		Long: `formfield serves text, password and email fields whose validation state
lives on the server. Fields are declared in a YAML file or registered in Go;
browser events reach them over HTTP or WebSocket.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newCheckCommand())
	return rootCmd
}
