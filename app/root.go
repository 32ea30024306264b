package app

import (
	"github.com/spf13/cobra"
)

// RootCmd builds the stakemintd command tree.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stakemintd",
		Short:         "Trust and settlement daemon for skill-stake attestations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newCheckCmd(),
		newVerifyQuoteCmd(),
		newMonitorCmd(),
		newVersionCmd(),
	)
	return cmd
}
