package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tapmesh",
		Short: "tapmesh - a flat layer 2 network over UDP",
		Long: `tapmesh bridges a local TAP interface to every other node of a mesh over UDP,
so that all nodes share one Ethernet broadcast domain.

Nodes find each other by multicast discovery or from a static peer list,
learn each other's hardware addresses, and evict peers that stop answering pings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStartCmd())
	root.AddCommand(newPeersCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tapmesh", version)
		},
	}
}
