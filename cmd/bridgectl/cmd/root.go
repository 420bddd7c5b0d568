package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sekia-ai/nativebridge/pkg/sockpath"
)

var (
	socketPath string

	// Version is set by the main package via ldflags.
	Version = "dev"
)

// NewRootCmd creates the root bridgectl command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bridgectl",
		Short:   "nativebridge CLI: inspect bridged and run bridge commands",
		Version: Version,
	}

	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", sockpath.DefaultSocketPath(), "bridged Unix socket path")

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newPluginsCmd())
	rootCmd.AddCommand(newCommandsCmd())
	rootCmd.AddCommand(newInvokeCmd())
	rootCmd.AddCommand(newListenCmd())
	rootCmd.AddCommand(newSecretsCmd())

	return rootCmd
}
