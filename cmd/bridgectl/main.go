package main

import (
	"os"

	"github.com/sekia-ai/nativebridge/cmd/bridgectl/cmd"
)

var version = "dev"

func main() {
	cmd.Version = version
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
