package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the commands bridged accepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp protocol.CommandsResponse
			if err := apiGet("/api/v1/commands", &resp); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COMMAND\tPLUGIN\tINPUT\tOUTPUT")
			for _, c := range resp.Commands {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Plugin, c.Input, c.Output)
			}
			w.Flush()
			return nil
		},
	}
}
