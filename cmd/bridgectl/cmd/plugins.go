package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List native plugins seen on the bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp protocol.PluginsResponse
			if err := apiGet("/api/v1/plugins", &resp); err != nil {
				return err
			}

			if len(resp.Plugins) == 0 {
				fmt.Println("No plugins registered.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPLATFORM\tKEY\tVERSION\tSTATUS\tCALLS\tEVENTS\tERRORS\tLAST HEARTBEAT")
			for _, p := range resp.Plugins {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					p.Name, p.Platform, p.Key, p.Version, p.Status,
					p.InvocationsServed, p.EventsEmitted, p.Errors,
					p.LastHeartbeat.Format("15:04:05"),
				)
			}
			w.Flush()
			return nil
		},
	}
}
