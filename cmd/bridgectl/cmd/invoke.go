package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

func newInvokeCmd() *cobra.Command {
	var payloadFile string

	cmd := &cobra.Command{
		Use:   "invoke <command> [payload]",
		Short: "Run a bridge command",
		Long: `Runs one bridge command through bridged and prints its result as JSON.
The payload is a JSON object given inline, read from --file, or from stdin
with --file -. It defaults to {}.

Examples:
  bridgectl invoke init
  bridgectl invoke speak '{"text":"Hello"}'
  bridgectl invoke iap_fetch_products --file products.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(args[1:], payloadFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if !json.Valid(payload) {
				return fmt.Errorf("payload is not valid JSON")
			}

			var resp protocol.InvokeResponse
			if err := apiPost("/api/v1/invoke/"+args[0], bytes.NewReader(payload), &resp); err != nil {
				return err
			}

			if isUnitResult(resp.Result) {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			var out bytes.Buffer
			if err := json.Indent(&out, resp.Result, "", "  "); err != nil {
				out.Reset()
				out.Write(resp.Result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&payloadFile, "file", "f", "", "read the payload from a file (- for stdin)")
	return cmd
}

func readPayload(args []string, file string, stdin io.Reader) ([]byte, error) {
	switch {
	case len(args) > 0 && file != "":
		return nil, fmt.Errorf("give the payload inline or with --file, not both")
	case len(args) > 0:
		return []byte(args[0]), nil
	case file == "-":
		return io.ReadAll(stdin)
	case file != "":
		return os.ReadFile(file)
	}
	return []byte("{}"), nil
}

// isUnitResult reports whether a result carries no data.
func isUnitResult(result json.RawMessage) bool {
	return strings.TrimSpace(string(result)) == "{}"
}
