package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sekia-ai/nativebridge/pkg/model"
)

// errOverflow means bridged cut the stream because this client fell behind.
var errOverflow = errors.New("event stream overflowed; events were missed, reconnect to resume")

func newListenCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stream TTS events from bridged",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://bridged/api/v1/events", nil)
			if err != nil {
				return err
			}
			resp, err := apiClient().Do(req)
			if err != nil {
				return fmt.Errorf("cannot connect to bridged at %s: %w", socketPath, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return decodeError(resp)
			}

			err = readEvents(resp.Body, func(ev model.TTSMessageEvent, data string) {
				if raw {
					fmt.Fprintln(cmd.OutOrStdout(), data)
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatEvent(ev))
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print events as JSON")
	return cmd
}

// readEvents parses a server-sent event stream and calls fn for each TTS
// event. It returns errOverflow if the server cut the stream.
func readEvents(r io.Reader, fn func(model.TTSMessageEvent, string)) error {
	sc := bufio.NewScanner(r)
	var name string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			switch name {
			case "overflow":
				return errOverflow
			case "tts":
				var ev model.TTSMessageEvent
				if err := json.Unmarshal([]byte(data), &ev); err != nil {
					return fmt.Errorf("bad event %s: %w", data, err)
				}
				fn(ev, data)
			}
		case line == "":
			name = ""
		}
	}
	return sc.Err()
}

func formatEvent(ev model.TTSMessageEvent) string {
	var b strings.Builder
	b.WriteString(string(ev.Code))
	if ev.UtteranceID != nil {
		fmt.Fprintf(&b, " utterance=%s", *ev.UtteranceID)
	}
	if ev.Mark != nil {
		fmt.Fprintf(&b, " mark=%s", *ev.Mark)
	}
	if ev.Message != nil {
		fmt.Fprintf(&b, " message=%q", *ev.Message)
	}
	return b.String()
}
