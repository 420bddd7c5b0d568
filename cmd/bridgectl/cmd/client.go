package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/sekia-ai/nativebridge/pkg/bridgeerr"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// apiClient returns an http.Client that connects over the Unix socket.
func apiClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
			},
		},
	}
}

// apiGet performs a GET and decodes the JSON response.
func apiGet(path string, dest any) error {
	resp, err := apiClient().Get("http://bridged" + path)
	if err != nil {
		return fmt.Errorf("cannot connect to bridged at %s: %w", socketPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// apiPost sends body as JSON and decodes the JSON response.
func apiPost(path string, body io.Reader, dest any) error {
	resp, err := apiClient().Post("http://bridged"+path, "application/json", body)
	if err != nil {
		return fmt.Errorf("cannot connect to bridged at %s: %w", socketPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if dest != nil {
		return json.NewDecoder(resp.Body).Decode(dest)
	}
	return nil
}

// commandError is a classified failure reported by bridged.
type commandError struct {
	status int
	resp   protocol.ErrorResponse
}

func (e *commandError) Error() string {
	return fmt.Sprintf("%s (%s, HTTP %d)", e.resp.Message, e.resp.Kind, e.status)
}

func decodeError(resp *http.Response) error {
	var er protocol.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Kind == "" {
		return fmt.Errorf("bridged returned HTTP %d", resp.StatusCode)
	}
	return &commandError{status: resp.StatusCode, resp: er}
}

// ExitCode maps a failure to a process exit status. Each bridge error kind
// gets its own status so scripts can branch on it.
func ExitCode(err error) int {
	var ce *commandError
	if !errors.As(err, &ce) {
		return 1
	}
	switch bridgeerr.KindFromCode(ce.resp.Kind) {
	case bridgeerr.KindInvalidArgument:
		return 2
	case bridgeerr.KindUnsupportedPlatform:
		return 3
	case bridgeerr.KindNativeInvocationFailed:
		return 4
	case bridgeerr.KindDecode:
		return 5
	case bridgeerr.KindUnknownCommand:
		return 6
	}
	return 1
}
