package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/internal/backend"
	"github.com/sekia-ai/nativebridge/internal/natsserver"
	"github.com/sekia-ai/nativebridge/internal/server"
	"github.com/sekia-ai/nativebridge/internal/simulator"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

func startDaemon(t *testing.T, cfg server.Config, opts ...server.Option) *http.Client {
	t.Helper()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	d := server.NewDaemon(cfg, logger, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- d.Run() }()

	t.Cleanup(func() {
		d.Stop()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("daemon error: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("daemon did not shut down in time")
		}
	})

	socketPath := cfg.Server.Socket
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		select {
		case err := <-errCh:
			t.Fatalf("daemon exited early: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
	}
	if _, err := os.Stat(socketPath); err != nil {
		t.Fatal("socket did not appear in time")
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
			},
		},
	}
}

func getJSON(t *testing.T, client *http.Client, path string, v any) {
	t.Helper()
	resp, err := client.Get("http://bridged" + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func invoke(t *testing.T, client *http.Client, command, body string) (int, protocol.InvokeResponse, protocol.ErrorResponse) {
	t.Helper()
	resp, err := client.Post("http://bridged/api/v1/invoke/"+command, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("invoke %s: %v", command, err)
	}
	defer resp.Body.Close()
	var ok protocol.InvokeResponse
	var fail protocol.ErrorResponse
	if resp.StatusCode == http.StatusOK {
		json.NewDecoder(resp.Body).Decode(&ok)
	} else {
		json.NewDecoder(resp.Body).Decode(&fail)
	}
	return resp.StatusCode, ok, fail
}

func TestEndToEndDesktop(t *testing.T) {
	tmpDir := t.TempDir()
	fontDir := filepath.Join(tmpDir, "fonts")
	os.MkdirAll(fontDir, 0o755)
	os.WriteFile(filepath.Join(fontDir, "Literata_Regular.ttf"), []byte("x"), 0o644)

	client := startDaemon(t, server.Config{
		Server: server.ServerConfig{Socket: filepath.Join(tmpDir, "bridged.sock")},
		Fonts:  server.FontsConfig{Dirs: []string{fontDir}},
	}, server.WithOpener(func(ctx context.Context, env backend.Env) (backend.Backend, error) {
		return backend.NewDesktop(env.Fonts, env.Logger), nil
	}))

	var status protocol.StatusResponse
	getJSON(t, client, "/api/v1/status", &status)
	if status.Status != "ok" {
		t.Fatalf("expected status ok, got %s", status.Status)
	}
	if status.Backend != "desktop" {
		t.Fatalf("expected desktop backend, got %s", status.Backend)
	}
	if status.PluginCount != 0 {
		t.Fatalf("expected 0 plugins, got %d", status.PluginCount)
	}

	code, _, fail := invoke(t, client, protocol.CmdSpeak, `{"text":"hello"}`)
	if code != http.StatusNotImplemented || fail.Kind != "unsupported_platform" {
		t.Fatalf("speak on desktop: %d %+v", code, fail)
	}

	code, ok, _ := invoke(t, client, protocol.CmdGetSysFontsList, "")
	if code != http.StatusOK {
		t.Fatalf("fonts: status %d", code)
	}
	if !strings.Contains(string(ok.Result), `"Literata Regular"`) {
		t.Fatalf("font missing from %s", ok.Result)
	}

	var cmds protocol.CommandsResponse
	getJSON(t, client, "/api/v1/commands", &cmds)
	if len(cmds.Commands) != 27 {
		t.Fatalf("expected 27 commands, got %d", len(cmds.Commands))
	}
}

func TestEndToEndMobile(t *testing.T) {
	tmpDir := t.TempDir()
	logger := zerolog.Nop()
	const secret = "daemon-test-secret"

	bus, err := natsserver.New(natsserver.Config{Host: "127.0.0.1", Port: -1}, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(bus.Shutdown)

	sim, err := simulator.Start(simulator.Config{
		NATSUrl:  bus.ClientURL(),
		Platform: protocol.PlatformIOS,
		Secret:   secret,
		Version:  "1.2.3",
	}, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sim.Close)

	client := startDaemon(t, server.Config{
		Server:   server.ServerConfig{Socket: filepath.Join(tmpDir, "bridged.sock")},
		NATS:     server.NATSConfig{URL: bus.ClientURL()},
		Security: server.SecurityConfig{CommandSecret: secret},
		IAP:      server.IAPConfig{PublicKey: "MIIBIjANBgkq"},
		Bridge:   server.BridgeConfig{ResolveTimeout: 5 * time.Second},
		Events:   server.EventsConfig{RingSize: 32},
	}, server.WithOpener(func(ctx context.Context, env backend.Env) (backend.Backend, error) {
		return backend.OpenMobile(ctx, env, protocol.PlatformIOS)
	}))

	var status protocol.StatusResponse
	getJSON(t, client, "/api/v1/status", &status)
	if status.Backend != "mobile-ios" {
		t.Fatalf("expected mobile-ios, got %s", status.Backend)
	}

	var plugins protocol.PluginsResponse
	getJSON(t, client, "/api/v1/plugins", &plugins)
	if len(plugins.Plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %+v", plugins.Plugins)
	}
	if plugins.Plugins[0].Name != "native-bridge" || plugins.Plugins[1].Name != "native-tts" {
		t.Fatalf("unexpected plugins %+v", plugins.Plugins)
	}
	if plugins.Plugins[1].Key != "init_plugin_native_tts" || plugins.Plugins[1].Version != "1.2.3" {
		t.Fatalf("unexpected tts plugin %+v", plugins.Plugins[1])
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://bridged/api/v1/events", nil)
	stream, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Body.Close()

	code, ok, fail := invoke(t, client, protocol.CmdInit, "")
	if code != http.StatusOK || string(ok.Result) != "true" {
		t.Fatalf("init: %d %s %+v", code, ok.Result, fail)
	}
	code, ok, fail = invoke(t, client, protocol.CmdSpeak, `{"text":"hello world"}`)
	if code != http.StatusOK {
		t.Fatalf("speak: %d %+v", code, fail)
	}
	var spoke struct {
		UtteranceID string `json:"utteranceId"`
	}
	json.Unmarshal(ok.Result, &spoke)
	if spoke.UtteranceID == "" {
		t.Fatalf("no utterance id in %s", ok.Result)
	}

	var got []string
	sc := bufio.NewScanner(stream.Body)
	for len(got) < 4 && sc.Scan() {
		line, found := strings.CutPrefix(sc.Text(), "data: ")
		if !found {
			continue
		}
		var ev struct {
			Code        string  `json:"code"`
			Message     *string `json:"message"`
			Mark        *string `json:"mark"`
			UtteranceID *string `json:"utteranceId"`
		}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad event %s: %v", line, err)
		}
		if ev.UtteranceID == nil || *ev.UtteranceID != spoke.UtteranceID {
			t.Fatalf("event for another utterance: %s", line)
		}
		switch {
		case ev.Mark != nil:
			got = append(got, *ev.Mark)
		case ev.Message != nil:
			got = append(got, *ev.Message)
		default:
			got = append(got, ev.Code)
		}
	}
	if want := "start pos:0-5 pos:6-11 end"; strings.Join(got, " ") != want {
		t.Fatalf("events = %q, want %q", strings.Join(got, " "), want)
	}

	code, ok, _ = invoke(t, client, protocol.CmdIAPInitialize, "{}")
	if code != http.StatusOK || string(ok.Result) != `{"success":true}` {
		t.Fatalf("iap init with configured key: %d %s", code, ok.Result)
	}

	code, _, fail = invoke(t, client, protocol.CmdSetRate, `{"rate":7}`)
	if code != http.StatusBadRequest || fail.Kind != "invalid_argument" {
		t.Fatalf("set_rate out of range: %d %+v", code, fail)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d := server.NewDaemon(server.Config{}, zerolog.Nop())
	d.Stop()
	d.Stop()
}
