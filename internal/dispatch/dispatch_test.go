package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/internal/backend"
	"github.com/sekia-ai/nativebridge/pkg/bridgeerr"
	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// validPayloads holds one well-formed payload per command.
var validPayloads = map[string]string{
	protocol.CmdInit:                  ``,
	protocol.CmdSpeak:                 `{"text":"Hello world"}`,
	protocol.CmdPause:                 `{}`,
	protocol.CmdResume:                `null`,
	protocol.CmdStop:                  ``,
	protocol.CmdSetPrimaryLang:        `{"lang":"en-US"}`,
	protocol.CmdSetRate:               `{"rate":1.5}`,
	protocol.CmdSetPitch:              `{"pitch":1.0}`,
	protocol.CmdSetVoice:              `{"voice":"en-us-x-sfg"}`,
	protocol.CmdGetAllVoices:          ``,
	protocol.CmdGetVoices:             `{"lang":"de"}`,
	protocol.CmdGetGranularities:      ``,
	protocol.CmdGetVoiceID:            ``,
	protocol.CmdGetSpeakingLang:       ``,
	protocol.CmdAuthWithSafari:        `{"authUrl":"https://example.com/login"}`,
	protocol.CmdCopyURI:               `{"uri":"content://books/1","dst":"/tmp/book.epub"}`,
	protocol.CmdUseBackgroundAudio:    `{"enabled":true}`,
	protocol.CmdInstallPackage:        `{"path":"/tmp/app.apk"}`,
	protocol.CmdSetSystemUIVisibility: `{"visible":false,"darkMode":true}`,
	protocol.CmdGetStatusBarHeight:    ``,
	protocol.CmdGetSysFontsList:       ``,
	protocol.CmdInterceptKeys:         `{"volumeKeys":true}`,
	protocol.CmdLockScreenOrientation: `{"orientation":"landscape"}`,
	protocol.CmdIAPInitialize:         `{}`,
	protocol.CmdIAPFetchProducts:      `{"productIds":["book_123"]}`,
	protocol.CmdIAPPurchaseProduct:    `{"productId":"book_123"}`,
	protocol.CmdIAPRestorePurchases:   ``,
}

func TestCommandTableIsComplete(t *testing.T) {
	d := New(backend.NewDesktop(nil, zerolog.Nop()), zerolog.Nop())
	infos := d.Commands()
	if len(infos) != len(validPayloads) {
		t.Fatalf("table has %d commands, test knows %d", len(infos), len(validPayloads))
	}
	seen := map[string]bool{}
	for _, info := range infos {
		if seen[info.Name] {
			t.Errorf("duplicate command %s", info.Name)
		}
		seen[info.Name] = true
		if _, ok := validPayloads[info.Name]; !ok {
			t.Errorf("no payload for %s", info.Name)
		}
		if info.Plugin != protocol.TTSPlugin.Name && info.Plugin != protocol.BridgePlugin.Name {
			t.Errorf("%s: unexpected plugin %q", info.Name, info.Plugin)
		}
		if info.Input == "" || info.Output == "" {
			t.Errorf("%s: missing type names", info.Name)
		}
	}
}

func TestCommandInfoTypeNames(t *testing.T) {
	d := New(backend.NewDesktop(nil, zerolog.Nop()), zerolog.Nop())
	want := map[string][2]string{
		protocol.CmdInit:         {"unit", "bool"},
		protocol.CmdSetRate:      {"SetRateArgs", "unit"},
		protocol.CmdGetAllVoices: {"unit", "[]model.Voice"},
		protocol.CmdGetVoiceID:   {"unit", "string"},
	}
	for _, info := range d.Commands() {
		if w, ok := want[info.Name]; ok && (info.Input != w[0] || info.Output != w[1]) {
			t.Errorf("%s: got %s -> %s, want %s -> %s", info.Name, info.Input, info.Output, w[0], w[1])
		}
	}
}

func TestDesktopStubIsTotal(t *testing.T) {
	d := New(backend.NewDesktop(nil, zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()
	for name, payload := range validPayloads {
		t.Run(name, func(t *testing.T) {
			out, err := d.Invoke(ctx, name, json.RawMessage(payload))
			if out != nil {
				t.Errorf("unexpected output %v", out)
			}
			if !errors.Is(err, bridgeerr.ErrUnsupportedPlatform) {
				t.Fatalf("expected UnsupportedPlatform, got %v", err)
			}
			var be *bridgeerr.Error
			if !errors.As(err, &be) || be.Command != name {
				t.Fatalf("error does not name the command: %v", err)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	d := New(backend.NewDesktop(nil, zerolog.Nop()), zerolog.Nop())
	_, err := d.Invoke(context.Background(), "reboot", nil)
	if bridgeerr.KindOf(err) != bridgeerr.KindUnknownCommand {
		t.Fatalf("expected UnknownCommand, got %v", err)
	}
}

// recorder answers every TTS call and remembers what reached it.
type recorder struct {
	*backend.Desktop
	calls  []string
	rates  []float32
	native error
	voices []model.Voice
}

func newRecorder() *recorder {
	return &recorder{Desktop: backend.NewDesktop(nil, zerolog.Nop())}
}

func (r *recorder) SetRate(_ context.Context, args model.SetRateArgs) error {
	r.calls = append(r.calls, protocol.CmdSetRate)
	r.rates = append(r.rates, args.Rate)
	return r.native
}

func (r *recorder) GetAllVoices(context.Context) ([]model.Voice, error) {
	r.calls = append(r.calls, protocol.CmdGetAllVoices)
	return r.voices, r.native
}

func (r *recorder) Speak(_ context.Context, args model.SpeakArgs) (model.SpeakResponse, error) {
	r.calls = append(r.calls, protocol.CmdSpeak)
	return model.SpeakResponse{UtteranceID: "u-1"}, r.native
}

func TestValidationPrecedesBackend(t *testing.T) {
	tests := []struct {
		name    string
		command string
		payload string
	}{
		{"rate out of range", protocol.CmdSetRate, `{"rate":9.0}`},
		{"rate missing", protocol.CmdSetRate, `{}`},
		{"rate wrong type", protocol.CmdSetRate, `{"rate":"fast"}`},
		{"rate beyond f32", protocol.CmdSetRate, `{"rate":1e300}`},
		{"not an object", protocol.CmdSetRate, `[1.5]`},
		{"speak blank", protocol.CmdSpeak, `{"text":"   "}`},
		{"bad lang", protocol.CmdGetVoices, `{"lang":"??"}`},
		{"bad orientation", protocol.CmdLockScreenOrientation, `{"orientation":"upside_down"}`},
		{"relative auth url", protocol.CmdAuthWithSafari, `{"authUrl":"/cb"}`},
		{"empty product list", protocol.CmdIAPFetchProducts, `{"productIds":[]}`},
		{"unit with garbage", protocol.CmdGetAllVoices, `"voices"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRecorder()
			d := New(r, zerolog.Nop())
			_, err := d.Invoke(context.Background(), tt.command, json.RawMessage(tt.payload))
			if !errors.Is(err, bridgeerr.ErrInvalidArgument) {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
			if len(r.calls) != 0 {
				t.Fatalf("backend reached: %v", r.calls)
			}
		})
	}
}

func TestForwardsDecodedPayload(t *testing.T) {
	r := newRecorder()
	d := New(r, zerolog.Nop())

	out, err := d.Invoke(context.Background(), protocol.CmdSetRate, json.RawMessage(`{"rate":1.5}`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if _, ok := out.(model.Empty); !ok {
		t.Fatalf("set_rate output = %T, want model.Empty", out)
	}
	if len(r.rates) != 1 || r.rates[0] != 1.5 {
		t.Fatalf("backend saw rates %v", r.rates)
	}

	r.voices = []model.Voice{{ID: "a", Name: "A", Lang: "en"}, {ID: "b", Name: "B", Lang: "fr", Disabled: true}}
	out, err = d.Invoke(context.Background(), protocol.CmdGetAllVoices, nil)
	if err != nil {
		t.Fatal(err)
	}
	voices, ok := out.([]model.Voice)
	if !ok || len(voices) != 2 || voices[1].ID != "b" {
		t.Fatalf("unexpected voices %#v", out)
	}

	out, err = d.Invoke(context.Background(), protocol.CmdSpeak, json.RawMessage(`{"text":"hi","preload":true}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp := out.(model.SpeakResponse); resp.UtteranceID != "u-1" {
		t.Fatalf("utterance id = %q", resp.UtteranceID)
	}
}

func TestBackendErrorsPassThrough(t *testing.T) {
	r := newRecorder()
	d := New(r, zerolog.Nop())

	native := &bridgeerr.Error{Kind: bridgeerr.KindNativeInvocationFailed, Msg: "engine not initialized"}
	r.native = native
	_, err := d.Invoke(context.Background(), protocol.CmdSetRate, json.RawMessage(`{"rate":1.5}`))
	if bridgeerr.KindOf(err) != bridgeerr.KindNativeInvocationFailed {
		t.Fatalf("kind = %v", bridgeerr.KindOf(err))
	}
	if err.Error() != "set_rate: native invocation failed: engine not initialized" {
		t.Fatalf("message = %q", err.Error())
	}

	r.native = bridgeerr.New(bridgeerr.KindDecode, protocol.CmdGetAllVoices, "bad reply")
	_, err = d.Invoke(context.Background(), protocol.CmdGetAllVoices, nil)
	if !errors.Is(err, bridgeerr.ErrDecode) || err != r.native {
		t.Fatalf("decode error should pass through unchanged, got %v", err)
	}

	plain := errors.New("something else")
	r.native = plain
	_, err = d.Invoke(context.Background(), protocol.CmdSetRate, json.RawMessage(`{"rate":1.5}`))
	if err != plain {
		t.Fatalf("non-bridge error should pass through unchanged, got %v", err)
	}
}

func TestListenOnDesktopIsUnsupported(t *testing.T) {
	d := New(backend.NewDesktop(nil, zerolog.Nop()), zerolog.Nop())
	_, err := d.ListenTTSEvents(context.Background(), func([]byte) {})
	if !errors.Is(err, bridgeerr.ErrUnsupportedPlatform) {
		t.Fatalf("expected UnsupportedPlatform, got %v", err)
	}
	if d.Variant() != "desktop" {
		t.Fatalf("variant = %q", d.Variant())
	}
}
