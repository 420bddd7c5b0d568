package dispatch

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/sekia-ai/nativebridge/internal/backend"
	"github.com/sekia-ai/nativebridge/pkg/bridgeerr"
	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

type command struct {
	info protocol.CommandInfo
	run  func(ctx context.Context, b backend.Backend, payload json.RawMessage) (any, error)
}

// bind declares a command with input In and output Out. The payload is
// decoded and validated before call is reached.
func bind[In, Out any](name string, plugin protocol.PluginID, call func(context.Context, backend.Backend, In) (Out, error)) command {
	return command{
		info: protocol.CommandInfo{
			Name:   name,
			Plugin: plugin.Name,
			Input:  typeName[In](),
			Output: typeName[Out](),
		},
		run: func(ctx context.Context, b backend.Backend, payload json.RawMessage) (any, error) {
			in, err := model.Decode[In](payload)
			if err != nil {
				return nil, bridgeerr.Wrap(bridgeerr.KindInvalidArgument, name, err)
			}
			if v, ok := any(in).(model.Validator); ok {
				if err := v.Validate(); err != nil {
					return nil, bridgeerr.Wrap(bridgeerr.KindInvalidArgument, name, err)
				}
			}
			out, err := call(ctx, b, in)
			if err != nil {
				return nil, bridgeerr.WithCommand(err, name)
			}
			return out, nil
		},
	}
}

// unit adapts a method with no result.
func unit[In any](fn func(context.Context, backend.Backend, In) error) func(context.Context, backend.Backend, In) (model.Empty, error) {
	return func(ctx context.Context, b backend.Backend, in In) (model.Empty, error) {
		return model.Empty{}, fn(ctx, b, in)
	}
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	if t == reflect.TypeFor[model.Empty]() {
		return "unit"
	}
	return strings.TrimPrefix(t.String(), "model.")
}

// table is the complete command set of this build, in declaration order.
var table = []command{
	// native-tts
	bind(protocol.CmdInit, protocol.TTSPlugin, func(ctx context.Context, b backend.Backend, _ model.Empty) (bool, error) {
		return b.Init(ctx)
	}),
	bind(protocol.CmdSpeak, protocol.TTSPlugin, func(ctx context.Context, b backend.Backend, in model.SpeakArgs) (model.SpeakResponse, error) {
		return b.Speak(ctx, in)
	}),
	bind(protocol.CmdPause, protocol.TTSPlugin, unit(func(ctx context.Context, b backend.Backend, _ model.Empty) error {
		return b.Pause(ctx)
	})),
	bind(protocol.CmdResume, protocol.TTSPlugin, unit(func(ctx context.Context, b backend.Backend, _ model.Empty) error {
		return b.Resume(ctx)
	})),
	bind(protocol.CmdStop, protocol.TTSPlugin, unit(func(ctx context.Context, b backend.Backend, _ model.Empty) error {
		return b.Stop(ctx)
	})),
	bind(protocol.CmdSetPrimaryLang, protocol.TTSPlugin, unit(func(ctx context.Context, b backend.Backend, in model.SetLangArgs) error {
		return b.SetPrimaryLang(ctx, in)
	})),
	bind(protocol.CmdSetRate, protocol.TTSPlugin, unit(func(ctx context.Context, b backend.Backend, in model.SetRateArgs) error {
		return b.SetRate(ctx, in)
	})),
	bind(protocol.CmdSetPitch, protocol.TTSPlugin, unit(func(ctx context.Context, b backend.Backend, in model.SetPitchArgs) error {
		return b.SetPitch(ctx, in)
	})),
	bind(protocol.CmdSetVoice, protocol.TTSPlugin, unit(func(ctx context.Context, b backend.Backend, in model.SetVoiceArgs) error {
		return b.SetVoice(ctx, in)
	})),
	bind(protocol.CmdGetAllVoices, protocol.TTSPlugin, func(ctx context.Context, b backend.Backend, _ model.Empty) ([]model.Voice, error) {
		return b.GetAllVoices(ctx)
	}),
	bind(protocol.CmdGetVoices, protocol.TTSPlugin, func(ctx context.Context, b backend.Backend, in model.GetVoicesArgs) ([]model.Voice, error) {
		return b.GetVoices(ctx, in)
	}),
	bind(protocol.CmdGetGranularities, protocol.TTSPlugin, func(ctx context.Context, b backend.Backend, _ model.Empty) ([]model.Granularity, error) {
		return b.GetGranularities(ctx)
	}),
	bind(protocol.CmdGetVoiceID, protocol.TTSPlugin, func(ctx context.Context, b backend.Backend, _ model.Empty) (string, error) {
		return b.GetVoiceID(ctx)
	}),
	bind(protocol.CmdGetSpeakingLang, protocol.TTSPlugin, func(ctx context.Context, b backend.Backend, _ model.Empty) (string, error) {
		return b.GetSpeakingLang(ctx)
	}),

	// native-bridge
	bind(protocol.CmdAuthWithSafari, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, in model.AuthRequest) (model.AuthResponse, error) {
		return b.AuthWithSafari(ctx, in)
	}),
	bind(protocol.CmdCopyURI, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, in model.CopyURIRequest) (model.CopyURIResponse, error) {
		return b.CopyURI(ctx, in)
	}),
	bind(protocol.CmdUseBackgroundAudio, protocol.BridgePlugin, unit(func(ctx context.Context, b backend.Backend, in model.UseBackgroundAudioRequest) error {
		return b.UseBackgroundAudio(ctx, in)
	})),
	bind(protocol.CmdInstallPackage, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, in model.InstallPackageRequest) (model.InstallPackageResponse, error) {
		return b.InstallPackage(ctx, in)
	}),
	bind(protocol.CmdSetSystemUIVisibility, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, in model.SetSystemUIVisibilityRequest) (model.SetSystemUIVisibilityResponse, error) {
		return b.SetSystemUIVisibility(ctx, in)
	}),
	bind(protocol.CmdGetStatusBarHeight, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, _ model.Empty) (model.GetStatusBarHeightResponse, error) {
		return b.GetStatusBarHeight(ctx)
	}),
	bind(protocol.CmdGetSysFontsList, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, _ model.Empty) (model.GetSysFontsListResponse, error) {
		return b.GetSysFontsList(ctx)
	}),
	bind(protocol.CmdInterceptKeys, protocol.BridgePlugin, unit(func(ctx context.Context, b backend.Backend, in model.InterceptKeysRequest) error {
		return b.InterceptKeys(ctx, in)
	})),
	bind(protocol.CmdLockScreenOrientation, protocol.BridgePlugin, unit(func(ctx context.Context, b backend.Backend, in model.LockScreenOrientationRequest) error {
		return b.LockScreenOrientation(ctx, in)
	})),
	bind(protocol.CmdIAPInitialize, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, in model.IAPInitializeRequest) (model.IAPInitializeResponse, error) {
		return b.IAPInitialize(ctx, in)
	}),
	bind(protocol.CmdIAPFetchProducts, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, in model.IAPFetchProductsRequest) (model.IAPFetchProductsResponse, error) {
		return b.IAPFetchProducts(ctx, in)
	}),
	bind(protocol.CmdIAPPurchaseProduct, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, in model.IAPPurchaseProductRequest) (model.IAPPurchaseProductResponse, error) {
		return b.IAPPurchaseProduct(ctx, in)
	}),
	bind(protocol.CmdIAPRestorePurchases, protocol.BridgePlugin, func(ctx context.Context, b backend.Backend, _ model.Empty) (model.IAPRestorePurchasesResponse, error) {
		return b.IAPRestorePurchases(ctx)
	}),
}
