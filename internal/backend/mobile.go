package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Mobile is the native variant. Each method forwards to the TTS or bridge
// plugin and decodes the declared output type.
type Mobile struct {
	platform     string
	tts          *Handle
	bridge       *Handle
	nc           *nats.Conn
	iapPublicKey string
	logger       zerolog.Logger
}

// NewMobile returns a mobile variant over already resolved handles.
func NewMobile(platform string, tts, bridge *Handle, nc *nats.Conn, iapPublicKey string, logger zerolog.Logger) *Mobile {
	return &Mobile{
		platform:     platform,
		tts:          tts,
		bridge:       bridge,
		nc:           nc,
		iapPublicKey: iapPublicKey,
		logger:       logger.With().Str("component", "backend").Str("variant", "mobile-"+platform).Logger(),
	}
}

// OpenMobile resolves both native plugins for platform. Failing to resolve
// either one fails the whole variant.
func OpenMobile(ctx context.Context, env Env, platform string) (*Mobile, error) {
	if env.NATS == nil {
		return nil, fmt.Errorf("%w: no NATS connection", ErrPluginNotResolved)
	}
	opts := ResolveOptions{
		Source:        env.Source,
		Secret:        env.Secret,
		InvokeTimeout: env.InvokeTimeout,
		Timeout:       env.ResolveTimeout,
		Logger:        env.Logger,
	}
	tts, err := Resolve(ctx, env.NATS, protocol.TTSPlugin, platform, opts)
	if err != nil {
		return nil, err
	}
	bridge, err := Resolve(ctx, env.NATS, protocol.BridgePlugin, platform, opts)
	if err != nil {
		return nil, err
	}
	return NewMobile(platform, tts, bridge, env.NATS, env.IAPPublicKey, env.Logger), nil
}

func (m *Mobile) Variant() string { return "mobile-" + m.platform }

// Registrations returns what the resolved plugins announced.
func (m *Mobile) Registrations() []protocol.Registration {
	return []protocol.Registration{m.tts.Registration(), m.bridge.Registration()}
}

// Close releases nothing: the NATS connection belongs to the caller.
func (m *Mobile) Close() error { return nil }

// TTS

func (m *Mobile) Init(ctx context.Context) (bool, error) {
	var resp model.InitResponse
	if err := m.tts.Run(ctx, protocol.CmdInit, nil, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (m *Mobile) Speak(ctx context.Context, args model.SpeakArgs) (model.SpeakResponse, error) {
	var resp model.SpeakResponse
	err := m.tts.Run(ctx, protocol.CmdSpeak, args, &resp)
	return resp, err
}

func (m *Mobile) Pause(ctx context.Context) error {
	return m.tts.Run(ctx, protocol.CmdPause, nil, nil)
}

func (m *Mobile) Resume(ctx context.Context) error {
	return m.tts.Run(ctx, protocol.CmdResume, nil, nil)
}

func (m *Mobile) Stop(ctx context.Context) error {
	return m.tts.Run(ctx, protocol.CmdStop, nil, nil)
}

func (m *Mobile) SetPrimaryLang(ctx context.Context, args model.SetLangArgs) error {
	return m.tts.Run(ctx, protocol.CmdSetPrimaryLang, args, nil)
}

func (m *Mobile) SetRate(ctx context.Context, args model.SetRateArgs) error {
	return m.tts.Run(ctx, protocol.CmdSetRate, args, nil)
}

func (m *Mobile) SetPitch(ctx context.Context, args model.SetPitchArgs) error {
	return m.tts.Run(ctx, protocol.CmdSetPitch, args, nil)
}

func (m *Mobile) SetVoice(ctx context.Context, args model.SetVoiceArgs) error {
	return m.tts.Run(ctx, protocol.CmdSetVoice, args, nil)
}

func (m *Mobile) GetAllVoices(ctx context.Context) ([]model.Voice, error) {
	var resp model.GetVoicesResponse
	if err := m.tts.Run(ctx, protocol.CmdGetAllVoices, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Voices, nil
}

func (m *Mobile) GetVoices(ctx context.Context, args model.GetVoicesArgs) ([]model.Voice, error) {
	var resp model.GetVoicesResponse
	if err := m.tts.Run(ctx, protocol.CmdGetVoices, args, &resp); err != nil {
		return nil, err
	}
	return resp.Voices, nil
}

func (m *Mobile) GetGranularities(ctx context.Context) ([]model.Granularity, error) {
	var resp model.GetGranularitiesResponse
	if err := m.tts.Run(ctx, protocol.CmdGetGranularities, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Granularities, nil
}

func (m *Mobile) GetVoiceID(ctx context.Context) (string, error) {
	var resp model.GetVoiceIDResponse
	if err := m.tts.Run(ctx, protocol.CmdGetVoiceID, nil, &resp); err != nil {
		return "", err
	}
	return resp.VoiceID, nil
}

func (m *Mobile) GetSpeakingLang(ctx context.Context) (string, error) {
	var resp model.GetSpeakingLangResponse
	if err := m.tts.Run(ctx, protocol.CmdGetSpeakingLang, nil, &resp); err != nil {
		return "", err
	}
	return resp.Lang, nil
}

// System bridge

func (m *Mobile) AuthWithSafari(ctx context.Context, req model.AuthRequest) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := m.bridge.Run(ctx, protocol.CmdAuthWithSafari, req, &resp)
	return resp, err
}

func (m *Mobile) CopyURI(ctx context.Context, req model.CopyURIRequest) (model.CopyURIResponse, error) {
	var resp model.CopyURIResponse
	err := m.bridge.Run(ctx, protocol.CmdCopyURI, req, &resp)
	return resp, err
}

func (m *Mobile) UseBackgroundAudio(ctx context.Context, req model.UseBackgroundAudioRequest) error {
	return m.bridge.Run(ctx, protocol.CmdUseBackgroundAudio, req, nil)
}

func (m *Mobile) InstallPackage(ctx context.Context, req model.InstallPackageRequest) (model.InstallPackageResponse, error) {
	var resp model.InstallPackageResponse
	err := m.bridge.Run(ctx, protocol.CmdInstallPackage, req, &resp)
	return resp, err
}

func (m *Mobile) SetSystemUIVisibility(ctx context.Context, req model.SetSystemUIVisibilityRequest) (model.SetSystemUIVisibilityResponse, error) {
	var resp model.SetSystemUIVisibilityResponse
	err := m.bridge.Run(ctx, protocol.CmdSetSystemUIVisibility, req, &resp)
	return resp, err
}

func (m *Mobile) GetStatusBarHeight(ctx context.Context) (model.GetStatusBarHeightResponse, error) {
	var resp model.GetStatusBarHeightResponse
	err := m.bridge.Run(ctx, protocol.CmdGetStatusBarHeight, nil, &resp)
	return resp, err
}

func (m *Mobile) GetSysFontsList(ctx context.Context) (model.GetSysFontsListResponse, error) {
	var resp model.GetSysFontsListResponse
	err := m.bridge.Run(ctx, protocol.CmdGetSysFontsList, nil, &resp)
	return resp, err
}

func (m *Mobile) InterceptKeys(ctx context.Context, req model.InterceptKeysRequest) error {
	return m.bridge.Run(ctx, protocol.CmdInterceptKeys, req, nil)
}

func (m *Mobile) LockScreenOrientation(ctx context.Context, req model.LockScreenOrientationRequest) error {
	return m.bridge.Run(ctx, protocol.CmdLockScreenOrientation, req, nil)
}

// Store

// IAPInitialize fills in the configured public key when the request has none.
func (m *Mobile) IAPInitialize(ctx context.Context, req model.IAPInitializeRequest) (model.IAPInitializeResponse, error) {
	if req.PublicKey == nil && m.iapPublicKey != "" {
		key := m.iapPublicKey
		req.PublicKey = &key
	}
	var resp model.IAPInitializeResponse
	err := m.bridge.Run(ctx, protocol.CmdIAPInitialize, req, &resp)
	return resp, err
}

func (m *Mobile) IAPFetchProducts(ctx context.Context, req model.IAPFetchProductsRequest) (model.IAPFetchProductsResponse, error) {
	var resp model.IAPFetchProductsResponse
	err := m.bridge.Run(ctx, protocol.CmdIAPFetchProducts, req, &resp)
	return resp, err
}

func (m *Mobile) IAPPurchaseProduct(ctx context.Context, req model.IAPPurchaseProductRequest) (model.IAPPurchaseProductResponse, error) {
	var resp model.IAPPurchaseProductResponse
	err := m.bridge.Run(ctx, protocol.CmdIAPPurchaseProduct, req, &resp)
	return resp, err
}

func (m *Mobile) IAPRestorePurchases(ctx context.Context) (model.IAPRestorePurchasesResponse, error) {
	var resp model.IAPRestorePurchasesResponse
	err := m.bridge.Run(ctx, protocol.CmdIAPRestorePurchases, nil, &resp)
	return resp, err
}

// Events

// ListenTTSEvents subscribes sink to the TTS plugin's event subject. NATS
// calls a subscription's handler from one goroutine in arrival order.
// Delivery across the bus is at most once.
func (m *Mobile) ListenTTSEvents(_ context.Context, sink func([]byte)) (StopFunc, error) {
	if sink == nil {
		return nil, errors.New("nil event sink")
	}
	sub, err := m.nc.Subscribe(protocol.SubjectEvents(m.tts.Plugin().Name), func(msg *nats.Msg) {
		sink(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe tts events: %w", err)
	}
	if err := m.nc.Flush(); err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("subscribe tts events: %w", err)
	}
	m.logger.Info().Str("subject", sub.Subject).Msg("listening for tts events")
	return sub.Unsubscribe, nil
}
