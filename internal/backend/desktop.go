package backend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/bridgeerr"
	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Desktop is the stub variant. Every capability without a desktop engine
// fails with UnsupportedPlatform and touches nothing. Font listing is served
// when a FontLister is configured.
type Desktop struct {
	fonts  FontLister
	logger zerolog.Logger
}

// NewDesktop returns the desktop variant. fonts may be nil.
func NewDesktop(fonts FontLister, logger zerolog.Logger) *Desktop {
	return &Desktop{
		fonts:  fonts,
		logger: logger.With().Str("component", "backend").Str("variant", "desktop").Logger(),
	}
}

func (d *Desktop) Variant() string { return "desktop" }
func (d *Desktop) Close() error    { return nil }

func (d *Desktop) Init(context.Context) (bool, error) {
	return false, bridgeerr.Unsupported(protocol.CmdInit)
}

func (d *Desktop) Speak(context.Context, model.SpeakArgs) (model.SpeakResponse, error) {
	return model.SpeakResponse{}, bridgeerr.Unsupported(protocol.CmdSpeak)
}

func (d *Desktop) Pause(context.Context) error  { return bridgeerr.Unsupported(protocol.CmdPause) }
func (d *Desktop) Resume(context.Context) error { return bridgeerr.Unsupported(protocol.CmdResume) }
func (d *Desktop) Stop(context.Context) error   { return bridgeerr.Unsupported(protocol.CmdStop) }

func (d *Desktop) SetPrimaryLang(context.Context, model.SetLangArgs) error {
	return bridgeerr.Unsupported(protocol.CmdSetPrimaryLang)
}

func (d *Desktop) SetRate(context.Context, model.SetRateArgs) error {
	return bridgeerr.Unsupported(protocol.CmdSetRate)
}

func (d *Desktop) SetPitch(context.Context, model.SetPitchArgs) error {
	return bridgeerr.Unsupported(protocol.CmdSetPitch)
}

func (d *Desktop) SetVoice(context.Context, model.SetVoiceArgs) error {
	return bridgeerr.Unsupported(protocol.CmdSetVoice)
}

func (d *Desktop) GetAllVoices(context.Context) ([]model.Voice, error) {
	return nil, bridgeerr.Unsupported(protocol.CmdGetAllVoices)
}

func (d *Desktop) GetVoices(context.Context, model.GetVoicesArgs) ([]model.Voice, error) {
	return nil, bridgeerr.Unsupported(protocol.CmdGetVoices)
}

func (d *Desktop) GetGranularities(context.Context) ([]model.Granularity, error) {
	return nil, bridgeerr.Unsupported(protocol.CmdGetGranularities)
}

func (d *Desktop) GetVoiceID(context.Context) (string, error) {
	return "", bridgeerr.Unsupported(protocol.CmdGetVoiceID)
}

func (d *Desktop) GetSpeakingLang(context.Context) (string, error) {
	return "", bridgeerr.Unsupported(protocol.CmdGetSpeakingLang)
}

func (d *Desktop) AuthWithSafari(context.Context, model.AuthRequest) (model.AuthResponse, error) {
	return model.AuthResponse{}, bridgeerr.Unsupported(protocol.CmdAuthWithSafari)
}

func (d *Desktop) CopyURI(context.Context, model.CopyURIRequest) (model.CopyURIResponse, error) {
	return model.CopyURIResponse{}, bridgeerr.Unsupported(protocol.CmdCopyURI)
}

func (d *Desktop) UseBackgroundAudio(context.Context, model.UseBackgroundAudioRequest) error {
	return bridgeerr.Unsupported(protocol.CmdUseBackgroundAudio)
}

func (d *Desktop) InstallPackage(context.Context, model.InstallPackageRequest) (model.InstallPackageResponse, error) {
	return model.InstallPackageResponse{}, bridgeerr.Unsupported(protocol.CmdInstallPackage)
}

func (d *Desktop) SetSystemUIVisibility(context.Context, model.SetSystemUIVisibilityRequest) (model.SetSystemUIVisibilityResponse, error) {
	return model.SetSystemUIVisibilityResponse{}, bridgeerr.Unsupported(protocol.CmdSetSystemUIVisibility)
}

func (d *Desktop) GetStatusBarHeight(context.Context) (model.GetStatusBarHeightResponse, error) {
	return model.GetStatusBarHeightResponse{}, bridgeerr.Unsupported(protocol.CmdGetStatusBarHeight)
}

// GetSysFontsList reports installed fonts. A scan failure is returned in the
// response's error field alongside whatever was found.
func (d *Desktop) GetSysFontsList(ctx context.Context) (model.GetSysFontsListResponse, error) {
	if d.fonts == nil {
		return model.GetSysFontsListResponse{}, bridgeerr.Unsupported(protocol.CmdGetSysFontsList)
	}
	fonts, err := d.fonts.Fonts(ctx)
	if fonts == nil {
		fonts = map[string]string{}
	}
	resp := model.GetSysFontsListResponse{Fonts: fonts}
	if err != nil {
		d.logger.Warn().Err(err).Msg("font scan incomplete")
		msg := err.Error()
		resp.Error = &msg
	}
	return resp, nil
}

func (d *Desktop) InterceptKeys(context.Context, model.InterceptKeysRequest) error {
	return bridgeerr.Unsupported(protocol.CmdInterceptKeys)
}

func (d *Desktop) LockScreenOrientation(context.Context, model.LockScreenOrientationRequest) error {
	return bridgeerr.Unsupported(protocol.CmdLockScreenOrientation)
}

func (d *Desktop) IAPInitialize(context.Context, model.IAPInitializeRequest) (model.IAPInitializeResponse, error) {
	return model.IAPInitializeResponse{}, bridgeerr.Unsupported(protocol.CmdIAPInitialize)
}

func (d *Desktop) IAPFetchProducts(context.Context, model.IAPFetchProductsRequest) (model.IAPFetchProductsResponse, error) {
	return model.IAPFetchProductsResponse{}, bridgeerr.Unsupported(protocol.CmdIAPFetchProducts)
}

func (d *Desktop) IAPPurchaseProduct(context.Context, model.IAPPurchaseProductRequest) (model.IAPPurchaseProductResponse, error) {
	return model.IAPPurchaseProductResponse{}, bridgeerr.Unsupported(protocol.CmdIAPPurchaseProduct)
}

func (d *Desktop) IAPRestorePurchases(context.Context) (model.IAPRestorePurchasesResponse, error) {
	return model.IAPRestorePurchasesResponse{}, bridgeerr.Unsupported(protocol.CmdIAPRestorePurchases)
}

func (d *Desktop) ListenTTSEvents(context.Context, func([]byte)) (StopFunc, error) {
	return nil, bridgeerr.Unsupported(protocol.CmdRegisterListener)
}
