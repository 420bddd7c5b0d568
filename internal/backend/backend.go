// Package backend holds the capability surface every platform variant
// implements and the variants themselves. Exactly one variant is compiled
// into a binary; Open returns it.
package backend

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/model"
)

// TTS is the text-to-speech capability.
type TTS interface {
	Init(ctx context.Context) (bool, error)
	Speak(ctx context.Context, args model.SpeakArgs) (model.SpeakResponse, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	SetPrimaryLang(ctx context.Context, args model.SetLangArgs) error
	SetRate(ctx context.Context, args model.SetRateArgs) error
	SetPitch(ctx context.Context, args model.SetPitchArgs) error
	SetVoice(ctx context.Context, args model.SetVoiceArgs) error
	GetAllVoices(ctx context.Context) ([]model.Voice, error)
	GetVoices(ctx context.Context, args model.GetVoicesArgs) ([]model.Voice, error)
	GetGranularities(ctx context.Context) ([]model.Granularity, error)
	GetVoiceID(ctx context.Context) (string, error)
	GetSpeakingLang(ctx context.Context) (string, error)
}

// SystemBridge covers the system UI, file and auth helpers.
type SystemBridge interface {
	AuthWithSafari(ctx context.Context, req model.AuthRequest) (model.AuthResponse, error)
	CopyURI(ctx context.Context, req model.CopyURIRequest) (model.CopyURIResponse, error)
	UseBackgroundAudio(ctx context.Context, req model.UseBackgroundAudioRequest) error
	InstallPackage(ctx context.Context, req model.InstallPackageRequest) (model.InstallPackageResponse, error)
	SetSystemUIVisibility(ctx context.Context, req model.SetSystemUIVisibilityRequest) (model.SetSystemUIVisibilityResponse, error)
	GetStatusBarHeight(ctx context.Context) (model.GetStatusBarHeightResponse, error)
	GetSysFontsList(ctx context.Context) (model.GetSysFontsListResponse, error)
	InterceptKeys(ctx context.Context, req model.InterceptKeysRequest) error
	LockScreenOrientation(ctx context.Context, req model.LockScreenOrientationRequest) error
}

// Store is the in-app purchase capability.
type Store interface {
	IAPInitialize(ctx context.Context, req model.IAPInitializeRequest) (model.IAPInitializeResponse, error)
	IAPFetchProducts(ctx context.Context, req model.IAPFetchProductsRequest) (model.IAPFetchProductsResponse, error)
	IAPPurchaseProduct(ctx context.Context, req model.IAPPurchaseProductRequest) (model.IAPPurchaseProductResponse, error)
	IAPRestorePurchases(ctx context.Context) (model.IAPRestorePurchasesResponse, error)
}

// StopFunc ends an event subscription.
type StopFunc func() error

// EventSource delivers raw TTS event envelopes, one call per event, in the
// order the native side emitted them. sink is never called concurrently.
type EventSource interface {
	ListenTTSEvents(ctx context.Context, sink func(data []byte)) (StopFunc, error)
}

// Backend is the full capability set of one platform variant.
type Backend interface {
	TTS
	SystemBridge
	Store
	EventSource

	// Variant names the compiled-in variant, e.g. "desktop" or "mobile-android".
	Variant() string
	Close() error
}

var (
	_ Backend = (*Desktop)(nil)
	_ Backend = (*Mobile)(nil)
)

// FontLister enumerates installed fonts as name to file path.
type FontLister interface {
	Fonts(ctx context.Context) (map[string]string, error)
}

// Env carries what Open needs to build the variant for this binary. Fields
// unused by the compiled variant are ignored.
type Env struct {
	// NATS connects the mobile variant to its native plugins.
	NATS *nats.Conn
	// Platform overrides the target platform for mobilesim builds.
	Platform string
	// Source is stamped on every invocation.
	Source string
	// Secret signs invocations when non-empty.
	Secret string
	// IAPPublicKey is used by iap_initialize when the request has none.
	IAPPublicKey  string
	InvokeTimeout time.Duration
	// ResolveTimeout bounds plugin resolution at startup.
	ResolveTimeout time.Duration
	Fonts          FontLister
	Logger         zerolog.Logger
}

// DefaultInvokeTimeout bounds a single native call when Env leaves it unset.
const DefaultInvokeTimeout = 30 * time.Second

// DefaultResolveTimeout bounds startup resolution when Env leaves it unset.
const DefaultResolveTimeout = 10 * time.Second
