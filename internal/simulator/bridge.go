package simulator

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/plugin"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// FontLister enumerates installed fonts.
type FontLister interface {
	Fonts(ctx context.Context) (map[string]string, error)
}

// DefaultFonts is reported when no FontLister is configured.
var DefaultFonts = map[string]string{
	"Roboto":          "/system/fonts/Roboto-Regular.ttf",
	"Noto Serif":      "/system/fonts/NotoSerif-Regular.ttf",
	"Droid Sans Mono": "/system/fonts/DroidSansMono.ttf",
}

// UIState is what the bridge engine was last told about the system UI.
type UIState struct {
	Visible         bool
	DarkMode        bool
	BackgroundAudio bool
	VolumeKeys      bool
	BackKey         bool
	Orientation     model.Orientation
}

// BridgeEngine simulates the system bridge: auth, file copy, system UI and
// fonts.
type BridgeEngine struct {
	redirectURL     string
	statusBarHeight uint32
	fonts           FontLister
	logger          zerolog.Logger

	mu sync.Mutex
	ui UIState
}

// NewBridgeEngine returns a BridgeEngine. fonts may be nil.
func NewBridgeEngine(redirectURL string, statusBarHeight uint32, fonts FontLister, logger zerolog.Logger) *BridgeEngine {
	return &BridgeEngine{
		redirectURL:     redirectURL,
		statusBarHeight: statusBarHeight,
		fonts:           fonts,
		logger:          logger.With().Str("engine", "bridge").Logger(),
		ui:              UIState{Visible: true, Orientation: model.OrientationAuto},
	}
}

// UI returns the current system UI state.
func (b *BridgeEngine) UI() UIState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ui
}

// Handlers returns the system bridge methods of the bridge plugin.
func (b *BridgeEngine) Handlers() map[string]plugin.Handler {
	return map[string]plugin.Handler{
		protocol.CmdAuthWithSafari:        plugin.Typed(b.authWithSafari),
		protocol.CmdCopyURI:               plugin.Typed(b.copyURI),
		protocol.CmdUseBackgroundAudio:    plugin.Typed(b.useBackgroundAudio),
		protocol.CmdInstallPackage:        plugin.Typed(b.installPackage),
		protocol.CmdSetSystemUIVisibility: plugin.Typed(b.setSystemUIVisibility),
		protocol.CmdGetStatusBarHeight:    plugin.Typed(b.getStatusBarHeight),
		protocol.CmdGetSysFontsList:       plugin.Typed(b.getSysFontsList),
		protocol.CmdInterceptKeys:         plugin.Typed(b.interceptKeys),
		protocol.CmdLockScreenOrientation: plugin.Typed(b.lockScreenOrientation),
	}
}

// authWithSafari completes the flow immediately, echoing the auth URL's
// state parameter into the redirect.
func (b *BridgeEngine) authWithSafari(_ context.Context, req model.AuthRequest) (model.AuthResponse, error) {
	auth, err := url.Parse(req.AuthURL)
	if err != nil {
		return model.AuthResponse{}, err
	}
	redirect, err := url.Parse(b.redirectURL)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("bad redirect url: %w", err)
	}
	q := redirect.Query()
	q.Set("code", uuid.NewString())
	if state := auth.Query().Get("state"); state != "" {
		q.Set("state", state)
	}
	redirect.RawQuery = q.Encode()
	return model.AuthResponse{RedirectURL: redirect.String()}, nil
}

// copyURI copies a local file or file:// URI. Failures are reported in the
// response, not as a call error.
func (b *BridgeEngine) copyURI(_ context.Context, req model.CopyURIRequest) (model.CopyURIResponse, error) {
	src := req.URI
	if u, err := url.Parse(req.URI); err == nil && u.Scheme != "" {
		if u.Scheme != "file" {
			msg := fmt.Sprintf("unsupported uri scheme %q", u.Scheme)
			return model.CopyURIResponse{Success: false, Error: &msg}, nil
		}
		src = u.Path
	}
	if err := copyFile(src, req.Dst); err != nil {
		msg := err.Error()
		return model.CopyURIResponse{Success: false, Error: &msg}, nil
	}
	return model.CopyURIResponse{Success: true}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (b *BridgeEngine) useBackgroundAudio(_ context.Context, req model.UseBackgroundAudioRequest) (model.Empty, error) {
	b.mu.Lock()
	b.ui.BackgroundAudio = req.Enabled
	b.mu.Unlock()
	return model.Empty{}, nil
}

func (b *BridgeEngine) installPackage(_ context.Context, req model.InstallPackageRequest) (model.InstallPackageResponse, error) {
	msg := "package installation is not available on this device"
	if !strings.HasSuffix(req.Path, ".apk") {
		msg = fmt.Sprintf("%s is not an installable package", filepath.Base(req.Path))
	}
	return model.InstallPackageResponse{Success: false, Error: &msg}, nil
}

func (b *BridgeEngine) setSystemUIVisibility(_ context.Context, req model.SetSystemUIVisibilityRequest) (model.SetSystemUIVisibilityResponse, error) {
	b.mu.Lock()
	b.ui.Visible = req.Visible
	b.ui.DarkMode = req.DarkMode
	b.mu.Unlock()
	return model.SetSystemUIVisibilityResponse{Success: true}, nil
}

func (b *BridgeEngine) getStatusBarHeight(context.Context, model.Empty) (model.GetStatusBarHeightResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ui.Visible {
		return model.GetStatusBarHeightResponse{Height: 0}, nil
	}
	return model.GetStatusBarHeightResponse{Height: b.statusBarHeight}, nil
}

func (b *BridgeEngine) getSysFontsList(ctx context.Context, _ model.Empty) (model.GetSysFontsListResponse, error) {
	if b.fonts == nil {
		return model.GetSysFontsListResponse{Fonts: maps.Clone(DefaultFonts)}, nil
	}
	fonts, err := b.fonts.Fonts(ctx)
	if fonts == nil {
		fonts = map[string]string{}
	}
	resp := model.GetSysFontsListResponse{Fonts: fonts}
	if err != nil {
		msg := err.Error()
		resp.Error = &msg
	}
	return resp, nil
}

func (b *BridgeEngine) interceptKeys(_ context.Context, req model.InterceptKeysRequest) (model.Empty, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if req.VolumeKeys != nil {
		b.ui.VolumeKeys = *req.VolumeKeys
	}
	if req.BackKey != nil {
		b.ui.BackKey = *req.BackKey
	}
	return model.Empty{}, nil
}

func (b *BridgeEngine) lockScreenOrientation(_ context.Context, req model.LockScreenOrientationRequest) (model.Empty, error) {
	b.mu.Lock()
	b.ui.Orientation = req.Orientation
	b.mu.Unlock()
	return model.Empty{}, nil
}
