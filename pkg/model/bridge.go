package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

type AuthRequest struct {
	AuthURL string `json:"authUrl"`
}

func (r *AuthRequest) UnmarshalJSON(data []byte) error {
	type plain AuthRequest
	return decodeObject(data, (*plain)(r), "authUrl")
}

func (r AuthRequest) Validate() error {
	u, err := url.Parse(r.AuthURL)
	if err != nil {
		return fmt.Errorf("authUrl: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("authUrl %q must be an absolute URL", r.AuthURL)
	}
	return nil
}

type AuthResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

func (r *AuthResponse) UnmarshalJSON(data []byte) error {
	type plain AuthResponse
	return decodeObject(data, (*plain)(r), "redirectUrl")
}

type CopyURIRequest struct {
	URI string `json:"uri"`
	Dst string `json:"dst"`
}

func (r *CopyURIRequest) UnmarshalJSON(data []byte) error {
	type plain CopyURIRequest
	return decodeObject(data, (*plain)(r), "uri", "dst")
}

func (r CopyURIRequest) Validate() error {
	if err := nonEmpty("uri", r.URI); err != nil {
		return err
	}
	return nonEmpty("dst", r.Dst)
}

// CopyURIResponse reports a copy that may have completed with a warning in
// Error even when Success is true.
type CopyURIResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

func (r *CopyURIResponse) UnmarshalJSON(data []byte) error {
	type plain CopyURIResponse
	return decodeObject(data, (*plain)(r), "success")
}

type UseBackgroundAudioRequest struct {
	Enabled bool `json:"enabled"`
}

func (r *UseBackgroundAudioRequest) UnmarshalJSON(data []byte) error {
	type plain UseBackgroundAudioRequest
	return decodeObject(data, (*plain)(r), "enabled")
}

type InstallPackageRequest struct {
	Path string `json:"path"`
}

func (r *InstallPackageRequest) UnmarshalJSON(data []byte) error {
	type plain InstallPackageRequest
	return decodeObject(data, (*plain)(r), "path")
}

func (r InstallPackageRequest) Validate() error { return nonEmpty("path", r.Path) }

type InstallPackageResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

func (r *InstallPackageResponse) UnmarshalJSON(data []byte) error {
	type plain InstallPackageResponse
	return decodeObject(data, (*plain)(r), "success")
}

type SetSystemUIVisibilityRequest struct {
	Visible  bool `json:"visible"`
	DarkMode bool `json:"darkMode"`
}

func (r *SetSystemUIVisibilityRequest) UnmarshalJSON(data []byte) error {
	type plain SetSystemUIVisibilityRequest
	return decodeObject(data, (*plain)(r), "visible", "darkMode")
}

type SetSystemUIVisibilityResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

func (r *SetSystemUIVisibilityResponse) UnmarshalJSON(data []byte) error {
	type plain SetSystemUIVisibilityResponse
	return decodeObject(data, (*plain)(r), "success")
}

type GetStatusBarHeightResponse struct {
	Height uint32  `json:"height"`
	Error  *string `json:"error,omitempty"`
}

func (r *GetStatusBarHeightResponse) UnmarshalJSON(data []byte) error {
	type plain GetStatusBarHeightResponse
	return decodeObject(data, (*plain)(r), "height")
}

// GetSysFontsListResponse maps font names to the file path or family they
// resolve to.
type GetSysFontsListResponse struct {
	Fonts map[string]string `json:"fonts"`
	Error *string           `json:"error,omitempty"`
}

func (r *GetSysFontsListResponse) UnmarshalJSON(data []byte) error {
	type plain GetSysFontsListResponse
	return decodeObject(data, (*plain)(r), "fonts")
}

// MarshalJSON encodes a nil Fonts as an empty collection, never null.
func (r GetSysFontsListResponse) MarshalJSON() ([]byte, error) {
	type plain GetSysFontsListResponse
	if r.Fonts == nil {
		r.Fonts = map[string]string{}
	}
	return json.Marshal(plain(r))
}

// InterceptKeysRequest toggles interception of hardware keys. A nil field
// leaves that key's current interception unchanged.
type InterceptKeysRequest struct {
	VolumeKeys *bool `json:"volumeKeys,omitempty"`
	BackKey    *bool `json:"backKey,omitempty"`
}

type LockScreenOrientationRequest struct {
	Orientation Orientation `json:"orientation"`
}

func (r *LockScreenOrientationRequest) UnmarshalJSON(data []byte) error {
	type plain LockScreenOrientationRequest
	return decodeObject(data, (*plain)(r), "orientation")
}

func nonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	return nil
}
