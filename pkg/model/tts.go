package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
)

// Rate and pitch bounds accepted by the TTS commands.
const (
	MinRate  float32 = 0.2
	MaxRate  float32 = 3.0
	MinPitch float32 = 0.5
	MaxPitch float32 = 2.0
)

// Voice describes a native text-to-speech voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Lang     string `json:"lang"`
	Disabled bool   `json:"disabled"`
}

func (v *Voice) UnmarshalJSON(data []byte) error {
	type plain Voice
	return decodeObject(data, (*plain)(v), "id", "name", "lang")
}

// TTSMessageEvent is an unsolicited event from the native TTS engine.
type TTSMessageEvent struct {
	Code        EventCode `json:"code"`
	Message     *string   `json:"message,omitempty"`
	Mark        *string   `json:"mark,omitempty"`
	UtteranceID *string   `json:"utteranceId,omitempty"`
}

func (e *TTSMessageEvent) UnmarshalJSON(data []byte) error {
	type plain TTSMessageEvent
	return decodeObject(data, (*plain)(e), "code")
}

type InitResponse struct {
	Success bool `json:"success"`
}

func (r *InitResponse) UnmarshalJSON(data []byte) error {
	type plain InitResponse
	return decodeObject(data, (*plain)(r), "success")
}

// SpeakArgs carries plain text or SSML to speak. Preload queues the
// utterance behind the one in flight instead of interrupting it.
type SpeakArgs struct {
	Text    string `json:"text"`
	Preload bool   `json:"preload"`
}

func (a *SpeakArgs) UnmarshalJSON(data []byte) error {
	type plain SpeakArgs
	return decodeObject(data, (*plain)(a), "text")
}

func (a SpeakArgs) Validate() error {
	if strings.TrimSpace(a.Text) == "" {
		return fmt.Errorf("text must not be empty")
	}
	return nil
}

// IsSSML reports whether the text is an SSML document.
func (a SpeakArgs) IsSSML() bool {
	return strings.HasPrefix(strings.TrimSpace(a.Text), "<speak")
}

type SpeakResponse struct {
	UtteranceID string `json:"utteranceId"`
}

func (r *SpeakResponse) UnmarshalJSON(data []byte) error {
	type plain SpeakResponse
	return decodeObject(data, (*plain)(r), "utteranceId")
}

type SetRateArgs struct {
	Rate float32 `json:"rate"`
}

func (a *SetRateArgs) UnmarshalJSON(data []byte) error {
	type plain SetRateArgs
	return decodeObject(data, (*plain)(a), "rate")
}

func (a SetRateArgs) Validate() error {
	return checkRange("rate", a.Rate, MinRate, MaxRate)
}

type SetPitchArgs struct {
	Pitch float32 `json:"pitch"`
}

func (a *SetPitchArgs) UnmarshalJSON(data []byte) error {
	type plain SetPitchArgs
	return decodeObject(data, (*plain)(a), "pitch")
}

func (a SetPitchArgs) Validate() error {
	return checkRange("pitch", a.Pitch, MinPitch, MaxPitch)
}

type SetVoiceArgs struct {
	Voice string `json:"voice"`
}

func (a *SetVoiceArgs) UnmarshalJSON(data []byte) error {
	type plain SetVoiceArgs
	return decodeObject(data, (*plain)(a), "voice")
}

func (a SetVoiceArgs) Validate() error {
	if strings.TrimSpace(a.Voice) == "" {
		return fmt.Errorf("voice must not be empty")
	}
	return nil
}

type SetLangArgs struct {
	Lang string `json:"lang"`
}

func (a *SetLangArgs) UnmarshalJSON(data []byte) error {
	type plain SetLangArgs
	return decodeObject(data, (*plain)(a), "lang")
}

func (a SetLangArgs) Validate() error { return checkLang(a.Lang) }

type GetVoicesArgs struct {
	Lang string `json:"lang"`
}

func (a *GetVoicesArgs) UnmarshalJSON(data []byte) error {
	type plain GetVoicesArgs
	return decodeObject(data, (*plain)(a), "lang")
}

func (a GetVoicesArgs) Validate() error { return checkLang(a.Lang) }

type GetVoicesResponse struct {
	Voices []Voice `json:"voices"`
}

func (r *GetVoicesResponse) UnmarshalJSON(data []byte) error {
	type plain GetVoicesResponse
	return decodeObject(data, (*plain)(r), "voices")
}

// MarshalJSON encodes a nil Voices as an empty collection, never null.
func (r GetVoicesResponse) MarshalJSON() ([]byte, error) {
	type plain GetVoicesResponse
	if r.Voices == nil {
		r.Voices = []Voice{}
	}
	return json.Marshal(plain(r))
}

type GetGranularitiesResponse struct {
	Granularities []Granularity `json:"granularities"`
}

func (r *GetGranularitiesResponse) UnmarshalJSON(data []byte) error {
	type plain GetGranularitiesResponse
	return decodeObject(data, (*plain)(r), "granularities")
}

func (r GetGranularitiesResponse) MarshalJSON() ([]byte, error) {
	type plain GetGranularitiesResponse
	if r.Granularities == nil {
		r.Granularities = []Granularity{}
	}
	return json.Marshal(plain(r))
}

type GetVoiceIDResponse struct {
	VoiceID string `json:"voiceId"`
}

func (r *GetVoiceIDResponse) UnmarshalJSON(data []byte) error {
	type plain GetVoiceIDResponse
	return decodeObject(data, (*plain)(r), "voiceId")
}

type GetSpeakingLangResponse struct {
	Lang string `json:"lang"`
}

func (r *GetSpeakingLangResponse) UnmarshalJSON(data []byte) error {
	type plain GetSpeakingLangResponse
	return decodeObject(data, (*plain)(r), "lang")
}

func checkRange(name string, v, lo, hi float32) error {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%s must be a finite number", name)
	}
	if v < lo || v > hi {
		return fmt.Errorf("%s %g outside [%g, %g]", name, v, lo, hi)
	}
	return nil
}

func checkLang(tag string) error {
	if strings.TrimSpace(tag) == "" {
		return fmt.Errorf("lang must not be empty")
	}
	if _, err := language.Parse(tag); err != nil {
		return fmt.Errorf("lang %q: %w", tag, err)
	}
	return nil
}
