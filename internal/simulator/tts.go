package simulator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/plugin"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// ErrNotInitialized is returned for TTS calls that need init first.
var ErrNotInitialized = errors.New("tts engine not initialized")

// Emitter publishes native events.
type Emitter interface {
	Emit(eventType string, payload any) error
}

// DefaultVoices is the simulated voice catalogue.
var DefaultVoices = []model.Voice{
	{ID: "en-us-x-sfg", Name: "English (United States) Sofia", Lang: "en-US"},
	{ID: "en-gb-x-rjs", Name: "English (United Kingdom) Ryan", Lang: "en-GB"},
	{ID: "de-de-x-nfh", Name: "Deutsch Nils", Lang: "de-DE"},
	{ID: "fr-fr-x-frd", Name: "Français Denise", Lang: "fr-FR", Disabled: true},
	{ID: "zh-cn-x-ccc", Name: "中文 Xiaoxiao", Lang: "zh-CN"},
}

var (
	ssmlTag = regexp.MustCompile(`<[^>]*>`)
	spaces  = regexp.MustCompile(`\s+`)
)

// plainText strips SSML markup the way a native engine does before speaking,
// so boundary offsets refer to the returned string.
func plainText(ssml string) string {
	text := ssmlTag.ReplaceAllString(ssml, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(text, " "))
}

type utterance struct {
	id   string
	text string
}

// TTSEngine simulates a native speech engine. Utterances are spoken one at
// a time on a worker goroutine; each one emits a "start" boundary, one
// boundary per word and an end event.
type TTSEngine struct {
	voices    []model.Voice
	wordDelay time.Duration
	logger    zerolog.Logger

	mu          sync.Mutex
	cond        *sync.Cond
	emitter     Emitter
	initialized bool
	paused      bool
	closed      bool
	rate        float32
	pitch       float32
	voiceID     string
	lang        string
	queue       []utterance
	gen         uint64
}

// NewTTSEngine returns a stopped engine with the given voices. wordDelay is
// the time one word takes at rate 1.0.
func NewTTSEngine(voices []model.Voice, wordDelay time.Duration, logger zerolog.Logger) *TTSEngine {
	e := &TTSEngine{
		voices:    voices,
		wordDelay: wordDelay,
		rate:      1,
		pitch:     1,
		logger:    logger.With().Str("engine", "tts").Logger(),
	}
	e.cond = sync.NewCond(&e.mu)
	go e.run()
	return e
}

// Attach sets where events go.
func (e *TTSEngine) Attach(emitter Emitter) {
	e.mu.Lock()
	e.emitter = emitter
	e.mu.Unlock()
}

// Close stops the worker.
func (e *TTSEngine) Close() {
	e.mu.Lock()
	e.closed = true
	e.gen++
	e.mu.Unlock()
	e.cond.Broadcast()
}

// Handlers returns the native methods of the TTS plugin.
func (e *TTSEngine) Handlers() map[string]plugin.Handler {
	return map[string]plugin.Handler{
		protocol.CmdInit:             plugin.Typed(e.init),
		protocol.CmdSpeak:            plugin.Typed(e.speak),
		protocol.CmdPause:            plugin.Typed(e.pause),
		protocol.CmdResume:           plugin.Typed(e.resume),
		protocol.CmdStop:             plugin.Typed(e.stop),
		protocol.CmdSetPrimaryLang:   plugin.Typed(e.setPrimaryLang),
		protocol.CmdSetRate:          plugin.Typed(e.setRate),
		protocol.CmdSetPitch:         plugin.Typed(e.setPitch),
		protocol.CmdSetVoice:         plugin.Typed(e.setVoice),
		protocol.CmdGetAllVoices:     plugin.Typed(e.getAllVoices),
		protocol.CmdGetVoices:        plugin.Typed(e.getVoices),
		protocol.CmdGetGranularities: plugin.Typed(e.getGranularities),
		protocol.CmdGetVoiceID:       plugin.Typed(e.getVoiceID),
		protocol.CmdGetSpeakingLang:  plugin.Typed(e.getSpeakingLang),
	}
}

func (e *TTSEngine) init(context.Context, model.Empty) (model.InitResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		e.initialized = true
		if v, ok := e.firstVoice(""); ok {
			e.voiceID, e.lang = v.ID, v.Lang
		}
	}
	return model.InitResponse{Success: true}, nil
}

func (e *TTSEngine) speak(_ context.Context, args model.SpeakArgs) (model.SpeakResponse, error) {
	text := args.Text
	if args.IsSSML() {
		text = plainText(text)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return model.SpeakResponse{}, ErrNotInitialized
	}
	u := utterance{id: uuid.NewString(), text: text}
	if !args.Preload {
		e.flushLocked()
	}
	e.queue = append(e.queue, u)
	e.cond.Broadcast()
	return model.SpeakResponse{UtteranceID: u.id}, nil
}

// flushLocked abandons the utterance in flight and everything queued.
func (e *TTSEngine) flushLocked() {
	e.gen++
	e.queue = nil
	e.paused = false
	e.cond.Broadcast()
}

func (e *TTSEngine) pause(context.Context, model.Empty) (model.Empty, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return model.Empty{}, ErrNotInitialized
	}
	e.paused = true
	return model.Empty{}, nil
}

func (e *TTSEngine) resume(context.Context, model.Empty) (model.Empty, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return model.Empty{}, ErrNotInitialized
	}
	e.paused = false
	e.cond.Broadcast()
	return model.Empty{}, nil
}

func (e *TTSEngine) stop(context.Context, model.Empty) (model.Empty, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
	return model.Empty{}, nil
}

func (e *TTSEngine) setPrimaryLang(_ context.Context, args model.SetLangArgs) (model.Empty, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lang = args.Lang
	if cur, ok := e.voice(e.voiceID); !ok || !sameLanguage(cur.Lang, args.Lang) {
		if v, ok := e.firstVoice(args.Lang); ok {
			e.voiceID = v.ID
		}
	}
	return model.Empty{}, nil
}

func (e *TTSEngine) setRate(_ context.Context, args model.SetRateArgs) (model.Empty, error) {
	e.mu.Lock()
	e.rate = args.Rate
	e.mu.Unlock()
	return model.Empty{}, nil
}

func (e *TTSEngine) setPitch(_ context.Context, args model.SetPitchArgs) (model.Empty, error) {
	e.mu.Lock()
	e.pitch = args.Pitch
	e.mu.Unlock()
	return model.Empty{}, nil
}

func (e *TTSEngine) setVoice(_ context.Context, args model.SetVoiceArgs) (model.Empty, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.voice(args.Voice)
	if !ok {
		return model.Empty{}, fmt.Errorf("voice %q not found", args.Voice)
	}
	if v.Disabled {
		return model.Empty{}, fmt.Errorf("voice %q is not installed", args.Voice)
	}
	e.voiceID, e.lang = v.ID, v.Lang
	return model.Empty{}, nil
}

func (e *TTSEngine) getAllVoices(context.Context, model.Empty) (model.GetVoicesResponse, error) {
	return model.GetVoicesResponse{Voices: append([]model.Voice{}, e.voices...)}, nil
}

func (e *TTSEngine) getVoices(_ context.Context, args model.GetVoicesArgs) (model.GetVoicesResponse, error) {
	voices := []model.Voice{}
	for _, v := range e.voices {
		if sameLanguage(v.Lang, args.Lang) {
			voices = append(voices, v)
		}
	}
	return model.GetVoicesResponse{Voices: voices}, nil
}

func (e *TTSEngine) getGranularities(context.Context, model.Empty) (model.GetGranularitiesResponse, error) {
	return model.GetGranularitiesResponse{Granularities: []model.Granularity{model.GranularityWord, model.GranularitySentence}}, nil
}

func (e *TTSEngine) getVoiceID(context.Context, model.Empty) (model.GetVoiceIDResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.GetVoiceIDResponse{VoiceID: e.voiceID}, nil
}

func (e *TTSEngine) getSpeakingLang(context.Context, model.Empty) (model.GetSpeakingLangResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.GetSpeakingLangResponse{Lang: e.lang}, nil
}

func (e *TTSEngine) voice(id string) (model.Voice, bool) {
	for _, v := range e.voices {
		if v.ID == id {
			return v, true
		}
	}
	return model.Voice{}, false
}

// firstVoice returns the first enabled voice for lang, or any enabled voice
// when lang is empty.
func (e *TTSEngine) firstVoice(lang string) (model.Voice, bool) {
	for _, v := range e.voices {
		if !v.Disabled && (lang == "" || sameLanguage(v.Lang, lang)) {
			return v, true
		}
	}
	return model.Voice{}, false
}

// sameLanguage compares the base languages of two BCP 47 tags.
func sameLanguage(a, b string) bool {
	ta, errA := language.Parse(a)
	tb, errB := language.Parse(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}

func (e *TTSEngine) run() {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if e.closed {
			e.mu.Unlock()
			return
		}
		u := e.queue[0]
		e.queue = e.queue[1:]
		gen := e.gen
		e.mu.Unlock()

		e.say(u, gen)
	}
}

func (e *TTSEngine) say(u utterance, gen uint64) {
	start, rng := "start", "range"
	if !e.emit(gen, model.TTSMessageEvent{Code: model.EventBoundary, Message: &start, UtteranceID: &u.id}) {
		return
	}
	for _, w := range words(u.text) {
		if !e.wait(gen) {
			return
		}
		mark := fmt.Sprintf("pos:%d-%d", w[0], w[1])
		if !e.emit(gen, model.TTSMessageEvent{Code: model.EventBoundary, Message: &rng, Mark: &mark, UtteranceID: &u.id}) {
			return
		}
	}
	e.emit(gen, model.TTSMessageEvent{Code: model.EventEnd, UtteranceID: &u.id})
}

// wait sleeps for one word and blocks while paused. It reports false once
// the utterance has been abandoned.
func (e *TTSEngine) wait(gen uint64) bool {
	e.mu.Lock()
	delay := time.Duration(float64(e.wordDelay) / float64(e.rate))
	e.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for e.paused && e.gen == gen && !e.closed {
		e.cond.Wait()
	}
	return e.gen == gen && !e.closed
}

// emit publishes ev unless the utterance was abandoned. The lock is held
// while publishing so nothing from an abandoned utterance gets out after
// stop returns.
func (e *TTSEngine) emit(gen uint64, ev model.TTSMessageEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen || e.closed {
		return false
	}
	if e.emitter == nil {
		e.logger.Warn().Str("code", string(ev.Code)).Msg("no emitter attached, event dropped")
		return true
	}
	if err := e.emitter.Emit(protocol.EventTypeTTS, ev); err != nil {
		e.logger.Error().Err(err).Msg("emit tts event")
	}
	return true
}

// words returns the byte offsets [start, end) of each word in text.
func words(text string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(text)})
	}
	return spans
}
