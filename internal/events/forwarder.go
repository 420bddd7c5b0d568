// Package events forwards native TTS events to a single listener in the
// order the native side emitted them. Nothing is dropped silently: every
// event that cannot be decoded or delivered, and every gap in the native
// sequence numbers, is logged, counted and passed to the error handler.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// ErrClosed is reported for events pushed after Close.
var ErrClosed = errors.New("event forwarder closed")

// Listener receives decoded events. A returned error is reported, and
// delivery continues with the next event.
type Listener func(model.TTSMessageEvent) error

// ErrorHandler is told about every event that was not delivered and every
// sequence gap. It runs on the delivery goroutine, except for events pushed
// after Close, which are reported from Push.
type ErrorHandler func(err error)

// DeliveryError wraps a failure to decode or deliver one event.
type DeliveryError struct {
	Source string
	Seq    uint64
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("event delivery: %v", e.Err)
	}
	return fmt.Sprintf("event %s#%d: %v", e.Source, e.Seq, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// GapError reports native events that never arrived. The bus delivers at
// most once, so a gap is the only trace a lost event leaves.
type GapError struct {
	Source   string
	Expected uint64
	Got      uint64
}

func (e *GapError) Error() string {
	return fmt.Sprintf("events from %s missing: expected #%d, got #%d", e.Source, e.Expected, e.Got)
}

// Missing returns how many events were lost.
func (e *GapError) Missing() uint64 { return e.Got - e.Expected }

// Options configures a Forwarder.
type Options struct {
	OnError ErrorHandler
	Logger  zerolog.Logger
}

// Stats counts what happened to pushed events.
type Stats struct {
	Received  int64 `json:"received"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Missed    int64 `json:"missed"`
}

// Forwarder queues raw event envelopes without bound and delivers them on a
// single goroutine. Push never blocks the native side.
type Forwarder struct {
	listener Listener
	onError  ErrorHandler
	logger   zerolog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
	done   chan struct{}

	lastSeq map[string]uint64

	received  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	missed    atomic.Int64
}

// New starts a Forwarder delivering to listener.
func New(listener Listener, opts Options) *Forwarder {
	f := &Forwarder{
		listener: listener,
		onError:  opts.OnError,
		logger:   opts.Logger.With().Str("component", "events").Logger(),
		done:     make(chan struct{}),
		lastSeq:  make(map[string]uint64),
	}
	f.cond = sync.NewCond(&f.mu)
	go f.run()
	return f
}

// Push enqueues one raw event envelope.
func (f *Forwarder) Push(data []byte) {
	f.received.Add(1)
	buf := append([]byte(nil), data...)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		f.report(&DeliveryError{Err: ErrClosed})
		return
	}
	f.queue = append(f.queue, buf)
	f.mu.Unlock()
	f.cond.Signal()
}

func (f *Forwarder) run() {
	defer close(f.done)
	for {
		f.mu.Lock()
		for len(f.queue) == 0 && !f.closed {
			f.cond.Wait()
		}
		if len(f.queue) == 0 {
			f.mu.Unlock()
			return
		}
		data := f.queue[0]
		f.queue[0] = nil
		f.queue = f.queue[1:]
		f.mu.Unlock()

		f.deliver(data)
	}
}

func (f *Forwarder) deliver(data []byte) {
	var env protocol.Event
	if err := json.Unmarshal(data, &env); err != nil {
		f.report(&DeliveryError{Err: fmt.Errorf("envelope: %w", err)})
		return
	}
	f.checkSequence(env)

	if env.Type != protocol.EventTypeTTS {
		f.report(&DeliveryError{Source: env.Source, Seq: env.Seq, Err: fmt.Errorf("unexpected event type %q", env.Type)})
		return
	}
	ev, err := model.Decode[model.TTSMessageEvent](env.Payload)
	if err != nil {
		f.report(&DeliveryError{Source: env.Source, Seq: env.Seq, Err: fmt.Errorf("payload: %w", err)})
		return
	}
	if err := f.call(ev); err != nil {
		f.report(&DeliveryError{Source: env.Source, Seq: env.Seq, Err: err})
		return
	}
	f.delivered.Add(1)
}

func (f *Forwarder) call(ev model.TTSMessageEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return f.listener(ev)
}

// checkSequence reports lost events. A sequence that restarts at or below
// the last seen number means the plugin restarted.
func (f *Forwarder) checkSequence(env protocol.Event) {
	if env.Seq == 0 {
		return
	}
	last, seen := f.lastSeq[env.Source]
	f.lastSeq[env.Source] = env.Seq
	switch {
	case !seen:
		if env.Seq > 1 {
			f.logger.Info().Str("source", env.Source).Uint64("seq", env.Seq).Msg("joined event stream mid-sequence")
		}
	case env.Seq <= last:
		f.logger.Info().Str("source", env.Source).Uint64("seq", env.Seq).Uint64("last", last).Msg("event sequence restarted")
	case env.Seq > last+1:
		gap := &GapError{Source: env.Source, Expected: last + 1, Got: env.Seq}
		f.missed.Add(int64(gap.Missing()))
		f.report(gap)
	}
}

func (f *Forwarder) report(err error) {
	var gap *GapError
	if !errors.As(err, &gap) {
		f.failed.Add(1)
	}
	f.logger.Error().Err(err).Msg("tts event not delivered")
	if f.onError != nil {
		f.onError(err)
	}
}

// Close stops accepting events and returns once the queue has drained.
func (f *Forwarder) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cond.Broadcast()
	<-f.done
}

// Stats returns a snapshot of the counters.
func (f *Forwarder) Stats() Stats {
	return Stats{
		Received:  f.received.Load(),
		Delivered: f.delivered.Load(),
		Failed:    f.failed.Load(),
		Missed:    f.missed.Load(),
	}
}
