package api

import (
	"fmt"
	"net/http"
	"sync"
)

// DefaultRingSize is how many recent events a new subscriber is replayed.
const DefaultRingSize = 256

const subscriberBuffer = 64

// Subscription is one event stream client. Overflow is closed when the
// client fell behind and was removed from the bus.
type Subscription struct {
	C        chan []byte
	Overflow chan struct{}
}

// EventBus fans TTS events out to stream clients and keeps a ring buffer of
// recent events. A client whose buffer is full is cut off rather than skipped.
type EventBus struct {
	mu       sync.Mutex
	clients  map[*Subscription]struct{}
	ring     [][]byte
	ringSize int
	ringPos  int
	ringLen  int
	dropped  int64
}

// NewEventBus creates an event bus with the given ring buffer size.
func NewEventBus(size int) *EventBus {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &EventBus{
		clients:  make(map[*Subscription]struct{}),
		ring:     make([][]byte, size),
		ringSize: size,
	}
}

// Publish records data in the ring and hands it to every client.
func (eb *EventBus) Publish(data []byte) {
	data = append([]byte(nil), data...)

	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.ring[eb.ringPos] = data
	eb.ringPos = (eb.ringPos + 1) % eb.ringSize
	if eb.ringLen < eb.ringSize {
		eb.ringLen++
	}
	for sub := range eb.clients {
		select {
		case sub.C <- data:
		default:
			delete(eb.clients, sub)
			close(sub.Overflow)
			eb.dropped++
		}
	}
}

// Subscribe registers a client and returns the events it should be replayed
// first. No event is both replayed and delivered live.
func (eb *EventBus) Subscribe() (*Subscription, [][]byte) {
	sub := &Subscription{
		C:        make(chan []byte, subscriberBuffer),
		Overflow: make(chan struct{}),
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.clients[sub] = struct{}{}
	return sub, eb.recentLocked()
}

// Unsubscribe removes sub. It is a no-op for a client already cut off.
func (eb *EventBus) Unsubscribe(sub *Subscription) {
	eb.mu.Lock()
	delete(eb.clients, sub)
	eb.mu.Unlock()
}

// Recent returns the ring buffer contents in chronological order.
func (eb *EventBus) Recent() [][]byte {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return eb.recentLocked()
}

func (eb *EventBus) recentLocked() [][]byte {
	result := make([][]byte, 0, eb.ringLen)
	start := (eb.ringPos - eb.ringLen + eb.ringSize) % eb.ringSize
	for i := 0; i < eb.ringLen; i++ {
		result = append(result, eb.ring[(start+i)%eb.ringSize])
	}
	return result
}

// Clients returns the number of connected stream clients.
func (eb *EventBus) Clients() int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.clients)
}

// Dropped returns how many clients were cut off for falling behind.
func (eb *EventBus) Dropped() int64 {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return eb.dropped
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub, recent := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	for _, data := range recent {
		writeEvent(w, data)
	}
	flusher.Flush()

	for {
		select {
		case data := <-sub.C:
			writeEvent(w, data)
			flusher.Flush()
		case <-sub.Overflow:
			// Events already buffered for this client go out before the marker.
		drain:
			for {
				select {
				case data := <-sub.C:
					writeEvent(w, data)
				default:
					break drain
				}
			}
			fmt.Fprint(w, "event: overflow\ndata: {}\n\n")
			flusher.Flush()
			s.logger.Warn().Msg("event stream client fell behind, disconnected")
			return
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, data []byte) {
	fmt.Fprintf(w, "event: tts\ndata: %s\n\n", data)
}
