// Package sse streams organizer activity to HTTP clients as Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/raido/internal/applier"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Event types.
const (
	TypePassStarted  = "pass.started"
	TypePassFinished = "pass.finished"
	TypePassActivity = "pass.activity"
)

// ActionType returns the event type for an outcome kind, e.g. "action.moved".
func ActionType(kind applier.Kind) string {
	return "action." + string(kind)
}

const clientBuffer = 64

// subscriber is one connected stream. An empty prefix list accepts every event.
type subscriber struct {
	out      chan []byte
	prefixes []string
}

func (s *subscriber) wants(typ string) bool {
	if len(s.prefixes) == 0 {
		return true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(typ, p) {
			return true
		}
	}
	return false
}

// offer hands a frame to the client without blocking. A slow client loses it.
func (s *subscriber) offer(frame []byte) {
	select {
	case s.out <- frame:
	default:
	}
}

type countReq chan int

// Broker fans organizer events out to SSE clients.
//
// The event loop goroutine owns the subscriber registry, the frame sequence,
// the last pass event and the activity throttle; everything else reaches it
// through channels. A client joining mid-pass is first sent the most recent
// pass.started or pass.finished frame.
type Broker struct {
	activityEvery time.Duration
	heartbeat     time.Duration

	join    chan *subscriber
	leave   chan (<-chan []byte)
	events  chan Event
	results chan applier.Outcome
	count   chan countReq

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker creates a broker that emits at most one pass.activity event per
// activityThrottle.
func NewBroker(activityThrottle time.Duration) *Broker {
	if activityThrottle <= 0 {
		activityThrottle = 2 * time.Second
	}
	b := &Broker{
		activityEvery: activityThrottle,
		heartbeat:     15 * time.Second,
		join:          make(chan *subscriber),
		leave:         make(chan (<-chan []byte)),
		events:        make(chan Event, 256),
		results:       make(chan applier.Outcome, 256),
		count:         make(chan countReq),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go b.loop()
	return b
}

// encodeFrame renders an event in text/event-stream framing with an id line.
func encodeFrame(seq uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(seq, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

func (b *Broker) loop() {
	defer close(b.done)

	registry := make(map[<-chan []byte]*subscriber)
	var (
		seq          uint64
		lastPass     []byte
		lastPassType string
		lastActivity time.Time
	)

	send := func(ev Event) []byte {
		seq++
		frame, err := encodeFrame(seq, ev)
		if err != nil {
			return nil
		}
		for _, s := range registry {
			if s.wants(ev.Type) {
				s.offer(frame)
			}
		}
		return frame
	}

	for {
		select {
		case <-b.quit:
			for _, s := range registry {
				close(s.out)
			}
			return

		case s := <-b.join:
			registry[s.out] = s
			if lastPass != nil && s.wants(lastPassType) {
				s.offer(lastPass)
			}

		case out := <-b.leave:
			if s, ok := registry[out]; ok {
				delete(registry, out)
				close(s.out)
			}

		case ev := <-b.events:
			frame := send(ev)
			if frame != nil && (ev.Type == TypePassStarted || ev.Type == TypePassFinished) {
				lastPass, lastPassType = frame, ev.Type
			}

		case o := <-b.results:
			send(Event{Type: ActionType(o.Kind), Data: o})
			if now := time.Now(); now.Sub(lastActivity) >= b.activityEvery {
				lastActivity = now
				send(Event{Type: TypePassActivity, Data: map[string]string{"at": now.UTC().Format(time.RFC3339)}})
			}

		case reply := <-b.count:
			reply <- len(registry)
		}
	}
}

// Close stops the event loop and closes every subscriber channel. It is safe
// to call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. With prefixes, only events whose type starts
// with one of them are delivered, e.g. "action." or "pass.finished".
func (b *Broker) Subscribe(prefixes ...string) <-chan []byte {
	s := &subscriber{out: make(chan []byte, clientBuffer), prefixes: prefixes}
	if b.closed.Load() {
		close(s.out)
		return s.out
	}
	select {
	case b.join <- s:
	case <-b.done:
		close(s.out)
	}
	return s.out
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch <-chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	reply := make(countReq, 1)
	select {
	case b.count <- reply:
	case <-b.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Publish sends an event to all interested clients.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// PublishOutcome broadcasts one applied outcome and a throttled pass.activity event.
func (b *Broker) PublishOutcome(o applier.Outcome) {
	if b.closed.Load() {
		return
	}
	select {
	case b.results <- o:
	case <-b.done:
	}
}

// typeFilter reads ?types=action.,pass.finished into subscription prefixes.
func typeFilter(r *http.Request) []string {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	frames := b.Subscribe(typeFilter(r)...)
	defer b.Unsubscribe(frames)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
		case frame, ok := <-frames:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
		}
		flusher.Flush()
	}
}
