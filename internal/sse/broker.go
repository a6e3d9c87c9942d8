// Package sse streams plan changes to clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeDocumentCreated = "document.created"
	TypeDocumentUpdated = "document.updated"
	TypeDocumentDeleted = "document.deleted"
	TypePlanInvalidated = "plan.invalidated"
	TypePlanRefreshed   = "plan.refreshed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// DocumentChange is a source document mutation. Planned reports whether
// the document holds (or held) tasks, so whether the plan is now stale.
type DocumentChange struct {
	Kind    string // created, updated or deleted
	Path    string
	DocID   string
	Planned bool
}

// PlanSummary describes a finished refresh.
type PlanSummary struct {
	Projects    int
	Items       int
	RefreshedAt time.Time
}

type documentPayload struct {
	Path    string `json:"path"`
	DocID   string `json:"docId,omitempty"`
	Planned bool   `json:"planned"`
}

// InvalidatedPayload is the data of a plan.invalidated event: the
// documents changed since the previous invalidation.
type InvalidatedPayload struct {
	DocIDs []string `json:"docIds"`
}

// RefreshedPayload is the data of a plan.refreshed event. ChangedDocIDs
// lists the planned documents changed since the previous refresh.
type RefreshedPayload struct {
	Projects      int       `json:"projects"`
	Items         int       `json:"items"`
	RefreshedAt   time.Time `json:"refreshedAt"`
	ChangedDocIDs []string  `json:"changedDocIds"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the client set and the plan bookkeeping (pending
// invalidations, documents changed since the last refresh, the last refresh
// payload). Public methods talk to it over channels.
type Broker struct {
	invalidateMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	documentCh    chan DocumentChange
	refreshedCh   chan PlanSummary
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. plan.invalidated is sent at most once
// per throttle interval; changes arriving in between are batched into the
// next one.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		invalidateMin: throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		documentCh:    make(chan DocumentChange, 256),
		refreshedCh:   make(chan PlanSummary, 16),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) []byte {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
}

// docSet is an insertion-ordered set of document ids.
type docSet struct {
	ids  []string
	seen map[string]struct{}
}

func (s *docSet) add(id string) {
	if id == "" {
		return
	}
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

// take returns the ids sorted and empties the set.
func (s *docSet) take() []string {
	ids := s.ids
	if ids == nil {
		ids = []string{}
	}
	slices.Sort(ids)
	*s = docSet{}
	return ids
}

func (s *docSet) empty() bool { return len(s.ids) == 0 }

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastInvalidate time.Time
		pending        docSet // awaiting plan.invalidated
		sinceRefresh   docSet // awaiting plan.refreshed
		lastRefreshed  []byte

		flushTimer *time.Timer
		flushCh    <-chan time.Time
	)

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Client buffer full; skip to avoid blocking broker loop.
		}
	}
	broadcast := func(event Event) {
		raw := encode(event)
		if raw == nil {
			return
		}
		for ch := range clients {
			send(ch, raw)
		}
	}
	invalidate := func(now time.Time) {
		lastInvalidate = now
		broadcast(Event{Type: TypePlanInvalidated, Data: InvalidatedPayload{DocIDs: pending.take()}})
	}

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			// New clients start from the latest plan.
			if lastRefreshed != nil {
				send(ch, lastRefreshed)
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case c := <-b.documentCh:
			var typ string
			switch c.Kind {
			case "created":
				typ = TypeDocumentCreated
			case "updated":
				typ = TypeDocumentUpdated
			case "deleted":
				typ = TypeDocumentDeleted
			default:
				continue
			}
			broadcast(Event{Type: typ, Data: documentPayload{Path: c.Path, DocID: c.DocID, Planned: c.Planned}})
			if !c.Planned {
				continue
			}
			pending.add(c.DocID)
			sinceRefresh.add(c.DocID)

			now := time.Now()
			if wait := b.invalidateMin - now.Sub(lastInvalidate); wait > 0 {
				if flushCh == nil {
					flushTimer = time.NewTimer(wait)
					flushCh = flushTimer.C
				}
				continue
			}
			invalidate(now)

		case <-flushCh:
			flushTimer, flushCh = nil, nil
			if !pending.empty() {
				invalidate(time.Now())
			}

		case sum := <-b.refreshedCh:
			raw := encode(Event{Type: TypePlanRefreshed, Data: RefreshedPayload{
				Projects:      sum.Projects,
				Items:         sum.Items,
				RefreshedAt:   sum.RefreshedAt,
				ChangedDocIDs: sinceRefresh.take(),
			}})
			lastRefreshed = raw
			for ch := range clients {
				send(ch, raw)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. If a refresh has
// already happened the channel starts with its plan.refreshed event.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishDocumentChange broadcasts a document event. Planned changes also
// feed the throttled plan.invalidated event and the next plan.refreshed.
func (b *Broker) PublishDocumentChange(c DocumentChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.documentCh <- c:
	case <-b.stopped:
	}
}

// PublishPlanRefreshed tells clients a new plan is available.
func (b *Broker) PublishPlanRefreshed(sum PlanSummary) {
	if b.closed.Load() {
		return
	}
	select {
	case b.refreshedCh <- sum:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
