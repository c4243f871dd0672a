// Package events pushes course-progress updates to connected UI clients
// over websockets. Delivery is best effort: slow or dead subscribers are
// dropped rather than allowed to stall the publishing path.
package events

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Event kinds published by the session controllers.
const (
	KindBackfillStarted   = "backfill_started"
	KindTopicBackfilled   = "topic_backfilled"
	KindBackfillCompleted = "backfill_completed"
	KindTopicCompleted    = "topic_completed"
	KindModuleProgress    = "module_progress"
	KindModuleCompleted   = "module_completed"
)

// Event is a single progress update for a course view.
type Event struct {
	Kind       string    `json:"kind"`
	CourseID   string    `json:"courseId"`
	ModuleID   int       `json:"moduleId"`
	TopicIndex int       `json:"topicIndex,omitempty"`
	Progress   int       `json:"progress,omitempty"`
	At         time.Time `json:"at"`
}

const subscriberBuffer = 16

// Hub fans events out to websocket subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish sends the event to every subscriber. Publishing never blocks;
// a subscriber whose buffer is full is dropped. Publish on a nil hub is a
// no-op so callers without a UI channel need no special casing.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			delete(h.subs, ch)
			close(ch)
			slog.Warn("dropping slow progress subscriber")
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams events until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// CloseRead cancels the context when the client goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, e)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
