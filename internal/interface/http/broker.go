package httpservice

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

type listener[T any] struct {
	id string
	ch chan T
}

// broker fans out events to multiple listeners. It is safe for concurrent
// use. A listener too slow to keep up misses events rather than blocking the
// others.
type broker[T any] struct {
	lock      *sync.Mutex
	listeners []*listener[T]
	closed    bool
}

func newBroker[T any]() *broker[T] {
	return &broker[T]{
		lock:      &sync.Mutex{},
		listeners: make([]*listener[T], 0),
	}
}

func (h *broker[T]) pushListener(l *listener[T]) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.closed {
		return fmt.Errorf("broker closed")
	}
	h.listeners = append(h.listeners, l)
	return nil
}

func (h *broker[T]) removeListener(id string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for i, listener := range h.listeners {
		if listener.id == id {
			close(listener.ch)
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

func (h *broker[T]) publish(event T) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for _, l := range h.listeners {
		select {
		case l.ch <- event:
		default:
			log.Warnf("listener %s is too slow, dropping event", l.id)
		}
	}
}

func (h *broker[T]) count() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.listeners)
}

// close drops every listener and closes its channel.
func (h *broker[T]) close() {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, l := range h.listeners {
		close(l.ch)
	}
	h.listeners = nil
}
