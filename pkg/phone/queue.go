package phone

import (
	"context"
	"errors"
	"sync"

	"github.com/haivivi/rotaryphone/pkg/linphone"
)

var errQueueClosed = errors.New("phone: event queue closed")

// event is anything the orchestrator goroutine handles.
type event interface{}

type hookEvent struct {
	state HookState
}

// digitEvent carries the sequence dialed so far in a dial session.
type digitEvent struct {
	session  uint64
	sequence string
}

type timerEvent struct {
	kind timerKind
	gen  uint64
}

// bridgeEvent carries an event from the bridge of generation gen.
type bridgeEvent struct {
	gen uint64
	ev  linphone.Event
}

// probeEvent is a watchdog result. Once applied, done receives whether the
// phone is fully operational.
type probeEvent struct {
	err  error
	done chan bool
}

type dndEvent struct {
	on bool
}

// queue is an unbounded FIFO with a single consumer. Producers never block.
type queue struct {
	notify chan struct{}

	mu     sync.Mutex
	closed bool
	items  []event
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

// post appends ev. It reports false once the queue is closed.
func (q *queue) post(ev event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, ev)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// next blocks until an event is available, the queue is closed or ctx is done.
func (q *queue) next(ctx context.Context) (event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, errQueueClosed
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// close rejects further posts and drops pending events.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// len returns the number of pending events.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
