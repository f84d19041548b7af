package runtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// timerNode is one deadline in the ascending list. Handles for identical
// deadlines coalesce onto a single node.
type timerNode struct {
	deadline time.Time
	ready    []Readiness
	next     *timerNode
}

// timerThread runs the deadline list on its own goroutine: sleep until the
// head is due, fire every handle on it, park while the list is empty. An
// insertion that becomes the new head wakes the thread early.
type timerThread struct {
	mu   sync.Mutex
	head *timerNode

	wake chan struct{}
	done chan struct{}
	log  *zap.Logger
}

func newTimerThread(log *zap.Logger) *timerThread {
	t := &timerThread{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  log,
	}
	go t.loop()
	return t
}

// insert places rd at its deadline position with a linear scan: equal
// deadlines join the existing node, otherwise a fresh node links in
// ascending order.
func (t *timerThread) insert(deadline time.Time, rd Readiness) {
	t.mu.Lock()
	newHead := false
	switch {
	case t.head == nil:
		t.head = &timerNode{deadline: deadline, ready: []Readiness{rd}}
		newHead = true
	case deadline.Before(t.head.deadline):
		t.head = &timerNode{deadline: deadline, ready: []Readiness{rd}, next: t.head}
		newHead = true
	default:
		n := t.head
		for n.next != nil && n.next.deadline.Before(deadline) {
			n = n.next
		}
		switch {
		case n.deadline.Equal(deadline):
			n.ready = append(n.ready, rd)
		case n.next != nil && n.next.deadline.Equal(deadline):
			n.next.ready = append(n.next.ready, rd)
		default:
			n.next = &timerNode{deadline: deadline, ready: []Readiness{rd}, next: n.next}
		}
	}
	t.mu.Unlock()
	if newHead {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
}

func (t *timerThread) loop() {
	for {
		t.mu.Lock()
		head := t.head
		var due []Readiness
		if head != nil && !head.deadline.After(time.Now()) {
			t.head = head.next
			due = head.ready
		}
		t.mu.Unlock()

		if due != nil {
			t.log.Debug("timer deadline fired", zap.Int("handles", len(due)))
			for _, rd := range due {
				rd.Ready()
			}
			continue
		}

		if head == nil {
			select {
			case <-t.wake:
			case <-t.done:
				return
			}
			continue
		}

		timer := time.NewTimer(time.Until(head.deadline))
		select {
		case <-timer.C:
		case <-t.wake:
			timer.Stop()
		case <-t.done:
			timer.Stop()
			return
		}
	}
}

func (t *timerThread) stop() {
	close(t.done)
}
