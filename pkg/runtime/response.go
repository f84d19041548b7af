package runtime

import (
	"fmt"
	"sync"
)

// ResponseTable is the lock-guarded token → response map a builtin module
// shares with its workers. The worker Puts exactly one response before
// signaling readiness; the run loop Takes it exactly once on delivery.
type ResponseTable[T any] struct {
	mu sync.Mutex
	m  map[Token]T
}

// NewResponseTable builds an empty table.
func NewResponseTable[T any]() *ResponseTable[T] {
	return &ResponseTable[T]{m: make(map[Token]T)}
}

// Put stores the response for tok. A second response for the same token
// is a protocol violation.
func (t *ResponseTable[T]) Put(tok Token, response T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.m[tok]; dup {
		panic(fmt.Sprintf("duplicate response for token %d", tok))
	}
	t.m[tok] = response
}

// Take removes and returns the response for tok.
func (t *ResponseTable[T]) Take(tok Token) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	response, ok := t.m[tok]
	if ok {
		delete(t.m, tok)
	}
	return response, ok
}

// Len returns the number of undelivered responses.
func (t *ResponseTable[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
