// Package runtime is the host-facing half of the engine: the reactor that
// issues readiness tokens, the worker pool blocking work runs on, and the
// timer thread. The engine's run loop blocks in Wait; workers and timers
// never touch engine state, they only flip readiness.
package runtime

import (
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Token identifies one registered asynchronous operation. Tokens increase
// monotonically and are never reused within a reactor.
type Token uint64

// Readiness is the worker-side completion handle for one token. Ready may
// be called from any goroutine; the first call wins and later ones are
// dropped.
type Readiness struct {
	r   *Reactor
	tok Token
}

// Token returns the token this handle completes.
func (rd Readiness) Token() Token { return rd.tok }

// Ready marks the operation complete and wakes the run loop. Any response
// the completion carries must be stored before calling Ready.
func (rd Readiness) Ready() { rd.r.signal(rd.tok) }

// Reactor is the readiness hub the run loop parks on.
type Reactor struct {
	log    *zap.Logger
	wake   chan Token
	pool   *ants.Pool
	timers *timerThread

	mu         sync.Mutex
	nextToken  Token
	registered map[Token]struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures a reactor.
type Option func(*config)

type config struct {
	workers int
	log     *zap.Logger
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithLogger routes reactor logging to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

const defaultWorkers = 4

// New builds a reactor with its worker pool and timer thread running.
func New(opts ...Option) *Reactor {
	cfg := config{workers: defaultWorkers, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	pool, err := ants.NewPool(cfg.workers)
	if err != nil {
		// ants only rejects sizes the clamp above already rules out
		panic("reactor: " + err.Error())
	}
	r := &Reactor{
		log:        cfg.log,
		wake:       make(chan Token, 128),
		pool:       pool,
		registered: make(map[Token]struct{}),
		closed:     make(chan struct{}),
	}
	r.timers = newTimerThread(cfg.log)
	return r
}

// Register issues the next token together with its readiness handle.
func (r *Reactor) Register() (Token, Readiness) {
	r.mu.Lock()
	tok := r.nextToken
	r.nextToken++
	r.registered[tok] = struct{}{}
	r.mu.Unlock()
	return tok, Readiness{r: r, tok: tok}
}

func (r *Reactor) signal(tok Token) {
	r.mu.Lock()
	_, ok := r.registered[tok]
	if ok {
		delete(r.registered, tok)
	}
	r.mu.Unlock()
	if !ok {
		r.log.Warn("readiness signal for unregistered token", zap.Uint64("token", uint64(tok)))
		return
	}
	select {
	case r.wake <- tok:
	case <-r.closed:
	}
}

// Wait blocks until at least one operation completes, then drains
// whatever else is already ready. It returns nil once the reactor is
// closed.
func (r *Reactor) Wait() []Token {
	var out []Token
	select {
	case tok := <-r.wake:
		out = append(out, tok)
	case <-r.closed:
		return nil
	}
	for {
		select {
		case tok := <-r.wake:
			out = append(out, tok)
		default:
			return out
		}
	}
}

// Poll drains currently ready tokens without blocking.
func (r *Reactor) Poll() []Token {
	var out []Token
	for {
		select {
		case tok := <-r.wake:
			out = append(out, tok)
		default:
			return out
		}
	}
}

// Submit runs task on the worker pool. It blocks when every worker is
// busy.
func (r *Reactor) Submit(task func()) error {
	return r.pool.Submit(task)
}

// InsertTimer schedules rd to fire at deadline on the timer thread.
func (r *Reactor) InsertTimer(deadline time.Time, rd Readiness) {
	r.timers.insert(deadline, rd)
}

// InFlight returns the number of registered, not yet completed tokens.
func (r *Reactor) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered)
}

// Close stops the timer thread and releases the pool. After Close, Wait
// returns nil immediately and late readiness signals are dropped.
func (r *Reactor) Close() error {
	r.closeOnce.Do(func() {
		close(r.closed)
		r.timers.stop()
		r.pool.Release()
	})
	return nil
}
