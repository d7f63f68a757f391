package reservoir

import (
	"context"
	"errors"
	"sync"

	"github.com/bradhe/stopwatch"
	"github.com/efritz/overcurrent"

	"github.com/msandler/reservoir/iface"
)

type (
	// Pool abstracts a fixed-capacity connection pool.
	Pool = iface.Pool

	pool struct {
		dialer      DialFunc
		capacity    int
		logger      Logger
		breakerFunc BreakerFunc

		mutex     sync.Mutex
		options   map[string]interface{}
		available []Conn
		allocated map[interface{}]*slot
		pending   []waiter
	}

	// slot is one occupied capacity unit. A slot whose conn is nil is
	// a placeholder for a connection still being created; option
	// assignments that arrive in the meantime are queued on it and
	// replayed once the connection exists.
	slot struct {
		conn     Conn
		deferred []assignment
	}

	assignment struct {
		name  string
		value interface{}
	}

	// waiter is an entry in the pending queue. handoff supplies a
	// released connection directly, already recorded in allocated
	// under the waiter's key; wake signals that a slot was freed and
	// acquisition should be retried.
	waiter interface {
		key() interface{}
		handoff(conn Conn)
		wake()
	}

	syncWaiter struct {
		k  interface{}
		ch chan Conn
	}

	asyncWaiter struct {
		future   Future
		slotFree Future
	}

	// BreakerFunc bridges the interface between the Call function of
	// an overcurrent breaker and an overcurrent registry.
	BreakerFunc func(overcurrent.BreakerFunc) error
)

// errSlotFreed is the uniform wake-up signal for asynchronous waiters:
// a capacity slot was freed with no connection to hand over. It never
// escapes the pool.
var errSlotFreed = errors.New("slot freed")

func noopBreakerFunc(f overcurrent.BreakerFunc) error {
	return f(context.Background())
}

func (w *syncWaiter) key() interface{}  { return w.k }
func (w *syncWaiter) handoff(conn Conn) { w.ch <- conn }
func (w *syncWaiter) wake()             { w.ch <- nil }

func (w *asyncWaiter) key() interface{}  { return w.future }
func (w *asyncWaiter) handoff(conn Conn) { w.slotFree.Resolve(conn) }
func (w *asyncWaiter) wake()             { w.slotFree.Reject(errSlotFreed) }

// NewPool creates an empty pool. Connections are created on demand up
// to capacity, and broken connections are dropped and lazily replaced.
func NewPool(dialer DialFunc, capacity int, logger Logger, breakerFunc BreakerFunc) Pool {
	return &pool{
		dialer:      dialer,
		capacity:    capacity,
		logger:      logger,
		breakerFunc: breakerFunc,
		options:     map[string]interface{}{},
		allocated:   map[interface{}]*slot{},
	}
}

func (p *pool) Hold(s *Session, body func(Conn) error) error {
	p.mutex.Lock()
	if held, ok := p.allocated[s]; ok && held.conn != nil {
		conn := held.conn
		p.mutex.Unlock()

		// Reentrant hold: the session already owns a connection. Run
		// the body against it and leave release to the outermost hold.
		return body(conn)
	}

	conn, err := p.acquire(s)
	if err != nil {
		return err
	}

	err = body(conn)

	if err != nil && conn.Status() == StatusBroken {
		conn.Close()
		p.dropFailed(s)
	} else {
		p.release(s)
	}

	return err
}

func (p *pool) HoldDeferred(body func(Conn) Future) Future {
	f := NewFuture()
	p.mutex.Lock()
	p.acquireDeferred(f, body)
	return f
}

func (p *pool) Size() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.sizeLocked()
}

func (p *pool) Drain() {
	p.mutex.Lock()
	idle := p.available
	p.available = nil
	p.mutex.Unlock()

	for _, conn := range idle {
		if err := conn.Close(); err != nil {
			p.logger.Printf("Could not close connection (%s)", err.Error())
		}
	}
}

//
// Acquisition

// acquire resolves a connection for key: the most recently released
// idle connection, a freshly created one if capacity allows, or one
// handed over after queuing behind earlier waiters. Called with the
// mutex held; returns with it released.
func (p *pool) acquire(key interface{}) (Conn, error) {
	for {
		if conn, ok := p.popAvailable(); ok {
			p.allocated[key] = &slot{conn: conn}
			p.mutex.Unlock()
			return conn, nil
		}

		if p.sizeLocked() < p.capacity {
			reserved, options := p.reserve(key)
			p.mutex.Unlock()
			return p.create(key, reserved, options)
		}

		w := &syncWaiter{k: key, ch: make(chan Conn, 1)}
		p.pending = append(p.pending, w)
		p.mutex.Unlock()

		start := stopwatch.Start()
		conn := <-w.ch
		elapsed := start.Stop().Milliseconds()

		if conn != nil {
			// Direct handoff; the releaser already recorded the
			// connection under our key.
			p.logger.Printf("Received connection after %vms", elapsed)
			return conn, nil
		}

		// A slot was freed with no connection to hand over.
		p.logger.Printf("Retrying acquisition after %vms", elapsed)
		p.mutex.Lock()
	}
}

// acquireDeferred resolves a connection for the future f without ever
// blocking the caller. Called with the mutex held; returns with it
// released.
func (p *pool) acquireDeferred(f Future, body func(Conn) Future) {
	if conn, ok := p.popAvailable(); ok {
		p.allocated[f] = &slot{conn: conn}
		p.mutex.Unlock()
		p.run(f, conn, body)
		return
	}

	if p.sizeLocked() < p.capacity {
		reserved, options := p.reserve(f)
		p.mutex.Unlock()

		go func() {
			conn, err := p.create(f, reserved, options)
			if err != nil {
				f.Reject(err)
				return
			}

			p.run(f, conn, body)
		}()

		return
	}

	// At capacity. Enqueue a slot-available future: success is a
	// direct handoff from release, failure means a slot was freed
	// and acquisition must be retried from the top.
	slotFree := NewFuture()
	slotFree.OnComplete(func(value interface{}, err error) {
		if err != nil {
			p.mutex.Lock()
			p.acquireDeferred(f, body)
			return
		}

		p.run(f, value.(Conn), body)
	})

	p.pending = append(p.pending, &asyncWaiter{future: f, slotFree: slotFree})
	p.mutex.Unlock()
}

// reserve installs a placeholder slot for key and snapshots the
// current option set. Both are consulted again once the dial has
// completed so that options set mid-creation are not lost.
func (p *pool) reserve(key interface{}) (*slot, []assignment) {
	reserved := &slot{}
	p.allocated[key] = reserved

	options := make([]assignment, 0, len(p.options))
	for name, value := range p.options {
		options = append(options, assignment{name, value})
	}

	return reserved, options
}

// create dials a connection for a previously reserved slot. On failure
// the placeholder is removed, freeing the slot, and one pending waiter
// is woken to retry acquisition; the error is seen only by the caller
// that requested the connection.
func (p *pool) create(key interface{}, reserved *slot, options []assignment) (Conn, error) {
	conn, err := p.dial()

	p.mutex.Lock()
	if err != nil {
		delete(p.allocated, key)
		w := p.popPending()
		p.mutex.Unlock()

		if w != nil {
			w.wake()
		}

		return nil, err
	}

	p.install(reserved, conn, options)
	p.mutex.Unlock()
	return conn, nil
}

// install replays the option snapshot, then any assignments queued on
// the placeholder while the dial was in flight (queued assignments are
// newer and win), and swaps the real connection into the slot.
func (p *pool) install(reserved *slot, conn Conn, options []assignment) {
	for _, a := range options {
		conn.ApplyOption(a.name, a.value)
	}

	for _, a := range reserved.deferred {
		conn.ApplyOption(a.name, a.value)
	}

	reserved.deferred = nil
	reserved.conn = conn
}

// run invokes body with a connection recorded under f and attaches the
// epilogue: release on success, drop on a failure that left the
// connection broken. f settles exactly as the command future settles,
// after the epilogue has advanced the pending queue.
func (p *pool) run(f Future, conn Conn, body func(Conn) Future) {
	g := body(conn)

	g.OnComplete(func(value interface{}, err error) {
		if err != nil && conn.Status() == StatusBroken {
			conn.Close()
			p.dropFailed(f)
		} else {
			p.release(f)
		}

		if err != nil {
			f.Reject(err)
		} else {
			f.Resolve(value)
		}
	})
}

//
// Release

// release removes key from allocated and returns its connection to the
// pool. If a waiter is pending, the connection is handed to it
// directly, bypassing the available list; otherwise it becomes the
// most recently released idle connection and will be reused first.
func (p *pool) release(key interface{}) {
	p.mutex.Lock()
	held, ok := p.allocated[key]
	if !ok || held.conn == nil {
		p.mutex.Unlock()
		return
	}

	delete(p.allocated, key)
	conn := held.conn

	if w := p.popPending(); w != nil {
		p.allocated[w.key()] = &slot{conn: conn}
		p.mutex.Unlock()
		w.handoff(conn)
		return
	}

	p.available = append(p.available, conn)
	p.mutex.Unlock()
}

// dropFailed discards the broken connection (or placeholder) held
// under key, freeing one capacity slot, and wakes the oldest pending
// waiter to retry acquisition. A broken connection is never handed to
// a waiter.
func (p *pool) dropFailed(key interface{}) {
	p.mutex.Lock()
	delete(p.allocated, key)
	w := p.popPending()
	p.mutex.Unlock()

	if w != nil {
		w.wake()
	}
}

//
// Pool Helper Functions

func (p *pool) sizeLocked() int {
	return len(p.available) + len(p.allocated)
}

func (p *pool) popAvailable() (Conn, bool) {
	n := len(p.available)
	if n == 0 {
		return nil, false
	}

	conn := p.available[n-1]
	p.available = p.available[:n-1]
	return conn, true
}

func (p *pool) popPending() waiter {
	if len(p.pending) == 0 {
		return nil
	}

	w := p.pending[0]
	p.pending = p.pending[1:]
	return w
}

// Dial a new connection. The call to the dialer function is wrapped
// in a circuit breaker so that if the remote end is down we are not
// going to hammer it.
func (p *pool) dial() (Conn, error) {
	var conn Conn
	err := p.breakerFunc(func(ctx context.Context) error {
		temp, err := p.dialer()
		conn = temp
		return err
	})

	if err != nil {
		p.logger.Printf("Could not connect to Redis (%s)", err.Error())
		return nil, err
	}

	p.logger.Printf("Established a new connection with Redis")
	return conn, nil
}
