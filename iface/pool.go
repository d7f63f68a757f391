package iface

// Pool abstracts a fixed-capacity connection pool that grows lazily
// and queues callers once the capacity is exhausted.
type Pool interface {
	// Hold resolves a connection for the given session and runs body
	// against it. If the session already owns a connection the same
	// connection is supplied and the epilogue is skipped (the hold is
	// reentrant). Otherwise the connection comes from the idle set, is
	// freshly created, or is handed over after blocking behind earlier
	// waiters in FIFO order. After body returns, the connection is
	// released for reuse, or force-closed and dropped if body failed
	// and the connection reports itself broken. Any error from body or
	// from connection creation is returned to the caller.
	Hold(s *Session, body func(Conn) error) error

	// HoldDeferred is the non-blocking analogue of Hold. It returns a
	// future immediately; the connection is resolved in the background
	// and body is invoked with it to produce the command future. The
	// returned future settles exactly as the command future settles,
	// after the release-or-drop epilogue has run.
	HoldDeferred(body func(Conn) Future) Future

	// SetOption updates the default option set for future connections
	// and applies the value to every existing connection, including
	// connections whose creation is still in flight.
	SetOption(name string, value interface{})

	// Size returns the number of idle plus in-use connections. Slots
	// reserved for connections under construction count as in-use.
	Size() int

	// Drain force-closes every idle connection, leaving capacity for
	// lazy recreation. Checked-out connections are unaffected and the
	// pool remains usable.
	Drain()
}
