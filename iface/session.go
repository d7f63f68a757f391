package iface

import "sync/atomic"

var sessionSequence uint64

// Session identifies one logical caller across nested Hold calls. A
// hold made with a session that already owns a connection is reentrant
// and resolves to the same connection without queuing. A session must
// not be shared by concurrently executing goroutines.
type Session struct {
	id uint64
}

// NewSession creates a fresh caller identity.
func NewSession() *Session {
	return &Session{id: atomic.AddUint64(&sessionSequence, 1)}
}

// ID returns a process-unique identifier for logging.
func (s *Session) ID() uint64 {
	return s.id
}
