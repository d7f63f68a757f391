package reservoir

import (
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/msandler/reservoir/iface"
)

type (
	// Conn abstracts a single, feature-minimal connection to the
	// remote server.
	Conn = iface.Conn

	// Status describes the health of a connection.
	Status = iface.Status

	// CommandHook is the value type of OptionCommandHook. The hook is
	// invoked after every command with the command name and its
	// error, if any.
	CommandHook func(command string, err error)

	redigoShim struct {
		mutex       sync.Mutex
		conn        redis.Conn
		closed      bool
		readTimeout time.Duration
		hook        CommandHook
	}

	connErr struct{ error }

	// DialFunc creates a connection to the remote server or returns
	// an error.
	DialFunc func() (Conn, error)
)

const (
	StatusOK     = iface.StatusOK
	StatusBroken = iface.StatusBroken
)

func makeDialer(addr string, config *clientConfig) DialFunc {
	return func() (Conn, error) {
		conn, err := redis.Dial(
			"tcp",
			addr,
			redis.DialPassword(config.password),
			redis.DialDatabase(config.database),
			redis.DialConnectTimeout(config.connectTimeout),
			redis.DialReadTimeout(config.readTimeout),
			redis.DialWriteTimeout(config.writeTimeout),
		)

		if err != nil {
			return nil, err
		}

		return &redigoShim{conn: conn}, nil
	}
}

func (s *redigoShim) Close() error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}

	s.closed = true
	s.mutex.Unlock()

	return s.conn.Close()
}

func (s *redigoShim) Closed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.closed
}

// Status is queried from the underlying connection on each call so
// that a transport failure observed by the driver is visible to the
// pool immediately.
func (s *redigoShim) Status() Status {
	if s.conn.Err() != nil {
		return StatusBroken
	}

	return StatusOK
}

func (s *redigoShim) ApplyOption(name string, value interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch name {
	case OptionReadTimeout:
		if timeout, ok := value.(time.Duration); ok {
			s.readTimeout = timeout
		}

	case OptionCommandHook:
		if hook, ok := value.(CommandHook); ok {
			s.hook = hook
		}
	}
}

func (s *redigoShim) Do(command string, args ...interface{}) (interface{}, error) {
	s.mutex.Lock()
	timeout := s.readTimeout
	hook := s.hook
	s.mutex.Unlock()

	var (
		result interface{}
		err    error
	)

	if timeout > 0 {
		result, err = redis.DoWithTimeout(s.conn, timeout, command, args...)
	} else {
		result, err = s.conn.Do(command, args...)
	}

	err = s.wrapError(err)
	if hook != nil {
		hook(command, err)
	}

	return result, err
}

func (s *redigoShim) DoDeferred(command string, args ...interface{}) Future {
	f := NewFuture()

	go func() {
		if result, err := s.Do(command, args...); err != nil {
			f.Reject(err)
		} else {
			f.Resolve(result)
		}
	}()

	return f
}

func (s *redigoShim) Send(command string, args ...interface{}) error {
	s.mutex.Lock()
	hook := s.hook
	s.mutex.Unlock()

	err := s.wrapError(s.conn.Send(command, args...))
	if hook != nil {
		hook(command, err)
	}

	return err
}

func (s *redigoShim) wrapError(err error) error {
	// If there's an error on the connection, wrap it and return that
	// so we can flag the retry loop in the client to retry instead of
	// returning the error on this attempt.

	if s.conn.Err() != nil {
		return connErr{s.conn.Err()}
	}

	return err
}
