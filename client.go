package reservoir

import (
	"io"
	"time"

	"github.com/efritz/backoff"
	"github.com/efritz/glock"
	"github.com/efritz/overcurrent"

	"github.com/msandler/reservoir/iface"
)

type (
	// Client is a goroutine-safe, minimal, and pooled database client.
	Client = iface.Client

	client struct {
		pool    Pool
		backoff backoff.Backoff
		clock   glock.Clock
		logger  Logger
	}

	clientConfig struct {
		password       string
		database       int
		connectTimeout time.Duration
		readTimeout    time.Duration
		writeTimeout   time.Duration
		poolCapacity   int
		eager          bool
		breakerFunc    BreakerFunc
		backoff        backoff.Backoff
		clock          glock.Clock
		logger         Logger
	}

	// ConfigFunc is a function used to initialize a new client.
	ConfigFunc func(*clientConfig)
)

// DefaultPoolCapacity is the maximum number of concurrent connections
// a client opens when WithPoolCapacity is not supplied.
const DefaultPoolCapacity = 4

// maxPrimeAttempts bounds eager dialing at construction before the
// client degrades to lazy connection creation.
const maxPrimeAttempts = 3

var defaultBackoff = backoff.NewConstantBackoff(time.Second)

// NewClient creates a new Client.
func NewClient(addr string, configs ...ConfigFunc) Client {
	config := &clientConfig{
		password:       "",
		database:       0,
		connectTimeout: time.Second * 5,
		writeTimeout:   time.Second * 5,
		readTimeout:    time.Second * 5,
		poolCapacity:   DefaultPoolCapacity,
		eager:          false,
		breakerFunc:    noopBreakerFunc,
		backoff:        defaultBackoff,
		clock:          glock.NewRealClock(),
		logger:         &defaultLogger{},
	}

	for _, f := range configs {
		f(config)
	}

	c := &client{
		pool: NewPool(
			makeDialer(addr, config),
			config.poolCapacity,
			config.logger,
			config.breakerFunc,
		),
		backoff: config.backoff,
		clock:   config.clock,
		logger:  config.logger,
	}

	if config.eager {
		c.prime()
	}

	return c
}

// WithPassword sets the password (default is "").
func WithPassword(password string) ConfigFunc {
	return func(c *clientConfig) { c.password = password }
}

// WithDatabase sets the database index (default is 0).
func WithDatabase(database int) ConfigFunc {
	return func(c *clientConfig) { c.database = database }
}

// WithConnectTimeout sets the connect timeout for new connections
// (default is 5 seconds).
func WithConnectTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.connectTimeout = timeout }
}

// WithReadTimeout sets the read timeout for all connections in the
// pool (default is 5 seconds). The value can be changed at runtime
// with SetOption(OptionReadTimeout, timeout).
func WithReadTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.readTimeout = timeout }
}

// WithWriteTimeout sets the write timeout for all connections in the
// pool (default is 5 seconds).
func WithWriteTimeout(timeout time.Duration) ConfigFunc {
	return func(c *clientConfig) { c.writeTimeout = timeout }
}

// WithPoolCapacity sets the maximum number of concurrent connections
// that can be in use at once (default is 4).
func WithPoolCapacity(capacity int) ConfigFunc {
	return func(c *clientConfig) { c.poolCapacity = capacity }
}

// WithEagerConnection makes the client establish its initial
// connection at construction time instead of at first use. Dial
// failures at construction are retried a bounded number of times and
// then degrade to lazy creation; they are never fatal.
func WithEagerConnection() ConfigFunc {
	return func(c *clientConfig) { c.eager = true }
}

// WithBreaker sets the circuit breaker instance to use around new
// connections. The default uses a no-op circuit breaker.
func WithBreaker(breaker overcurrent.CircuitBreaker) ConfigFunc {
	return func(c *clientConfig) { c.breakerFunc = breaker.Call }
}

// WithBreakerRegistry sets the overcurrent registry to use and the
// name of the circuit breaker config to use around new connections.
// The default uses a no-op circuit breaker.
func WithBreakerRegistry(registry overcurrent.Registry, name string) ConfigFunc {
	return func(c *clientConfig) {
		c.breakerFunc = func(f overcurrent.BreakerFunc) error {
			return registry.Call(name, f, nil)
		}
	}
}

// WithRetryBackoff sets the backoff interval strategy used between
// attempts when retrying a command on a stale connection and when
// priming an eager connection (default is a constant one-second
// interval).
func WithRetryBackoff(b backoff.Backoff) ConfigFunc {
	return func(c *clientConfig) { c.backoff = b }
}

// WithLogger sets the logger instance (the default will use Go's
// builtin logging library).
func WithLogger(logger Logger) ConfigFunc {
	return func(c *clientConfig) { c.logger = logger }
}

func withClock(clock glock.Clock) ConfigFunc {
	return func(c *clientConfig) { c.clock = clock }
}

//
// Client Implementation

func (c *client) Close() {
	c.pool.Drain()
}

func (c *client) Do(command string, args ...interface{}) (interface{}, error) {
	return c.do(command, args, c.backoff.Clone())
}

func (c *client) DoDeferred(command string, args ...interface{}) Future {
	return c.pool.HoldDeferred(func(conn Conn) Future {
		return conn.DoDeferred(command, args...)
	})
}

func (c *client) Pipeline() Pipeline {
	return newPipeline(c)
}

func (c *client) SetOption(name string, value interface{}) {
	c.pool.SetOption(name, value)
}

//
// Client Helper Functions

func (c *client) do(command string, args []interface{}, b backoff.Backoff) (interface{}, error) {
	var result interface{}
	err := c.pool.Hold(NewSession(), func(conn Conn) error {
		r, err := conn.Do(command, args...)
		result = r
		return err
	})

	if err != nil && shouldRetry(err) {
		// The TCP connection to the remote server may have been
		// reaped by a proxy (depending on your network topology).
		// The pool has already dropped the stale connection, so we
		// can try again on a fresh one.
		c.logger.Printf("Connection from pool was stale, retrying")
		<-c.clock.After(b.NextInterval())
		return c.do(command, args, b)
	}

	return result, err
}

func (c *client) transaction(commands []commandPair) (interface{}, error) {
	return c.runTransaction(commands, c.backoff.Clone())
}

func (c *client) runTransaction(commands []commandPair, b backoff.Backoff) (interface{}, error) {
	var (
		result interface{}
		opened bool
	)

	s := NewSession()
	err := c.pool.Hold(s, func(conn Conn) error {
		if err := conn.Send("MULTI"); err != nil {
			return err
		}

		// We can't safely retry anything after we've sent the MULTI
		// as pipelined commands aren't really atomic.
		opened = true

		for _, command := range commands {
			// Nested holds on the same session resolve to the same
			// connection and release only at the outermost exit.
			err := c.pool.Hold(s, func(held Conn) error {
				return held.Send(command.command, command.args...)
			})

			if err != nil {
				return err
			}
		}

		r, err := conn.Do("EXEC")
		result = r
		return err
	})

	if err != nil && !opened && shouldRetry(err) {
		c.logger.Printf("Connection from pool was stale, retrying")
		<-c.clock.After(b.NextInterval())
		return c.runTransaction(commands, b)
	}

	return result, err
}

// prime eagerly establishes the initial connection so that the first
// command does not pay the dial cost.
func (c *client) prime() {
	b := c.backoff.Clone()

	for attempt := 1; ; attempt++ {
		err := c.pool.Hold(NewSession(), func(Conn) error { return nil })
		if err == nil {
			return
		}

		c.logger.Printf("Could not establish initial connection (%s)", err.Error())

		if attempt >= maxPrimeAttempts {
			c.logger.Printf("Deferring connection creation until first use")
			return
		}

		<-c.clock.After(b.NextInterval())
	}
}

// Given an error, determine if we should try to re-invoke the
// command on another (possibly fresh) connection.
func shouldRetry(err error) bool {
	if wrapped, ok := err.(connErr); ok {
		err = wrapped.error
	}

	return err == io.EOF || err == io.ErrUnexpectedEOF
}
