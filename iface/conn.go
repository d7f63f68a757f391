package iface

// Status describes the health of a connection as reported by the
// underlying driver. It is queried live and never cached by the pool.
type Status int

const (
	// StatusOK means the connection can run further commands.
	StatusOK Status = iota

	// StatusBroken means the connection encountered a protocol or
	// transport level failure and must not be reused.
	StatusBroken
)

// Conn abstracts a single, feature-minimal connection to the remote
// database.
type Conn interface {
	// Close force-closes the connection. It is idempotent.
	Close() error

	// Closed reports whether Close has been called.
	Closed() bool

	// Status reports the current health of the connection.
	Status() Status

	// ApplyOption applies a named configuration value to this
	// connection. Unknown option names are ignored.
	ApplyOption(name string, value interface{})

	// Do performs a command on the remote server and returns its
	// result.
	Do(command string, args ...interface{}) (interface{}, error)

	// DoDeferred performs a command on the remote server and returns
	// a future settled with its result.
	DoDeferred(command string, args ...interface{}) Future

	// Send will publish command as part of a MULTI/EXEC sequence
	// to the remote server.
	Send(command string, args ...interface{}) error
}
