package iface

// Client is a goroutine-safe, minimal, and pooled database client.
type Client interface {
	// Close will drain the underlying connection pool.
	Close()

	// Do runs the command on the remote server and returns its raw
	// response.
	Do(command string, args ...interface{}) (interface{}, error)

	// DoDeferred runs the command on the remote server without
	// blocking and returns a future settled with its raw response.
	DoDeferred(command string, args ...interface{}) Future

	// Pipeline returns a builder object to which commands can be
	// attached. All commands in the pipeline are run on a single
	// connection bracketed by MULTI/EXEC, which are added implicitly
	// by the client. A pipeline does NOT guarantee atomicity. If you
	// require multiple commands to be run atomically, bundle them in
	// a Lua script and run it on the remote server with the EVAL
	// command.
	Pipeline() Pipeline

	// SetOption updates a pool-wide connection option at runtime. The
	// new value applies to every current and future connection.
	SetOption(name string, value interface{})
}
