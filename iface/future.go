package iface

// Future is a value that will settle exactly once with either a result
// or an error. Callbacks registered after settlement are invoked
// immediately on the registering goroutine; callbacks registered before
// settlement are invoked on the settling goroutine.
type Future interface {
	// Resolve settles the future with a value. Calls after the first
	// settlement are no-ops.
	Resolve(value interface{})

	// Reject settles the future with an error. Calls after the first
	// settlement are no-ops.
	Reject(err error)

	// OnComplete registers a callback invoked with the settled value
	// and error.
	OnComplete(fn func(value interface{}, err error))

	// OnFailure registers a callback invoked only if the future settles
	// with an error.
	OnFailure(fn func(err error))

	// AndThen returns a future that settles with the result of applying
	// fn to this future's value, or with this future's error unchanged.
	AndThen(fn func(value interface{}) (interface{}, error)) Future

	// Bind arranges for this future to settle exactly as the other
	// future settles.
	Bind(other Future)

	// Wait blocks until the future settles and returns its outcome.
	Wait() (interface{}, error)
}
