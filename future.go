package reservoir

import (
	"sync"

	"github.com/msandler/reservoir/iface"
)

type (
	// Future is a value that will settle exactly once with either a
	// result or an error.
	Future = iface.Future

	future struct {
		mutex     sync.Mutex
		settled   bool
		value     interface{}
		err       error
		done      chan struct{}
		callbacks []func(interface{}, error)
	}
)

// NewFuture creates an unsettled future.
func NewFuture() Future {
	return &future{
		done: make(chan struct{}),
	}
}

func (f *future) Resolve(value interface{}) {
	f.settle(value, nil)
}

func (f *future) Reject(err error) {
	f.settle(nil, err)
}

// The first settlement wins; later calls are no-ops. Callbacks that
// were registered before settlement run on the settling goroutine,
// outside of the future's lock.
func (f *future) settle(value interface{}, err error) {
	f.mutex.Lock()
	if f.settled {
		f.mutex.Unlock()
		return
	}

	f.settled = true
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mutex.Unlock()

	for _, callback := range callbacks {
		callback(value, err)
	}
}

func (f *future) OnComplete(fn func(interface{}, error)) {
	f.mutex.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, fn)
		f.mutex.Unlock()
		return
	}

	value, err := f.value, f.err
	f.mutex.Unlock()
	fn(value, err)
}

func (f *future) OnFailure(fn func(error)) {
	f.OnComplete(func(_ interface{}, err error) {
		if err != nil {
			fn(err)
		}
	})
}

func (f *future) AndThen(fn func(interface{}) (interface{}, error)) Future {
	g := NewFuture()

	f.OnComplete(func(value interface{}, err error) {
		if err != nil {
			g.Reject(err)
			return
		}

		if mapped, err := fn(value); err != nil {
			g.Reject(err)
		} else {
			g.Resolve(mapped)
		}
	})

	return g
}

func (f *future) Bind(other Future) {
	other.OnComplete(func(value interface{}, err error) {
		if err != nil {
			f.Reject(err)
		} else {
			f.Resolve(value)
		}
	})
}

func (f *future) Wait() (interface{}, error) {
	<-f.done

	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.value, f.err
}
