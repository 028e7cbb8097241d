package dispatch

import "context"

// Call is an in-flight asynchronous dispatch. The delegated client call
// runs in its own goroutine; Wait hands back its result or error as-is.
type Call struct {
	done   chan struct{}
	result string
	err    error
}

// start runs fn in a goroutine and returns the Call tracking it.
func start(fn func() (string, error)) *Call {
	c := &Call{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		c.result, c.err = fn()
	}()
	return c
}

// Wait blocks until the call completes or ctx is cancelled. A ctx
// cancellation is returned as ctx.Err(); the delegated call itself also
// observes the same cancellation through its own context.
func (c *Call) Wait(ctx context.Context) (string, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Done returns a channel closed when the call completes. Useful for
// select loops over several concurrent dispatches.
func (c *Call) Done() <-chan struct{} {
	return c.done
}
