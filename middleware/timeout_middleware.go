package middleware

import (
	"time"

	"rpcmux/endpoint"
)

// TimeoutWrapper bounds how long an outgoing call may block, using a
// select on a buffered result channel. The underlying call, if it does
// eventually resolve, still runs to completion and still resolves the
// pending entry it registered — this only stops the caller from
// waiting on it. The core imposes no timeout by default; this is the
// opt-in extension point for one.
func TimeoutWrapper(timeout time.Duration) endpoint.CallWrapper {
	return func(next func() (any, error)) (any, error) {
		type result struct {
			data any
			err  error
		}
		done := make(chan result, 1)
		go func() {
			data, err := next()
			done <- result{data, err}
		}()

		select {
		case r := <-done:
			return r.data, r.err
		case <-time.After(timeout):
			return nil, &endpoint.RPCError{Code: endpoint.CodeTimeout, Mesg: "rpc call timed out"}
		}
	}
}
