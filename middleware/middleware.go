// Package middleware provides endpoint.CallWrapper factories: small
// pieces of around-advice for an endpoint's outgoing calls, composable
// the same way HTTP middleware wraps a handler.
package middleware

import "rpcmux/endpoint"

// Chain composes wrappers into one, applied outermost-first: the first
// wrapper's next() invokes the second, and so on down to the real call.
func Chain(wrappers ...endpoint.CallWrapper) endpoint.CallWrapper {
	return func(next func() (any, error)) (any, error) {
		call := next
		for i := len(wrappers) - 1; i >= 0; i-- {
			w, inner := wrappers[i], call
			call = func() (any, error) { return w(inner) }
		}
		return call()
	}
}
