package middleware

import (
	"golang.org/x/time/rate"

	"rpcmux/endpoint"
)

// RateLimitWrapper throttles outgoing calls with a golang.org/x/time/rate
// token bucket.
func RateLimitWrapper(r float64, burst int) endpoint.CallWrapper {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next func() (any, error)) (any, error) {
		if !limiter.Allow() {
			return nil, &endpoint.RPCError{Code: endpoint.CodeSendFailed, Mesg: "rate limit exceeded"}
		}
		return next()
	}
}
