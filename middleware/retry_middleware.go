package middleware

import (
	"errors"
	"strings"
	"time"

	"rpcmux/endpoint"
)

// RetryWrapper retries a failed call with exponential backoff,
// restricted to errors that look transient: a send failure or a
// timeout, never an application
// error an implementation returned on purpose (RPC_INVALID_ARGS,
// RPC_UNKNOWN_METHOD, and so on are never worth retrying).
func RetryWrapper(maxRetries int, baseDelay time.Duration) endpoint.CallWrapper {
	return func(next func() (any, error)) (any, error) {
		data, err := next()
		for i := 0; i < maxRetries && err != nil && isRetryable(err); i++ {
			time.Sleep(baseDelay * time.Duration(1<<i))
			data, err = next()
		}
		return data, err
	}
}

func isRetryable(err error) bool {
	var rerr *endpoint.RPCError
	if errors.As(err, &rerr) {
		return rerr.Code == endpoint.CodeSendFailed || rerr.Code == endpoint.CodeTimeout
	}
	return strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "connection refused")
}
